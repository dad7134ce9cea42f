package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// ActionServiceInterface は構造化アクションの受け口が必要とするインターフェース。
type ActionServiceInterface interface {
	Handle(ctx context.Context, userID, data string) (*actionResponse, error)
}

// actionRequest はメッセージのボタン押下で届くアクションのボディ。
type actionRequest struct {
	Data string `json:"data"`
}

// actionResponse はアクション処理結果のAPIレスポンス。
type actionResponse struct {
	Kind    string `json:"kind"`
	Company string `json:"company"`
	Role    string `json:"role"`
	Applied bool   `json:"applied"`
	Reply   string `json:"reply"`
}

// ActionHandler は構造化アクションのHTTPハンドラー。
type ActionHandler struct {
	service ActionServiceInterface
	logger  *slog.Logger
}

// NewActionHandler はActionHandlerを生成する。
func NewActionHandler(service ActionServiceInterface, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{service: service, logger: logger}
}

// Handle はアクションを適用する。
// POST /api/actions
func (h *ActionHandler) Handle(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req actionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.service.Handle(r.Context(), uid, req.Data)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
