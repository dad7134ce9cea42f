package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	// Activate は購読を開始する。既存の検索条件は維持する。
	Activate(ctx context.Context, userID string) (*profileResponse, error)
	// Deactivate は購読を停止する。
	Deactivate(ctx context.Context, userID string) error
	// Get は現在のプロフィールを返す。
	Get(ctx context.Context, userID string) (*profileResponse, error)
	// UpdatePreferences は検索条件を部分更新する。
	UpdatePreferences(ctx context.Context, userID string, req preferencesRequest) (*profileResponse, error)
	// Refresh は重複抑止状態をリセットし、次回のアラートを必ず送らせる。
	Refresh(ctx context.Context, userID string) error
	// CheckNow はアラート処理を即時に1回実行し、結果を返す。
	CheckNow(ctx context.Context, userID string) (string, error)
}

// profileResponse はプロフィールのAPIレスポンス。未設定の項目は"Any"になる。
type profileResponse struct {
	UserID     string `json:"user_id"`
	Active     bool   `json:"active"`
	Skills     string `json:"skills"`
	Location   string `json:"location"`
	Experience string `json:"experience"`
	WorkMode   string `json:"work_mode"`
	SearchURL  string `json:"search_url,omitempty"`
}

// preferencesRequest は検索条件更新リクエストのボディ。省略した項目は変更しない。
type preferencesRequest struct {
	Skills     *string `json:"skills"`
	Location   *string `json:"location"`
	Experience *string `json:"experience"`
	WorkMode   *string `json:"work_mode"`
}

// ProfileHandler はプロフィール操作のHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
	logger  *slog.Logger
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, logger: logger}
}

// Activate は購読を開始する。
// POST /api/profile/activate
func (h *ProfileHandler) Activate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Activate(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Deactivate は購読を停止する。
// POST /api/profile/deactivate
func (h *ProfileHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), uid); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Get はプロフィールを返す。
// GET /api/profile
func (h *ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdatePreferences は検索条件を更新する。
// PUT /api/profile/preferences
func (h *ProfileHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req preferencesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	view, err := h.service.UpdatePreferences(r.Context(), uid, req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// Refresh は重複抑止状態をリセットする。
// POST /api/profile/refresh
func (h *ProfileHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.service.Refresh(r.Context(), uid); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CheckNow はアラート処理を即時実行する。
// POST /api/profile/check
func (h *ProfileHandler) CheckNow(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	outcome, err := h.service.CheckNow(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"outcome": outcome})
}
