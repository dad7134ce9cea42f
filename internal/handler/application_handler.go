package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/jobnudge/internal/middleware"
	"github.com/hitoshi/jobnudge/internal/model"
)

// ApplicationServiceInterface は応募記録ハンドラーが必要とするサービスインターフェース。
type ApplicationServiceInterface interface {
	List(ctx context.Context, userID string) ([]applicationResponse, error)
	Record(ctx context.Context, userID string, req recordApplicationRequest) (*applicationResponse, error)
	SetFollowupDays(ctx context.Context, userID, company, role string, days int) error
	Remove(ctx context.Context, userID, company, role string) error
	Clear(ctx context.Context, userID string) (int64, error)
	FollowupTemplate(company, role string) string
}

// applicationResponse は応募記録のAPIレスポンス。
type applicationResponse struct {
	Company           string    `json:"company"`
	Role              string    `json:"role"`
	AppliedAt         time.Time `json:"applied_at"`
	FollowupAfterDays int       `json:"followup_after_days"`
	Link              *string   `json:"link,omitempty"`
	DueAt             time.Time `json:"due_at"`
	Due               bool      `json:"due"`
}

// recordApplicationRequest は応募記録リクエストのボディ。
// followup_after_daysを省略（0）した場合は既定値を使う。
type recordApplicationRequest struct {
	Company           string `json:"company"`
	Role              string `json:"role"`
	Link              string `json:"link"`
	FollowupAfterDays int    `json:"followup_after_days"`
}

// applicationKeyRequest は会社名と職種で応募記録を特定するリクエストのボディ。
type applicationKeyRequest struct {
	Company           string `json:"company"`
	Role              string `json:"role"`
	FollowupAfterDays int    `json:"followup_after_days,omitempty"`
}

// ApplicationHandler は応募記録のHTTPハンドラー。
type ApplicationHandler struct {
	service ApplicationServiceInterface
	logger  *slog.Logger
}

// NewApplicationHandler はApplicationHandlerを生成する。
func NewApplicationHandler(service ApplicationServiceInterface, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{service: service, logger: logger}
}

// List は応募記録を期日情報付きで返す。状態は変更しない。
// GET /api/applications
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	items, err := h.service.List(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	if items == nil {
		items = []applicationResponse{}
	}
	writeJSON(w, http.StatusOK, items)
}

// Record は応募を記録する。
// POST /api/applications
func (h *ApplicationHandler) Record(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req recordApplicationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	app, err := h.service.Record(r.Context(), uid, req)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

// SetFollowupDays はフォローアップまでの日数を変更する。
// PUT /api/applications/followup
func (h *ApplicationHandler) SetFollowupDays(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req applicationKeyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.service.SetFollowupDays(r.Context(), uid, req.Company, req.Role, req.FollowupAfterDays); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove は応募記録を1件削除する。
// DELETE /api/applications
func (h *ApplicationHandler) Remove(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req applicationKeyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.service.Remove(r.Context(), uid, req.Company, req.Role); err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear は利用者の応募記録をすべて削除する。
// DELETE /api/applications/all
func (h *ApplicationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	n, err := h.service.Clear(r.Context(), uid)
	if err != nil {
		handleServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": n})
}

// FollowupTemplate はフォローアップ連絡の文面テンプレートを返す。
// GET /api/applications/followup-template?company=&role=
func (h *ApplicationHandler) FollowupTemplate(w http.ResponseWriter, r *http.Request) {
	company := r.URL.Query().Get("company")
	role := r.URL.Query().Get("role")
	if company == "" || role == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidApplicationError())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"text": h.service.FollowupTemplate(company, role)})
}
