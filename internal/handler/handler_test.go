package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/jobnudge/internal/middleware"
)

// --- モック定義 ---

type mockProfileService struct {
	activateFn          func(ctx context.Context, userID string) (*profileResponse, error)
	deactivateFn        func(ctx context.Context, userID string) error
	getFn               func(ctx context.Context, userID string) (*profileResponse, error)
	updatePreferencesFn func(ctx context.Context, userID string, req preferencesRequest) (*profileResponse, error)
	refreshFn           func(ctx context.Context, userID string) error
	checkNowFn          func(ctx context.Context, userID string) (string, error)
}

func (m *mockProfileService) Activate(ctx context.Context, userID string) (*profileResponse, error) {
	if m.activateFn != nil {
		return m.activateFn(ctx, userID)
	}
	return &profileResponse{UserID: userID, Active: true}, nil
}

func (m *mockProfileService) Deactivate(ctx context.Context, userID string) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, userID)
	}
	return nil
}

func (m *mockProfileService) Get(ctx context.Context, userID string) (*profileResponse, error) {
	if m.getFn != nil {
		return m.getFn(ctx, userID)
	}
	return &profileResponse{UserID: userID}, nil
}

func (m *mockProfileService) UpdatePreferences(ctx context.Context, userID string, req preferencesRequest) (*profileResponse, error) {
	if m.updatePreferencesFn != nil {
		return m.updatePreferencesFn(ctx, userID, req)
	}
	return &profileResponse{UserID: userID}, nil
}

func (m *mockProfileService) Refresh(ctx context.Context, userID string) error {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, userID)
	}
	return nil
}

func (m *mockProfileService) CheckNow(ctx context.Context, userID string) (string, error) {
	if m.checkNowFn != nil {
		return m.checkNowFn(ctx, userID)
	}
	return "skipped", nil
}

type mockApplicationService struct {
	listFn             func(ctx context.Context, userID string) ([]applicationResponse, error)
	recordFn           func(ctx context.Context, userID string, req recordApplicationRequest) (*applicationResponse, error)
	setFollowupDaysFn  func(ctx context.Context, userID, company, role string, days int) error
	removeFn           func(ctx context.Context, userID, company, role string) error
	clearFn            func(ctx context.Context, userID string) (int64, error)
	followupTemplateFn func(company, role string) string
}

func (m *mockApplicationService) List(ctx context.Context, userID string) ([]applicationResponse, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockApplicationService) Record(ctx context.Context, userID string, req recordApplicationRequest) (*applicationResponse, error) {
	if m.recordFn != nil {
		return m.recordFn(ctx, userID, req)
	}
	return &applicationResponse{Company: req.Company, Role: req.Role}, nil
}

func (m *mockApplicationService) SetFollowupDays(ctx context.Context, userID, company, role string, days int) error {
	if m.setFollowupDaysFn != nil {
		return m.setFollowupDaysFn(ctx, userID, company, role, days)
	}
	return nil
}

func (m *mockApplicationService) Remove(ctx context.Context, userID, company, role string) error {
	if m.removeFn != nil {
		return m.removeFn(ctx, userID, company, role)
	}
	return nil
}

func (m *mockApplicationService) Clear(ctx context.Context, userID string) (int64, error) {
	if m.clearFn != nil {
		return m.clearFn(ctx, userID)
	}
	return 0, nil
}

func (m *mockApplicationService) FollowupTemplate(company, role string) string {
	if m.followupTemplateFn != nil {
		return m.followupTemplateFn(company, role)
	}
	return "Hello " + company + " " + role
}

type mockActionService struct {
	handleFn func(ctx context.Context, userID, data string) (*actionResponse, error)
}

func (m *mockActionService) Handle(ctx context.Context, userID, data string) (*actionResponse, error) {
	if m.handleFn != nil {
		return m.handleFn(ctx, userID, data)
	}
	return &actionResponse{}, nil
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error {
	return m.err
}

// --- ヘルパー ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// withUserID はテスト用にコンテキストへユーザーIDを注入するヘルパー。
func withUserID(r *http.Request, userID string) *http.Request {
	ctx := middleware.ContextWithUserID(r.Context(), userID)
	return r.WithContext(ctx)
}

// parseAPIErrorResponse はレスポンスボディからAPIErrorレスポンスをパースするヘルパー。
func parseAPIErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var result map[string]string
	if err := json.NewDecoder(w.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return result
}
