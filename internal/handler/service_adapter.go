package handler

import (
	"context"

	"github.com/hitoshi/jobnudge/internal/action"
	"github.com/hitoshi/jobnudge/internal/ledger"
	"github.com/hitoshi/jobnudge/internal/profile"
)

// ProfileServiceAdapter は profile.Service を ProfileServiceInterface に適合させるアダプタ。
type ProfileServiceAdapter struct {
	svc *profile.Service
}

// NewProfileServiceAdapter はProfileServiceAdapterを生成する。
func NewProfileServiceAdapter(svc *profile.Service) *ProfileServiceAdapter {
	return &ProfileServiceAdapter{svc: svc}
}

// Activate は購読を開始しhandlerレスポンス型で返す。
func (a *ProfileServiceAdapter) Activate(ctx context.Context, userID string) (*profileResponse, error) {
	view, err := a.svc.Activate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(view), nil
}

// Deactivate は購読を停止する。
func (a *ProfileServiceAdapter) Deactivate(ctx context.Context, userID string) error {
	return a.svc.Deactivate(ctx, userID)
}

// Get はプロフィールをhandlerレスポンス型で返す。
func (a *ProfileServiceAdapter) Get(ctx context.Context, userID string) (*profileResponse, error) {
	view, err := a.svc.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toProfileResponse(view), nil
}

// UpdatePreferences は検索条件を更新しhandlerレスポンス型で返す。
func (a *ProfileServiceAdapter) UpdatePreferences(ctx context.Context, userID string, req preferencesRequest) (*profileResponse, error) {
	view, err := a.svc.UpdatePreferences(ctx, userID, profile.PreferencesInput{
		Skills:     req.Skills,
		Location:   req.Location,
		Experience: req.Experience,
		WorkMode:   req.WorkMode,
	})
	if err != nil {
		return nil, err
	}
	return toProfileResponse(view), nil
}

// Refresh は重複抑止状態をリセットする。
func (a *ProfileServiceAdapter) Refresh(ctx context.Context, userID string) error {
	return a.svc.Refresh(ctx, userID)
}

// CheckNow はアラート処理を即時実行し、結果を文字列で返す。
func (a *ProfileServiceAdapter) CheckNow(ctx context.Context, userID string) (string, error) {
	outcome, err := a.svc.CheckNow(ctx, userID)
	if err != nil {
		return "", err
	}
	return outcome.String(), nil
}

func toProfileResponse(v *profile.View) *profileResponse {
	return &profileResponse{
		UserID:     v.UserID,
		Active:     v.Active,
		Skills:     v.Skills,
		Location:   v.Location,
		Experience: v.Experience,
		WorkMode:   v.WorkMode,
		SearchURL:  v.SearchURL,
	}
}

// LedgerServiceAdapter は ledger.Service を ApplicationServiceInterface に適合させるアダプタ。
type LedgerServiceAdapter struct {
	svc *ledger.Service
}

// NewLedgerServiceAdapter はLedgerServiceAdapterを生成する。
func NewLedgerServiceAdapter(svc *ledger.Service) *LedgerServiceAdapter {
	return &LedgerServiceAdapter{svc: svc}
}

// List は応募記録を期日情報付きのhandlerレスポンス型で返す。
func (a *LedgerServiceAdapter) List(ctx context.Context, userID string) ([]applicationResponse, error) {
	items, err := a.svc.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	results := make([]applicationResponse, len(items))
	for i, it := range items {
		results[i] = toApplicationResponse(it)
	}
	return results, nil
}

// Record は応募を記録しhandlerレスポンス型で返す。
func (a *LedgerServiceAdapter) Record(ctx context.Context, userID string, req recordApplicationRequest) (*applicationResponse, error) {
	entry, err := a.svc.Record(ctx, userID, req.Company, req.Role, req.Link, req.FollowupAfterDays)
	if err != nil {
		return nil, err
	}
	// 記録直後は期日前なので、記録時刻を基準に期日情報を付ける
	resp := toApplicationResponse(ledger.NewItem(entry, entry.AppliedAt))
	return &resp, nil
}

// SetFollowupDays はフォローアップ日数を変更する。
func (a *LedgerServiceAdapter) SetFollowupDays(ctx context.Context, userID, company, role string, days int) error {
	return a.svc.SetFollowupDays(ctx, userID, company, role, days)
}

// Remove は応募記録を1件削除する。
func (a *LedgerServiceAdapter) Remove(ctx context.Context, userID, company, role string) error {
	return a.svc.Remove(ctx, userID, company, role)
}

// Clear は応募記録をすべて削除する。
func (a *LedgerServiceAdapter) Clear(ctx context.Context, userID string) (int64, error) {
	return a.svc.Clear(ctx, userID)
}

// FollowupTemplate はフォローアップ連絡の文面テンプレートを返す。
func (a *LedgerServiceAdapter) FollowupTemplate(company, role string) string {
	return a.svc.FollowupTemplate(company, role)
}

func toApplicationResponse(it ledger.Item) applicationResponse {
	resp := applicationResponse{
		Company:           it.Entry.Company,
		Role:              it.Entry.Role,
		AppliedAt:         it.Entry.AppliedAt,
		FollowupAfterDays: it.Entry.FollowupAfterDays,
		DueAt:             it.DueAt,
		Due:               it.Due,
	}
	if link, ok := it.Entry.Link.Get(); ok {
		resp.Link = &link
	}
	return resp
}

// ActionHandlerAdapter は action.Handler を ActionServiceInterface に適合させるアダプタ。
type ActionHandlerAdapter struct {
	h *action.Handler
}

// NewActionHandlerAdapter はActionHandlerAdapterを生成する。
func NewActionHandlerAdapter(h *action.Handler) *ActionHandlerAdapter {
	return &ActionHandlerAdapter{h: h}
}

// Handle は受信したアクションを適用しhandlerレスポンス型で返す。
func (a *ActionHandlerAdapter) Handle(ctx context.Context, userID, data string) (*actionResponse, error) {
	res, err := a.h.Handle(ctx, action.Event{RecipientID: userID, Data: data})
	if err != nil {
		return nil, err
	}
	return &actionResponse{
		Kind:    string(res.Kind),
		Company: res.Company,
		Role:    res.Role,
		Applied: res.Applied,
		Reply:   res.Reply,
	}, nil
}

// --- compile-time interface checks ---

var _ ProfileServiceInterface = (*ProfileServiceAdapter)(nil)
var _ ApplicationServiceInterface = (*LedgerServiceAdapter)(nil)
var _ ActionServiceInterface = (*ActionHandlerAdapter)(nil)
