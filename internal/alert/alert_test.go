package alert

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hitoshi/jobnudge/internal/dispatch"
	"github.com/hitoshi/jobnudge/internal/message"
	"github.com/hitoshi/jobnudge/internal/metrics"
	"github.com/hitoshi/jobnudge/internal/model"
	"github.com/hitoshi/jobnudge/internal/query"
	"github.com/hitoshi/jobnudge/internal/repository"
	"github.com/hitoshi/jobnudge/internal/security"
)

// --- モック ---

type mockProfileRepo struct {
	markNotifiedFn func(ctx context.Context, userID, expected, fingerprint string) error
	deactivateFn   func(ctx context.Context, userID string) error
}

func (m *mockProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	return nil, nil
}
func (m *mockProfileRepo) Activate(ctx context.Context, userID string) (*model.Profile, error) {
	return nil, nil
}
func (m *mockProfileRepo) Deactivate(ctx context.Context, userID string) error {
	if m.deactivateFn != nil {
		return m.deactivateFn(ctx, userID)
	}
	return nil
}
func (m *mockProfileRepo) UpdatePreferences(ctx context.Context, userID string, patch model.PreferencesPatch) (*model.Profile, error) {
	return nil, nil
}
func (m *mockProfileRepo) ListActive(ctx context.Context) ([]*model.Profile, error) {
	return nil, nil
}
func (m *mockProfileRepo) MarkNotified(ctx context.Context, userID, expected, fingerprint string) error {
	if m.markNotifiedFn != nil {
		return m.markNotifiedFn(ctx, userID, expected, fingerprint)
	}
	return nil
}
func (m *mockProfileRepo) ResetFingerprint(ctx context.Context, userID string) error {
	return nil
}

type mockSender struct {
	calls    int
	lastMsg  dispatch.Message
	dispatch func(recipientID string) dispatch.Result
}

func (m *mockSender) Dispatch(ctx context.Context, kind dispatch.Kind, recipientID string, msg dispatch.Message) dispatch.Result {
	m.calls++
	m.lastMsg = msg
	if m.dispatch != nil {
		return m.dispatch(recipientID)
	}
	return dispatch.Delivered
}

func newTestProcessor(profiles repository.ProfileRepository, sender dispatch.Sender) *Processor {
	return NewProcessor(
		profiles,
		query.NewBuilder("india", ""),
		message.NewRenderer(security.NewTextSanitizer()),
		sender,
		metrics.Nop{},
		slog.New(slog.NewJSONHandler(io.Discard, nil)),
	)
}

func fingerprintFor(p *model.Profile) string {
	return query.Fingerprint(query.NewBuilder("india", "").BuildForProfile(p))
}

// --- テスト ---

func TestShouldNotify(t *testing.T) {
	p := &model.Profile{LastQueryFingerprint: "abc"}

	tests := []struct {
		name        string
		fingerprint string
		want        bool
	}{
		{"空のフィンガープリント", "", false},
		{"前回と同じ", "abc", false},
		{"前回と異なる", "def", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldNotify(p, tt.fingerprint); got != tt.want {
				t.Errorf("ShouldNotify(%q) = %v, want %v", tt.fingerprint, got, tt.want)
			}
		})
	}
}

func TestShouldNotify_FirstAlertForNewProfile(t *testing.T) {
	if !ShouldNotify(&model.Profile{}, "abc") {
		t.Error("a profile that has never been notified should be notified")
	}
}

func TestProcess_NoSkills_Skipped(t *testing.T) {
	sender := &mockSender{}
	proc := newTestProcessor(&mockProfileRepo{}, sender)

	outcome, err := proc.Process(context.Background(), &model.Profile{UserID: "42", Active: true})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if outcome != Skipped || sender.calls != 0 {
		t.Errorf("outcome = %v, calls = %d; want skipped without dispatch", outcome, sender.calls)
	}
}

func TestProcess_UnchangedQuery_Skipped(t *testing.T) {
	sender := &mockSender{}
	proc := newTestProcessor(&mockProfileRepo{}, sender)

	p := &model.Profile{UserID: "42", Skills: "aws devops", Active: true}
	p.LastQueryFingerprint = fingerprintFor(p)

	outcome, _ := proc.Process(context.Background(), p)
	if outcome != Skipped || sender.calls != 0 {
		t.Errorf("outcome = %v, calls = %d; want skipped without dispatch", outcome, sender.calls)
	}
}

// TestProcess_Sent_RecordsFingerprintWithExpectedOld は送信成功後に
// 読み込み時のフィンガープリントを期待値として比較更新することを検証する。
func TestProcess_Sent_RecordsFingerprintWithExpectedOld(t *testing.T) {
	var gotExpected, gotNew string
	repo := &mockProfileRepo{markNotifiedFn: func(ctx context.Context, userID, expected, fingerprint string) error {
		gotExpected, gotNew = expected, fingerprint
		return nil
	}}
	sender := &mockSender{}
	proc := newTestProcessor(repo, sender)

	p := &model.Profile{UserID: "42", Skills: "aws devops", ExpMin: model.Some(3), LastQueryFingerprint: "old"}
	outcome, err := proc.Process(context.Background(), p)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if outcome != Sent || sender.calls != 1 {
		t.Fatalf("outcome = %v, calls = %d; want sent once", outcome, sender.calls)
	}
	if gotExpected != "old" || gotNew != fingerprintFor(p) {
		t.Errorf("MarkNotified(expected=%q, new=%q)", gotExpected, gotNew)
	}
	if len(sender.lastMsg.Actions) != 1 || sender.lastMsg.Actions[0].URL == "" {
		t.Errorf("alert should carry the search link: %+v", sender.lastMsg.Actions)
	}
}

func TestProcess_LostCompareAndSwap_StillSent(t *testing.T) {
	repo := &mockProfileRepo{markNotifiedFn: func(ctx context.Context, userID, expected, fingerprint string) error {
		return repository.ErrStaleFingerprint
	}}
	proc := newTestProcessor(repo, &mockSender{})

	outcome, err := proc.Process(context.Background(), &model.Profile{UserID: "42", Skills: "go"})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if outcome != Sent {
		t.Errorf("outcome = %v, want sent", outcome)
	}
}

func TestProcess_StoreErrorAfterSend_ReturnsError(t *testing.T) {
	repo := &mockProfileRepo{markNotifiedFn: func(ctx context.Context, userID, expected, fingerprint string) error {
		return errors.New("connection refused")
	}}
	proc := newTestProcessor(repo, &mockSender{})

	outcome, err := proc.Process(context.Background(), &model.Profile{UserID: "42", Skills: "go"})
	if err == nil {
		t.Fatal("expected error")
	}
	if outcome != Sent {
		t.Errorf("outcome = %v, want sent", outcome)
	}
}

// TestProcess_TransientFailure_LeavesStateUnchanged は一時的な失敗で
// フィンガープリントが更新されず、次回サイクルで再試行されることを検証する。
func TestProcess_TransientFailure_LeavesStateUnchanged(t *testing.T) {
	marked := false
	repo := &mockProfileRepo{markNotifiedFn: func(ctx context.Context, userID, expected, fingerprint string) error {
		marked = true
		return nil
	}}
	sender := &mockSender{dispatch: func(string) dispatch.Result { return dispatch.Transient }}
	proc := newTestProcessor(repo, sender)

	outcome, err := proc.Process(context.Background(), &model.Profile{UserID: "42", Skills: "go"})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if outcome != TransientFailure || marked {
		t.Errorf("outcome = %v, marked = %v; want transient failure without state change", outcome, marked)
	}
}

func TestProcess_PermanentFailure_DeactivatesProfile(t *testing.T) {
	var deactivated string
	marked := false
	repo := &mockProfileRepo{
		deactivateFn: func(ctx context.Context, userID string) error {
			deactivated = userID
			return nil
		},
		markNotifiedFn: func(ctx context.Context, userID, expected, fingerprint string) error {
			marked = true
			return nil
		},
	}
	sender := &mockSender{dispatch: func(string) dispatch.Result { return dispatch.Permanent }}
	proc := newTestProcessor(repo, sender)

	outcome, err := proc.Process(context.Background(), &model.Profile{UserID: "42", Skills: "go"})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if outcome != Deactivated || deactivated != "42" || marked {
		t.Errorf("outcome = %v, deactivated = %q, marked = %v", outcome, deactivated, marked)
	}
}

func TestOutcome_String(t *testing.T) {
	if Sent.String() != "sent" || TransientFailure.String() != "transient_failure" {
		t.Error("unexpected Outcome string")
	}
}
