package cleanup

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"
)

// mockPruner はPrunerのモック実装。
type mockPruner struct {
	called  bool
	before  time.Time
	deleted int64
	err     error
}

func (m *mockPruner) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	m.called = true
	m.before = before
	return m.deleted, m.err
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// logHasField はJSONログのいずれかの行にkey=wantが含まれるかを返す。
func logHasField(buf *bytes.Buffer, key string, want interface{}) bool {
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if v, ok := entry[key]; ok && (want == nil || v == want) {
			return true
		}
	}
	return false
}

func TestNewCleanupJob_SetsRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockPruner{}, newTestLogger(&buf))

	if job.RetentionDays != 180 {
		t.Errorf("RetentionDays = %d, want 180", job.RetentionDays)
	}
	if job.Name() != "cleanup" {
		t.Errorf("Name() = %q, want cleanup", job.Name())
	}
}

func TestCleanupJob_RunOnce_UsesRetentionCutoff(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2026, 6, 30, 3, 0, 0, 0, time.UTC)
	mock := &mockPruner{}
	job := NewCleanupJob(mock, newTestLogger(&buf))
	job.now = func() time.Time { return now }

	if err := job.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() がエラーを返した: %v", err)
	}
	if !mock.called {
		t.Fatal("DeleteBefore が呼び出されなかった")
	}
	if want := now.AddDate(0, 0, -180); !mock.before.Equal(want) {
		t.Errorf("before = %v, want %v", mock.before, want)
	}
}

// TestCleanupJob_CustomRetentionDays はRetentionDaysをカスタマイズした場合のテスト。
func TestCleanupJob_CustomRetentionDays(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2026, 6, 30, 3, 0, 0, 0, time.UTC)
	mock := &mockPruner{}
	job := NewCleanupJob(mock, newTestLogger(&buf))
	job.RetentionDays = 90 // カスタム保持日数
	job.now = func() time.Time { return now }

	_ = job.RunOnce(context.Background())

	if want := now.AddDate(0, 0, -90); !mock.before.Equal(want) {
		t.Errorf("before = %v, want %v", mock.before, want)
	}
}

func TestCleanupJob_RunOnce_LogsDeletedCount(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockPruner{deleted: 42}, newTestLogger(&buf))

	_ = job.RunOnce(context.Background())

	if !logHasField(&buf, "deleted_count", float64(42)) {
		t.Errorf("ログに deleted_count=42 が記録されていない。ログ出力: %s", buf.String())
	}
	if !logHasField(&buf, "retention_days", float64(180)) {
		t.Errorf("ログに retention_days=180 が記録されていない。ログ出力: %s", buf.String())
	}
	if !logHasField(&buf, "duration_ms", nil) {
		t.Errorf("ログに duration_ms が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_RunOnce_ReturnsErrorOnDBFailure(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockPruner{err: sql.ErrConnDone}, newTestLogger(&buf))

	err := job.RunOnce(context.Background())
	if err == nil {
		t.Fatal("DBエラー時に RunOnce() は nil でないエラーを返すべき")
	}
	if !strings.Contains(err.Error(), "sql: connection is already closed") {
		t.Errorf("エラーメッセージが期待と異なる: %v", err)
	}
	if !strings.Contains(buf.String(), "ERROR") {
		t.Errorf("エラー時にERRORレベルのログが記録されていない。ログ出力: %s", buf.String())
	}
}

func TestCleanupJob_RunOnce_Idempotent_ZeroRows(t *testing.T) {
	var buf bytes.Buffer
	job := NewCleanupJob(&mockPruner{}, newTestLogger(&buf))

	// 削除対象がなくてもエラーにならない
	for i := 0; i < 2; i++ {
		if err := job.RunOnce(context.Background()); err != nil {
			t.Fatalf("%d回目の RunOnce() がエラーを返した: %v", i+1, err)
		}
	}
	if !logHasField(&buf, "deleted_count", float64(0)) {
		t.Errorf("0件削除時にもログに deleted_count=0 が記録されるべき。ログ出力: %s", buf.String())
	}
}
