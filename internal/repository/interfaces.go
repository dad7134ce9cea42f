// Package repository はデータ永続化のインターフェースを定義する。
// PostgreSQL実装（Postgres*Repo）と組み込みSQLite実装（SQLite*Repo）を提供する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/jobnudge/internal/model"
)

var (
	// ErrNotFound は更新・削除対象の行が存在しないことを表す。
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate は一意キーが既に使われていることを表す。既存の行は変更されない。
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleFingerprint はフィンガープリントの比較更新で期待値が一致しなかったことを表す。
	ErrStaleFingerprint = errors.New("stale fingerprint")
)

// ProfileRepository はプロフィールの永続化インターフェース。
// 単一行の更新はすべて1文のSQLで行い、行単位でアトミックである。
type ProfileRepository interface {
	// FindByUserID は指定ユーザーのプロフィールを取得する。見つからない場合はnilを返す。
	FindByUserID(ctx context.Context, userID string) (*model.Profile, error)

	// Activate はプロフィールを有効化する。存在しない場合は作成する。
	// 既存のスキル・検索条件・フィンガープリントは変更しない（冪等）。
	Activate(ctx context.Context, userID string) (*model.Profile, error)

	// Deactivate はプロフィールを無効化する。行は保持される。
	Deactivate(ctx context.Context, userID string) error

	// UpdatePreferences はpatchで指定された項目だけを1文で更新し、更新後のプロフィールを返す。
	// プロフィールが存在しない場合は有効な状態で作成する。指定のない項目は現在の値を維持する。
	UpdatePreferences(ctx context.Context, userID string, patch model.PreferencesPatch) (*model.Profile, error)

	// ListActive は有効なプロフィールをすべて返す。
	ListActive(ctx context.Context) ([]*model.Profile, error)

	// MarkNotified は最終通知フィンガープリントをexpectedからfingerprintへ比較更新する。
	// 現在値がexpectedと異なる場合はErrStaleFingerprintを返し、行を変更しない。
	MarkNotified(ctx context.Context, userID, expected, fingerprint string) error

	// ResetFingerprint は最終通知フィンガープリントを空に戻す。
	ResetFingerprint(ctx context.Context, userID string) error
}

// LedgerRepository は応募記録の永続化インターフェース。
type LedgerRepository interface {
	// Create は応募記録を作成する。(user_id, company, role)が既に存在する場合は
	// ErrDuplicateを返し、既存の記録は変更しない。
	Create(ctx context.Context, entry *model.LedgerEntry) error

	// FindByKey は複合キーで応募記録を取得する。見つからない場合はnilを返す。
	FindByKey(ctx context.Context, userID, company, role string) (*model.LedgerEntry, error)

	// ListByUserID はユーザーの応募記録を応募日時の昇順で返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.LedgerEntry, error)

	// ListForActiveProfiles は有効なプロフィールに属する応募記録をすべて返す。
	ListForActiveProfiles(ctx context.Context) ([]*model.LedgerEntry, error)

	// UpdateFollowupDays はフォローアップまでの日数を更新する。
	UpdateFollowupDays(ctx context.Context, userID, company, role string, days int) error

	// Delete は応募記録を1件削除する。
	Delete(ctx context.Context, userID, company, role string) error

	// DeleteByUserID はユーザーの応募記録をすべて削除し、削除件数を返す。
	DeleteByUserID(ctx context.Context, userID string) (int64, error)
}

// ActionRepository は構造化アクション履歴の永続化インターフェース。
type ActionRepository interface {
	// Create はアクション履歴を1件追加する。
	Create(ctx context.Context, action *model.JobAction) error

	// CountSince はsince以降のアクション件数をユーザー・種別ごとに集計する。
	CountSince(ctx context.Context, since time.Time) ([]model.ActionCount, error)

	// DeleteBefore はbeforeより前のアクション履歴を削除し、削除件数を返す。
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
