package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/jobnudge/internal/followup"
	"github.com/hitoshi/jobnudge/internal/model"
)

// SQLiteLedgerRepo は組み込みSQLiteを使用した応募記録リポジトリ。
type SQLiteLedgerRepo struct {
	db *sql.DB
}

// NewSQLiteLedgerRepo はSQLiteLedgerRepoを生成する。
func NewSQLiteLedgerRepo(db *sql.DB) *SQLiteLedgerRepo {
	return &SQLiteLedgerRepo{db: db}
}

// Create は応募記録を作成する。重複時はErrDuplicateを返し、既存の記録は変更しない。
func (r *SQLiteLedgerRepo) Create(ctx context.Context, entry *model.LedgerEntry) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO applied_jobs (user_id, company, role, applied_at, followup_after_days, link)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, company, role) DO NOTHING`,
		entry.UserID, entry.Company, entry.Role, followup.FormatStoredTime(entry.AppliedAt),
		entry.FollowupAfterDays, nullString(entry.Link),
	)
	if err != nil {
		return fmt.Errorf("応募記録の作成に失敗しました: %w", err)
	}
	if err := checkAffected(result); err == ErrNotFound {
		return ErrDuplicate
	} else if err != nil {
		return fmt.Errorf("応募記録の作成結果の確認に失敗しました: %w", err)
	}
	return nil
}

// FindByKey は複合キーで応募記録を取得する。見つからない場合はnilを返す。
func (r *SQLiteLedgerRepo) FindByKey(ctx context.Context, userID, company, role string) (*model.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ledgerColumns+` FROM applied_jobs WHERE user_id = ? AND company = ? AND role = ?`,
		userID, company, role,
	)
	e, err := scanSQLiteLedgerEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("応募記録の取得に失敗しました: %w", err)
	}
	return e, nil
}

// ListByUserID はユーザーの応募記録を応募日時の昇順で返す。
func (r *SQLiteLedgerRepo) ListByUserID(ctx context.Context, userID string) ([]*model.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ledgerColumns+` FROM applied_jobs WHERE user_id = ? ORDER BY applied_at, company, role`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("応募記録一覧の取得に失敗しました: %w", err)
	}
	return collectSQLiteLedgerEntries(rows)
}

// ListForActiveProfiles は有効なプロフィールに属する応募記録をすべて返す。
func (r *SQLiteLedgerRepo) ListForActiveProfiles(ctx context.Context) ([]*model.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT a.user_id, a.company, a.role, a.applied_at, a.followup_after_days, a.link
		 FROM applied_jobs a
		 INNER JOIN profiles p ON p.user_id = a.user_id
		 WHERE p.active = 1
		 ORDER BY a.user_id, a.applied_at, a.company, a.role`,
	)
	if err != nil {
		return nil, fmt.Errorf("有効なプロフィールの応募記録一覧の取得に失敗しました: %w", err)
	}
	return collectSQLiteLedgerEntries(rows)
}

// UpdateFollowupDays はフォローアップまでの日数を更新する。
func (r *SQLiteLedgerRepo) UpdateFollowupDays(ctx context.Context, userID, company, role string, days int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE applied_jobs SET followup_after_days = ?
		 WHERE user_id = ? AND company = ? AND role = ?`,
		days, userID, company, role,
	)
	if err != nil {
		return fmt.Errorf("フォローアップ日数の更新に失敗しました: %w", err)
	}
	return checkAffected(result)
}

// Delete は応募記録を1件削除する。
func (r *SQLiteLedgerRepo) Delete(ctx context.Context, userID, company, role string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM applied_jobs WHERE user_id = ? AND company = ? AND role = ?`,
		userID, company, role,
	)
	if err != nil {
		return fmt.Errorf("応募記録の削除に失敗しました: %w", err)
	}
	return checkAffected(result)
}

// DeleteByUserID はユーザーの応募記録をすべて削除する。
func (r *SQLiteLedgerRepo) DeleteByUserID(ctx context.Context, userID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM applied_jobs WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("応募記録の一括削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n, nil
}

func scanSQLiteLedgerEntry(s rowScanner) (*model.LedgerEntry, error) {
	e := &model.LedgerEntry{}
	var appliedAt string
	var link sql.NullString
	if err := s.Scan(&e.UserID, &e.Company, &e.Role, &appliedAt, &e.FollowupAfterDays, &link); err != nil {
		return nil, err
	}
	t, err := followup.ParseStoredTime(appliedAt)
	if err != nil {
		return nil, err
	}
	e.AppliedAt = t
	e.Link = optionalString(link)
	return e, nil
}

func collectSQLiteLedgerEntries(rows *sql.Rows) ([]*model.LedgerEntry, error) {
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		e, err := scanSQLiteLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("応募記録のスキャンに失敗しました: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("応募記録一覧の走査に失敗しました: %w", err)
	}
	return entries, nil
}

// コンパイル時にインターフェースの実装を検証する
var _ LedgerRepository = (*SQLiteLedgerRepo)(nil)
