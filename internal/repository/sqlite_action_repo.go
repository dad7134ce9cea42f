package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/jobnudge/internal/followup"
	"github.com/hitoshi/jobnudge/internal/model"
)

// SQLiteActionRepo は組み込みSQLiteを使用したアクション履歴リポジトリ。
type SQLiteActionRepo struct {
	db *sql.DB
}

// NewSQLiteActionRepo はSQLiteActionRepoを生成する。
func NewSQLiteActionRepo(db *sql.DB) *SQLiteActionRepo {
	return &SQLiteActionRepo{db: db}
}

// Create はアクション履歴を1件追加する。
func (r *SQLiteActionRepo) Create(ctx context.Context, action *model.JobAction) error {
	prepareAction(action)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO job_actions (id, user_id, company, role, action, action_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		action.ID, action.UserID, action.Company, action.Role, string(action.Action),
		followup.FormatStoredTime(action.ActionAt),
	)
	if err != nil {
		return fmt.Errorf("アクション履歴の作成に失敗しました: %w", err)
	}
	return nil
}

// CountSince はsince以降のアクション件数をユーザー・種別ごとに集計する。
// action_atは固定幅文字列のため文字列比較で時刻順に絞り込める。
func (r *SQLiteActionRepo) CountSince(ctx context.Context, since time.Time) ([]model.ActionCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, action, COUNT(*)
		 FROM job_actions
		 WHERE action_at >= ?
		 GROUP BY user_id, action
		 ORDER BY user_id, action`,
		followup.FormatStoredTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("アクション件数の集計に失敗しました: %w", err)
	}
	return collectActionCounts(rows)
}

// DeleteBefore はbeforeより前のアクション履歴を削除し、削除件数を返す。
func (r *SQLiteActionRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM job_actions WHERE action_at < ?`,
		followup.FormatStoredTime(before),
	)
	if err != nil {
		return 0, fmt.Errorf("古いアクション履歴の削除に失敗しました: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return n, nil
}

// コンパイル時にインターフェースの実装を検証する
var _ ActionRepository = (*SQLiteActionRepo)(nil)
