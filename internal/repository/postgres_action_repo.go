package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/jobnudge/internal/model"
)

// PostgresActionRepo はPostgreSQLを使用したアクション履歴リポジトリ。
type PostgresActionRepo struct {
	db *sql.DB
}

// NewPostgresActionRepo はPostgresActionRepoを生成する。
func NewPostgresActionRepo(db *sql.DB) *PostgresActionRepo {
	return &PostgresActionRepo{db: db}
}

// Create はアクション履歴を1件追加する。IDと日時が未設定の場合は補完する。
func (r *PostgresActionRepo) Create(ctx context.Context, action *model.JobAction) error {
	prepareAction(action)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO job_actions (id, user_id, company, role, action, action_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		action.ID, action.UserID, action.Company, action.Role, string(action.Action), action.ActionAt,
	)
	if err != nil {
		return fmt.Errorf("アクション履歴の作成に失敗しました: %w", err)
	}
	return nil
}

// CountSince はsince以降のアクション件数をユーザー・種別ごとに集計する。
func (r *PostgresActionRepo) CountSince(ctx context.Context, since time.Time) ([]model.ActionCount, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, action, COUNT(*)
		 FROM job_actions
		 WHERE action_at >= $1
		 GROUP BY user_id, action
		 ORDER BY user_id, action`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("アクション件数の集計に失敗しました: %w", err)
	}
	return collectActionCounts(rows)
}

// DeleteBefore はbeforeより前のアクション履歴を削除し、削除件数を返す。
func (r *PostgresActionRepo) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM job_actions WHERE action_at < $1`,
		before.UTC(),
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

// prepareAction はIDと日時のデフォルト値を補完する。
func prepareAction(action *model.JobAction) {
	if action.ID == "" {
		action.ID = uuid.New().String()
	}
	if action.ActionAt.IsZero() {
		action.ActionAt = time.Now()
	}
	action.ActionAt = action.ActionAt.UTC()
}

func collectActionCounts(rows *sql.Rows) ([]model.ActionCount, error) {
	defer rows.Close()

	var counts []model.ActionCount
	for rows.Next() {
		var c model.ActionCount
		var action string
		if err := rows.Scan(&c.UserID, &action, &c.Count); err != nil {
			return nil, fmt.Errorf("アクション件数のスキャンに失敗しました: %w", err)
		}
		c.Action = model.ActionKind(action)
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("アクション件数の走査に失敗しました: %w", err)
	}
	return counts, nil
}

// コンパイル時にインターフェースの実装を検証する
var _ ActionRepository = (*PostgresActionRepo)(nil)
