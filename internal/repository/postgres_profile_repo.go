package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/jobnudge/internal/model"
)

const profileColumns = `user_id, skills, location, exp_min, exp_max, work_mode, active, last_query_fingerprint, created_at, updated_at`

// PostgresProfileRepo はPostgreSQLを使用したプロフィールリポジトリ。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByUserID はユーザーIDでプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`,
		userID,
	)
	p, err := scanPostgresProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	return p, nil
}

// Activate はプロフィールを有効化する。存在しない場合は作成する。
func (r *PostgresProfileRepo) Activate(ctx context.Context, userID string) (*model.Profile, error) {
	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO profiles (user_id, active, created_at, updated_at)
		 VALUES ($1, TRUE, $2, $2)
		 ON CONFLICT (user_id) DO UPDATE SET active = TRUE, updated_at = EXCLUDED.updated_at
		 RETURNING `+profileColumns,
		userID, now,
	)
	p, err := scanPostgresProfile(row)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの有効化に失敗しました: %w", err)
	}
	return p, nil
}

// Deactivate はプロフィールを無効化する。
func (r *PostgresProfileRepo) Deactivate(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET active = FALSE, updated_at = $2 WHERE user_id = $1`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("プロフィールの無効化に失敗しました: %w", err)
	}
	return checkAffected(result)
}

// UpdatePreferences は検索条件の部分更新を1文のupsertで行う。
// 未指定項目は既存行の値を残す。
func (r *PostgresProfileRepo) UpdatePreferences(ctx context.Context, userID string, patch model.PreferencesPatch) (*model.Profile, error) {
	v := patch.Values
	now := time.Now().UTC()
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO profiles (user_id, skills, location, exp_min, exp_max, work_mode, active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $7)
		 ON CONFLICT (user_id) DO UPDATE SET
		   skills     = CASE WHEN $8::boolean THEN EXCLUDED.skills ELSE profiles.skills END,
		   location   = CASE WHEN $9::boolean THEN EXCLUDED.location ELSE profiles.location END,
		   exp_min    = CASE WHEN $10::boolean THEN EXCLUDED.exp_min ELSE profiles.exp_min END,
		   exp_max    = CASE WHEN $10::boolean THEN EXCLUDED.exp_max ELSE profiles.exp_max END,
		   work_mode  = CASE WHEN $11::boolean THEN EXCLUDED.work_mode ELSE profiles.work_mode END,
		   updated_at = EXCLUDED.updated_at
		 RETURNING `+profileColumns,
		userID, v.Skills, nullString(v.Location), nullInt(v.ExpMin), nullInt(v.ExpMax), string(v.WorkMode), now,
		patch.SetSkills, patch.SetLocation, patch.SetExperience, patch.SetWorkMode,
	)
	p, err := scanPostgresProfile(row)
	if err != nil {
		return nil, fmt.Errorf("検索条件の更新に失敗しました: %w", err)
	}
	return p, nil
}

// ListActive は有効なプロフィールをユーザーID順に返す。
func (r *PostgresProfileRepo) ListActive(ctx context.Context) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE active = TRUE ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("有効なプロフィール一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		p, err := scanPostgresProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("プロフィールのスキャンに失敗しました: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("プロフィール一覧の走査に失敗しました: %w", err)
	}
	return profiles, nil
}

// MarkNotified は最終通知フィンガープリントを比較更新する。
func (r *PostgresProfileRepo) MarkNotified(ctx context.Context, userID, expected, fingerprint string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET last_query_fingerprint = $3, updated_at = $4
		 WHERE user_id = $1 AND last_query_fingerprint = $2`,
		userID, expected, fingerprint, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("通知フィンガープリントの更新に失敗しました: %w", err)
	}
	if err := checkAffected(result); err == ErrNotFound {
		return ErrStaleFingerprint
	} else if err != nil {
		return fmt.Errorf("通知フィンガープリントの更新結果の確認に失敗しました: %w", err)
	}
	return nil
}

// ResetFingerprint は最終通知フィンガープリントを空に戻す。
func (r *PostgresProfileRepo) ResetFingerprint(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET last_query_fingerprint = '', updated_at = $2 WHERE user_id = $1`,
		userID, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("通知フィンガープリントのリセットに失敗しました: %w", err)
	}
	return checkAffected(result)
}

func scanPostgresProfile(s rowScanner) (*model.Profile, error) {
	p := &model.Profile{}
	var location sql.NullString
	var expMin, expMax sql.NullInt64
	var workMode string

	if err := s.Scan(
		&p.UserID, &p.Skills, &location, &expMin, &expMax, &workMode,
		&p.Active, &p.LastQueryFingerprint, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Location = optionalString(location)
	p.ExpMin = optionalInt(expMin)
	p.ExpMax = optionalInt(expMax)
	p.WorkMode = model.WorkMode(workMode)
	return p, nil
}

// コンパイル時にインターフェースの実装を検証する
var _ ProfileRepository = (*PostgresProfileRepo)(nil)
