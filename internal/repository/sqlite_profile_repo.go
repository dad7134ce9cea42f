package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/jobnudge/internal/followup"
	"github.com/hitoshi/jobnudge/internal/model"
)

// SQLiteProfileRepo は組み込みSQLiteを使用したプロフィールリポジトリ。
// タイムスタンプはUTCの固定幅文字列として保存する。
type SQLiteProfileRepo struct {
	db *sql.DB
}

// NewSQLiteProfileRepo はSQLiteProfileRepoを生成する。
func NewSQLiteProfileRepo(db *sql.DB) *SQLiteProfileRepo {
	return &SQLiteProfileRepo{db: db}
}

// FindByUserID はユーザーIDでプロフィールを取得する。見つからない場合はnilを返す。
func (r *SQLiteProfileRepo) FindByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = ?`,
		userID,
	)
	p, err := scanSQLiteProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	return p, nil
}

// Activate はプロフィールを有効化する。存在しない場合は作成する。
func (r *SQLiteProfileRepo) Activate(ctx context.Context, userID string) (*model.Profile, error) {
	now := followup.FormatStoredTime(time.Now())
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO profiles (user_id, active, created_at, updated_at)
		 VALUES (?1, 1, ?2, ?2)
		 ON CONFLICT (user_id) DO UPDATE SET active = 1, updated_at = excluded.updated_at
		 RETURNING `+profileColumns,
		userID, now,
	)
	p, err := scanSQLiteProfile(row)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの有効化に失敗しました: %w", err)
	}
	return p, nil
}

// Deactivate はプロフィールを無効化する。
func (r *SQLiteProfileRepo) Deactivate(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET active = 0, updated_at = ? WHERE user_id = ?`,
		followup.FormatStoredTime(time.Now()), userID,
	)
	if err != nil {
		return fmt.Errorf("プロフィールの無効化に失敗しました: %w", err)
	}
	return checkAffected(result)
}

// UpdatePreferences は検索条件の部分更新を1文のupsertで行う。
// 既存行の未指定項目はCASE式で現在の値を残すため、同時に別項目を更新しても失われない。
func (r *SQLiteProfileRepo) UpdatePreferences(ctx context.Context, userID string, patch model.PreferencesPatch) (*model.Profile, error) {
	v := patch.Values
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO profiles (user_id, skills, location, exp_min, exp_max, work_mode, active, created_at, updated_at)
		 VALUES (?1, ?2, ?3, ?4, ?5, ?6, 1, ?7, ?7)
		 ON CONFLICT (user_id) DO UPDATE SET
		   skills     = CASE WHEN ?8 THEN excluded.skills ELSE profiles.skills END,
		   location   = CASE WHEN ?9 THEN excluded.location ELSE profiles.location END,
		   exp_min    = CASE WHEN ?10 THEN excluded.exp_min ELSE profiles.exp_min END,
		   exp_max    = CASE WHEN ?10 THEN excluded.exp_max ELSE profiles.exp_max END,
		   work_mode  = CASE WHEN ?11 THEN excluded.work_mode ELSE profiles.work_mode END,
		   updated_at = excluded.updated_at
		 RETURNING `+profileColumns,
		userID, v.Skills, nullString(v.Location), nullInt(v.ExpMin), nullInt(v.ExpMax), string(v.WorkMode),
		followup.FormatStoredTime(time.Now()),
		patch.SetSkills, patch.SetLocation, patch.SetExperience, patch.SetWorkMode,
	)
	p, err := scanSQLiteProfile(row)
	if err != nil {
		return nil, fmt.Errorf("検索条件の更新に失敗しました: %w", err)
	}
	return p, nil
}

// ListActive は有効なプロフィールをユーザーID順に返す。
func (r *SQLiteProfileRepo) ListActive(ctx context.Context) ([]*model.Profile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE active = 1 ORDER BY user_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("有効なプロフィール一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var profiles []*model.Profile
	for rows.Next() {
		p, err := scanSQLiteProfile(rows)
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
func (r *SQLiteProfileRepo) MarkNotified(ctx context.Context, userID, expected, fingerprint string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET last_query_fingerprint = ?, updated_at = ?
		 WHERE user_id = ? AND last_query_fingerprint = ?`,
		fingerprint, followup.FormatStoredTime(time.Now()), userID, expected,
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
func (r *SQLiteProfileRepo) ResetFingerprint(ctx context.Context, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET last_query_fingerprint = '', updated_at = ? WHERE user_id = ?`,
		followup.FormatStoredTime(time.Now()), userID,
	)
	if err != nil {
		return fmt.Errorf("通知フィンガープリントのリセットに失敗しました: %w", err)
	}
	return checkAffected(result)
}

func scanSQLiteProfile(s rowScanner) (*model.Profile, error) {
	p := &model.Profile{}
	var location sql.NullString
	var expMin, expMax sql.NullInt64
	var workMode, createdAt, updatedAt string

	if err := s.Scan(
		&p.UserID, &p.Skills, &location, &expMin, &expMax, &workMode,
		&p.Active, &p.LastQueryFingerprint, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if p.CreatedAt, err = followup.ParseStoredTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = followup.ParseStoredTime(updatedAt); err != nil {
		return nil, err
	}
	p.Location = optionalString(location)
	p.ExpMin = optionalInt(expMin)
	p.ExpMax = optionalInt(expMax)
	p.WorkMode = model.WorkMode(workMode)
	return p, nil
}

// コンパイル時にインターフェースの実装を検証する
var _ ProfileRepository = (*SQLiteProfileRepo)(nil)
