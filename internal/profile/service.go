// Package profile はプロフィールに対するオンデマンドのコマンド処理を提供する。
// 購読の開始・停止、検索条件の変更、通知状態のリセット、即時確認を含む。
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hitoshi/jobnudge/internal/alert"
	"github.com/hitoshi/jobnudge/internal/model"
	"github.com/hitoshi/jobnudge/internal/query"
	"github.com/hitoshi/jobnudge/internal/repository"
)

// AlertProcessor はプロフィール1件分のアラート処理の抽象。
type AlertProcessor interface {
	Process(ctx context.Context, p *model.Profile) (alert.Outcome, error)
}

// PreferencesInput は検索条件の変更内容。nilの項目は現在の値を維持する。
type PreferencesInput struct {
	Skills     *string
	Location   *string
	Experience *string
	WorkMode   *string
}

// View はユーザーに表示するプロフィール情報。未設定の項目は"Any"で表す。
type View struct {
	UserID     string
	Active     bool
	Skills     string
	Location   string
	Experience string
	WorkMode   string
	SearchURL  string
}

// Service はプロフィールのコマンド処理を行うサービス層。
type Service struct {
	profiles  repository.ProfileRepository
	builder   *query.Builder
	processor AlertProcessor
	expBounds ExperienceRange
	logger    *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	profiles repository.ProfileRepository,
	builder *query.Builder,
	processor AlertProcessor,
	expBounds ExperienceRange,
	logger *slog.Logger,
) *Service {
	return &Service{
		profiles:  profiles,
		builder:   builder,
		processor: processor,
		expBounds: expBounds,
		logger:    logger,
	}
}

// Activate は購読を開始する。初回はプロフィールを作成し、
// 既存の場合は有効フラグのみを立てて検索条件と通知状態を維持する。
func (s *Service) Activate(ctx context.Context, userID string) (*View, error) {
	p, err := s.profiles.Activate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("購読の開始に失敗しました: %w", err)
	}
	s.logger.Info("購読を開始しました", slog.String("user_id", userID))
	return s.view(p), nil
}

// Deactivate は購読を停止する。プロフィールは保持される。
func (s *Service) Deactivate(ctx context.Context, userID string) error {
	err := s.profiles.Deactivate(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewProfileNotFoundError()
	}
	if err != nil {
		return fmt.Errorf("購読の停止に失敗しました: %w", err)
	}
	s.logger.Info("購読を停止しました", slog.String("user_id", userID))
	return nil
}

// Get はプロフィールの表示情報を返す。
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	p, err := s.find(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(p), nil
}

// UpdatePreferences は検索条件を検証して更新する。
// プロフィールが存在しない場合は有効な状態で作成する。
// 入力に1つでも不正な項目があれば何も変更しない。指定のない項目はストア上の現在の値を維持する。
func (s *Service) UpdatePreferences(ctx context.Context, userID string, in PreferencesInput) (*View, error) {
	patch, err := s.patch(in)
	if err != nil {
		return nil, err
	}

	p, err := s.profiles.UpdatePreferences(ctx, userID, patch)
	if err != nil {
		return nil, fmt.Errorf("検索条件の更新に失敗しました: %w", err)
	}

	s.logger.Info("検索条件を更新しました", slog.String("user_id", userID))
	return s.view(p), nil
}

// patch は入力を検証して部分更新に変換する。検証に失敗した場合は*model.APIErrorを返す。
func (s *Service) patch(in PreferencesInput) (model.PreferencesPatch, error) {
	var pp model.PreferencesPatch
	if in.Skills != nil {
		skills := strings.Join(strings.Fields(*in.Skills), " ")
		if skills == "" {
			return pp, model.NewEmptySkillsError()
		}
		pp.Values.Skills, pp.SetSkills = skills, true
	}
	if in.Location != nil {
		loc := strings.Join(strings.Fields(*in.Location), " ")
		if loc == "" || strings.EqualFold(loc, "any") {
			pp.Values.Location = model.None[string]()
		} else {
			pp.Values.Location = model.Some(loc)
		}
		pp.SetLocation = true
	}
	if in.Experience != nil {
		lo, hi, err := ParseExperience(*in.Experience, s.expBounds)
		if err != nil {
			return pp, err
		}
		pp.Values.ExpMin, pp.Values.ExpMax, pp.SetExperience = lo, hi, true
	}
	if in.WorkMode != nil {
		mode, err := query.ParseWorkMode(*in.WorkMode)
		if err != nil {
			return pp, err
		}
		pp.Values.WorkMode, pp.SetWorkMode = mode, true
	}
	return pp, nil
}

// Refresh は最後に通知したフィンガープリントを消去する。
// 次回のアラートサイクルで現在の条件のアラートが再送される。
func (s *Service) Refresh(ctx context.Context, userID string) error {
	err := s.profiles.ResetFingerprint(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewProfileNotFoundError()
	}
	if err != nil {
		return fmt.Errorf("通知状態のリセットに失敗しました: %w", err)
	}
	return nil
}

// CheckNow はアラートサイクルと同じ処理をこのプロフィールだけに対して実行する。
func (s *Service) CheckNow(ctx context.Context, userID string) (alert.Outcome, error) {
	p, err := s.find(ctx, userID)
	if err != nil {
		return alert.Skipped, err
	}
	outcome, err := s.processor.Process(ctx, p)
	if err != nil {
		return outcome, fmt.Errorf("アラートの確認に失敗しました: %w", err)
	}
	return outcome, nil
}

func (s *Service) find(ctx context.Context, userID string) (*model.Profile, error) {
	p, err := s.profiles.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}
	if p == nil {
		return nil, model.NewProfileNotFoundError()
	}
	return p, nil
}

func (s *Service) view(p *model.Profile) *View {
	return &View{
		UserID:     p.UserID,
		Active:     p.Active,
		Skills:     p.SkillsLabel(),
		Location:   p.LocationLabel(),
		Experience: p.ExperienceLabel(),
		WorkMode:   p.WorkModeLabel(),
		SearchURL:  s.builder.BuildForProfile(p).URL,
	}
}
