// Package ledger は応募記録（Applied-Job Ledger）に対するオンデマンドのコマンド処理を提供する。
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/jobnudge/internal/followup"
	"github.com/hitoshi/jobnudge/internal/message"
	"github.com/hitoshi/jobnudge/internal/model"
	"github.com/hitoshi/jobnudge/internal/repository"
	"github.com/hitoshi/jobnudge/internal/security"
)

// Item は一覧表示用の応募記録。期日判定は表示のためだけに行い、状態は変更しない。
type Item struct {
	Entry *model.LedgerEntry
	DueAt time.Time
	Due   bool
}

// Service は応募記録のサービス層。
type Service struct {
	entries     repository.LedgerRepository
	linkGuard   security.LinkGuard
	defaultDays int
	logger      *slog.Logger
	now         func() time.Time
}

// NewService はServiceを生成する。defaultDaysは日数未指定時のフォローアップ日数。
func NewService(
	entries repository.LedgerRepository,
	linkGuard security.LinkGuard,
	defaultDays int,
	logger *slog.Logger,
) *Service {
	if defaultDays < 1 {
		defaultDays = model.DefaultFollowupAfterDays
	}
	return &Service{
		entries:     entries,
		linkGuard:   linkGuard,
		defaultDays: defaultDays,
		logger:      logger,
		now:         time.Now,
	}
}

// Record は応募記録を追加する。daysが0の場合は既定日数を使う。
// 同じ会社・職種の記録が既にある場合は既存の記録を変更せずにエラーを返す。
func (s *Service) Record(ctx context.Context, userID, company, role, link string, days int) (*model.LedgerEntry, error) {
	company, role = normalize(company), normalize(role)
	if company == "" || role == "" {
		return nil, model.NewInvalidApplicationError()
	}
	if days == 0 {
		days = s.defaultDays
	}
	if days < 1 {
		return nil, model.NewInvalidFollowupDaysError(days)
	}

	entry := &model.LedgerEntry{
		UserID:            userID,
		Company:           company,
		Role:              role,
		AppliedAt:         s.now().UTC(),
		FollowupAfterDays: days,
	}
	if link = strings.TrimSpace(link); link != "" {
		if err := s.linkGuard.ValidateLink(link); err != nil {
			return nil, model.NewInvalidLinkError(err.Error())
		}
		entry.Link = model.Some(link)
	}

	err := s.entries.Create(ctx, entry)
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, model.NewDuplicateApplicationError(company, role)
	}
	if err != nil {
		return nil, fmt.Errorf("応募記録の追加に失敗しました: %w", err)
	}

	s.logger.Info("応募記録を追加しました",
		slog.String("user_id", userID),
		slog.String("company", company),
		slog.String("role", role),
		slog.Int("followup_after_days", days),
	)
	return entry, nil
}

// SetFollowupDays は既存の応募記録のフォローアップ日数を変更する。
func (s *Service) SetFollowupDays(ctx context.Context, userID, company, role string, days int) error {
	company, role = normalize(company), normalize(role)
	if company == "" || role == "" {
		return model.NewInvalidApplicationError()
	}
	if days < 1 {
		return model.NewInvalidFollowupDaysError(days)
	}

	err := s.entries.UpdateFollowupDays(ctx, userID, company, role, days)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewApplicationNotFoundError(company, role)
	}
	if err != nil {
		return fmt.Errorf("フォローアップ日数の更新に失敗しました: %w", err)
	}
	return nil
}

// Remove は応募記録を1件削除する。
func (s *Service) Remove(ctx context.Context, userID, company, role string) error {
	company, role = normalize(company), normalize(role)
	if company == "" || role == "" {
		return model.NewInvalidApplicationError()
	}

	err := s.entries.Delete(ctx, userID, company, role)
	if errors.Is(err, repository.ErrNotFound) {
		return model.NewApplicationNotFoundError(company, role)
	}
	if err != nil {
		return fmt.Errorf("応募記録の削除に失敗しました: %w", err)
	}

	s.logger.Info("応募記録を削除しました",
		slog.String("user_id", userID),
		slog.String("company", company),
		slog.String("role", role),
	)
	return nil
}

// Clear はユーザーの応募記録をすべて削除し、削除件数を返す。
func (s *Service) Clear(ctx context.Context, userID string) (int64, error) {
	n, err := s.entries.DeleteByUserID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("応募記録の一括削除に失敗しました: %w", err)
	}
	s.logger.Info("応募記録をすべて削除しました", slog.String("user_id", userID), slog.Int64("count", n))
	return n, nil
}

// List はユーザーの応募記録を期日情報付きで返す。
func (s *Service) List(ctx context.Context, userID string) ([]Item, error) {
	entries, err := s.entries.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("応募記録の取得に失敗しました: %w", err)
	}

	now := s.now()
	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = NewItem(e, now)
	}
	return items, nil
}

// NewItem はnow時点の期日情報を付けたItemを返す。
func NewItem(e *model.LedgerEntry, now time.Time) Item {
	return Item{
		Entry: e,
		DueAt: followup.DueAt(e.AppliedAt, e.FollowupAfterDays),
		Due:   followup.IsDue(e.AppliedAt, e.FollowupAfterDays, now),
	}
}

// FollowupTemplate はフォローアップ連絡の文面テンプレートを返す。
func (s *Service) FollowupTemplate(company, role string) string {
	return message.FollowupTemplate(normalize(company), normalize(role))
}

// normalize は前後の空白を除去し、連続する空白を1つにまとめる。
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
