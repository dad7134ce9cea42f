// Package summary は週次の活動サマリーサイクルを提供する。
package summary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/jobnudge/internal/dispatch"
	"github.com/hitoshi/jobnudge/internal/message"
	"github.com/hitoshi/jobnudge/internal/metrics"
	"github.com/hitoshi/jobnudge/internal/model"
	"github.com/hitoshi/jobnudge/internal/repository"
	"github.com/hitoshi/jobnudge/internal/worker/schedule"
)

// Window は集計対象の期間。
const Window = 7 * 24 * time.Hour

type userCounts struct {
	userID string
	counts map[model.ActionKind]int
}

// Cycle は直近1週間のアクション件数をユーザーごとに送るサイクル。
// 期間内にアクションがないユーザーと、購読を停止したユーザーには送らない。
type Cycle struct {
	actions        repository.ActionRepository
	profiles       repository.ProfileRepository
	renderer       *message.Renderer
	sender         dispatch.Sender
	metrics        metrics.MetricsCollector
	logger         *slog.Logger
	maxConcurrency int
	now            func() time.Time
}

// NewCycle はCycleを生成する。
func NewCycle(
	actions repository.ActionRepository,
	profiles repository.ProfileRepository,
	renderer *message.Renderer,
	sender dispatch.Sender,
	m metrics.MetricsCollector,
	logger *slog.Logger,
	maxConcurrency int,
) *Cycle {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Cycle{
		actions:        actions,
		profiles:       profiles,
		renderer:       renderer,
		sender:         sender,
		metrics:        m,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		now:            time.Now,
	}
}

// Name はschedule.Cycleを実装する。
func (c *Cycle) Name() string {
	return schedule.CycleSummary
}

// RunOnce はschedule.Cycleを実装する。
func (c *Cycle) RunOnce(ctx context.Context) error {
	rows, err := c.actions.CountSince(ctx, c.now().Add(-Window))
	if err != nil {
		return fmt.Errorf("アクション件数の集計に失敗しました: %w", err)
	}

	active, err := c.profiles.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("有効なプロフィールの取得に失敗しました: %w", err)
	}
	activeIDs := make(map[string]bool, len(active))
	for _, p := range active {
		activeIDs[p.UserID] = true
	}

	users := groupByUser(rows, activeIDs)
	schedule.ForEach(ctx, users, c.maxConcurrency, c.logger, func(ctx context.Context, u userCounts) {
		c.metrics.RecordCycleItem(schedule.CycleSummary, c.send(ctx, u))
	})

	c.logger.Info("週次サマリーサイクルの集計", slog.Int("recipient_count", len(users)))
	return nil
}

func (c *Cycle) send(ctx context.Context, u userCounts) string {
	switch c.sender.Dispatch(ctx, dispatch.KindSummary, u.userID, c.renderer.Summary(u.counts)) {
	case dispatch.Delivered:
		return "sent"
	case dispatch.Permanent:
		if err := c.profiles.Deactivate(ctx, u.userID); err != nil {
			c.logger.Error("到達不能なプロフィールの無効化に失敗しました",
				slog.String("user_id", u.userID),
				slog.String("error", err.Error()),
			)
			return "deactivate_failed"
		}
		c.metrics.RecordProfileDeactivated()
		return "deactivated"
	default:
		return "transient_failure"
	}
}

func groupByUser(rows []model.ActionCount, active map[string]bool) []userCounts {
	index := make(map[string]int)
	var users []userCounts
	for _, r := range rows {
		if r.Count <= 0 || !active[r.UserID] {
			continue
		}
		i, ok := index[r.UserID]
		if !ok {
			i = len(users)
			index[r.UserID] = i
			users = append(users, userCounts{userID: r.UserID, counts: make(map[model.ActionKind]int)})
		}
		users[i].counts[r.Action] += r.Count
	}
	return users
}
