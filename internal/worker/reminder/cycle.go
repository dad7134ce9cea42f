// Package reminder は応募記録のフォローアップリマインダーサイクルを提供する。
// 期日の判定だけを行い、記録は変更しない。期日を過ぎた記録はユーザーが
// 完了にするまで毎サイクル通知される。
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/jobnudge/internal/dispatch"
	"github.com/hitoshi/jobnudge/internal/followup"
	"github.com/hitoshi/jobnudge/internal/message"
	"github.com/hitoshi/jobnudge/internal/metrics"
	"github.com/hitoshi/jobnudge/internal/model"
	"github.com/hitoshi/jobnudge/internal/repository"
	"github.com/hitoshi/jobnudge/internal/worker/schedule"
)

// batch はユーザー1人分の期日到来済み記録。
type batch struct {
	userID  string
	entries []*model.LedgerEntry
}

// Cycle はリマインダーサイクル。
type Cycle struct {
	ledger         repository.LedgerRepository
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
	ledger repository.LedgerRepository,
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
		ledger:         ledger,
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
	return schedule.CycleReminder
}

// RunOnce はschedule.Cycleを実装する。
// 期日判定の基準時刻はサイクル開始時に1回だけ取得する。
func (c *Cycle) RunOnce(ctx context.Context) error {
	entries, err := c.ledger.ListForActiveProfiles(ctx)
	if err != nil {
		return fmt.Errorf("応募記録の取得に失敗しました: %w", err)
	}

	now := c.now()
	batches := dueBatches(entries, now)
	if len(batches) == 0 {
		c.logger.Info("フォローアップ期日の記録はありません", slog.Int("entry_count", len(entries)))
		return nil
	}

	schedule.ForEach(ctx, batches, c.maxConcurrency, c.logger, func(ctx context.Context, b batch) {
		outcome := c.remind(ctx, b, now)
		c.metrics.RecordCycleItem(schedule.CycleReminder, outcome)
	})

	c.logger.Info("リマインダーサイクルの集計",
		slog.Int("entry_count", len(entries)),
		slog.Int("recipient_count", len(batches)),
	)
	return nil
}

// remind はユーザー1人にリマインダーを送信し、結果を表す文字列を返す。
func (c *Cycle) remind(ctx context.Context, b batch, now time.Time) string {
	msg := c.renderer.Reminder(b.entries, now)
	switch c.sender.Dispatch(ctx, dispatch.KindReminder, b.userID, msg) {
	case dispatch.Delivered:
		return "sent"
	case dispatch.Permanent:
		if err := c.profiles.Deactivate(ctx, b.userID); err != nil {
			c.logger.Error("到達不能なプロフィールの無効化に失敗しました",
				slog.String("user_id", b.userID),
				slog.String("error", err.Error()),
			)
			return "deactivate_failed"
		}
		c.metrics.RecordProfileDeactivated()
		c.logger.Info("到達不能なプロフィールを無効化しました", slog.String("user_id", b.userID))
		return "deactivated"
	default:
		return "transient_failure"
	}
}

// dueBatches は期日到来済みの記録をユーザーごとにまとめる。
// ユーザーの出現順と、ユーザー内の記録の順序を保つ。期日到来の記録がないユーザーは含まない。
func dueBatches(entries []*model.LedgerEntry, now time.Time) []batch {
	index := make(map[string]int)
	var batches []batch
	for _, e := range entries {
		if !followup.IsDue(e.AppliedAt, e.FollowupAfterDays, now) {
			continue
		}
		i, ok := index[e.UserID]
		if !ok {
			i = len(batches)
			index[e.UserID] = i
			batches = append(batches, batch{userID: e.UserID})
		}
		batches[i].entries = append(batches[i].entries, e)
	}
	return batches
}
