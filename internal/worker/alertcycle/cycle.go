// Package alertcycle は有効な全プロフィールに対するアラートサイクルを提供する。
package alertcycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/hitoshi/jobnudge/internal/alert"
	"github.com/hitoshi/jobnudge/internal/metrics"
	"github.com/hitoshi/jobnudge/internal/model"
	"github.com/hitoshi/jobnudge/internal/repository"
	"github.com/hitoshi/jobnudge/internal/worker/schedule"
)

// Processor はプロフィール1件分のアラート処理。
type Processor interface {
	Process(ctx context.Context, p *model.Profile) (alert.Outcome, error)
}

// Cycle はアラートサイクル。有効なプロフィールを列挙し、並列数を制限して処理する。
// 1件の失敗はサイクル全体を中断しない。
type Cycle struct {
	profiles       repository.ProfileRepository
	processor      Processor
	metrics        metrics.MetricsCollector
	logger         *slog.Logger
	maxConcurrency int
}

// NewCycle はCycleを生成する。maxConcurrencyが0以下の場合はデフォルト値10を使用する。
func NewCycle(
	profiles repository.ProfileRepository,
	processor Processor,
	m metrics.MetricsCollector,
	logger *slog.Logger,
	maxConcurrency int,
) *Cycle {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Cycle{
		profiles:       profiles,
		processor:      processor,
		metrics:        m,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Name はschedule.Cycleを実装する。
func (c *Cycle) Name() string {
	return schedule.CycleAlert
}

// RunOnce はschedule.Cycleを実装する。
func (c *Cycle) RunOnce(ctx context.Context) error {
	profiles, err := c.profiles.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("有効なプロフィールの取得に失敗しました: %w", err)
	}
	if len(profiles) == 0 {
		c.logger.Info("アラート対象のプロフィールはありません")
		return nil
	}

	var sent, failed atomic.Int64
	started := schedule.ForEach(ctx, profiles, c.maxConcurrency, c.logger, func(ctx context.Context, p *model.Profile) {
		outcome, err := c.processor.Process(ctx, p)
		c.metrics.RecordCycleItem(schedule.CycleAlert, outcome.String())
		if outcome == alert.Sent {
			sent.Add(1)
		}
		if err != nil {
			failed.Add(1)
			c.logger.Error("アラート処理に失敗しました",
				slog.String("user_id", p.UserID),
				slog.String("outcome", outcome.String()),
				slog.String("error", err.Error()),
			)
		}
	})

	if started < len(profiles) {
		c.logger.Warn("キャンセルによりアラートサイクルを中断しました",
			slog.Int("processed", started),
			slog.Int("profile_count", len(profiles)),
		)
	}
	c.logger.Info("アラートサイクルの集計",
		slog.Int("profile_count", len(profiles)),
		slog.Int64("sent", sent.Load()),
		slog.Int64("failed", failed.Load()),
	)
	return nil
}
