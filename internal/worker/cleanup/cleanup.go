// Package cleanup はアクション履歴の自動削除ジョブを提供する。
// 保持期間（デフォルト180日）を超過したjob_actionsの行を定期的に削除する。
// 週次サマリーは直近7日間しか参照しないため、古い履歴は集計に影響しない。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/jobnudge/internal/worker/schedule"
)

// Pruner は古いアクション履歴を削除するインターフェース。
// repository.ActionRepository が満たす。
type Pruner interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// CleanupJob は保持期間を超過したアクション履歴の自動削除ジョブ。
// 冪等で、削除対象がない場合もエラーにならない。
type CleanupJob struct {
	pruner        Pruner
	logger        *slog.Logger
	RetentionDays int // 履歴の保持日数（デフォルト: 180）
	now           func() time.Time
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は180日。
func NewCleanupJob(pruner Pruner, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		pruner:        pruner,
		logger:        logger,
		RetentionDays: 180,
		now:           time.Now,
	}
}

// Name はschedule.Cycleを実装する。
func (j *CleanupJob) Name() string {
	return schedule.CycleCleanup
}

// RunOnce は保持期間を超過したアクション履歴を削除する。
func (j *CleanupJob) RunOnce(ctx context.Context) error {
	start := time.Now()
	cutoff := j.now().AddDate(0, 0, -j.RetentionDays)

	deletedCount, err := j.pruner.DeleteBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("アクション履歴クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("アクション履歴クリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("アクション履歴クリーンアップジョブが完了しました",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
