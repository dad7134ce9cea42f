// Package schedule はバックグラウンドサイクルの起動方針と多重実行防止を提供する。
// サイクルごとにトリガー（一定間隔・固定時刻）を持ち、同じサイクルの実行が
// 重なった場合は後発のトリガーをスキップする。
package schedule

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/jobnudge/internal/metrics"
)

// サイクル名
const (
	CycleAlert    = "alert"
	CycleReminder = "reminder"
	CycleSummary  = "summary"
	CycleCleanup  = "cleanup"
)

// Cycle は1回分のバックグラウンド処理。
type Cycle interface {
	Name() string
	RunOnce(ctx context.Context) error
}

// Locker はプロセスをまたいだサイクルの排他ロック。
// 取得できなかった場合はok=falseを返す。releaseは取得できた場合のみ非nil。
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context), ok bool, err error)
}

// Runner はCycleを多重実行しないようにラップする。
// 同一プロセス内ではミューテックス、複数プロセス間ではLockerで排他する。
type Runner struct {
	cycle   Cycle
	locker  Locker
	lockTTL time.Duration
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewRunner はRunnerを生成する。lockerがnilの場合はプロセス内の排他のみ行う。
func NewRunner(cycle Cycle, locker Locker, lockTTL time.Duration, m metrics.MetricsCollector, logger *slog.Logger) *Runner {
	if lockTTL <= 0 {
		lockTTL = 30 * time.Minute
	}
	return &Runner{
		cycle:   cycle,
		locker:  locker,
		lockTTL: lockTTL,
		metrics: m,
		logger:  logger,
	}
}

// Name はラップしているサイクルの名前を返す。
func (r *Runner) Name() string {
	return r.cycle.Name()
}

// Run はサイクルを1回実行する。前回の実行が終わっていない場合はスキップし、falseを返す。
func (r *Runner) Run(ctx context.Context) bool {
	name := r.cycle.Name()

	if !r.mu.TryLock() {
		r.skip(name, "previous run still in progress")
		return false
	}
	defer r.mu.Unlock()

	if r.locker != nil {
		release, ok, err := r.locker.TryAcquire(ctx, "jobnudge:cycle:"+name, r.lockTTL)
		if err != nil {
			r.logger.Error("サイクルロックの取得に失敗しました",
				slog.String("cycle", name),
				slog.String("error", err.Error()),
			)
			r.metrics.RecordCycleSkipped(name)
			return false
		}
		if !ok {
			r.skip(name, "held by another process")
			return false
		}
		defer release(context.WithoutCancel(ctx))
	}

	runID := uuid.New().String()
	start := time.Now()
	r.logger.Info("サイクルを開始します", slog.String("cycle", name), slog.String("run_id", runID))

	err := r.cycle.RunOnce(ctx)

	duration := time.Since(start)
	r.metrics.RecordCycleDuration(name, duration)
	if err != nil {
		r.logger.Error("サイクルの実行に失敗しました",
			slog.String("cycle", name),
			slog.String("run_id", runID),
			slog.String("error", err.Error()),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
		return true
	}
	r.logger.Info("サイクルが完了しました",
		slog.String("cycle", name),
		slog.String("run_id", runID),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return true
}

func (r *Runner) skip(name, reason string) {
	r.metrics.RecordCycleSkipped(name)
	r.logger.Warn("サイクルの実行をスキップしました",
		slog.String("cycle", name),
		slog.String("reason", reason),
	)
}
