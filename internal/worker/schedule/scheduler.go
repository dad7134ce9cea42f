package schedule

import (
	"context"
	"log/slog"
	"sync"
)

type entry struct {
	runner  *Runner
	trigger Trigger
}

// Scheduler は登録されたサイクルをそれぞれのトリガーで起動する。
// サイクル同士（例えばアラートとリマインダー）は互いに重なって実行されてよい。
type Scheduler struct {
	entries []entry
	logger  *slog.Logger
}

// NewScheduler はSchedulerを生成する。
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Register はサイクルとトリガーを登録する。Startより前に呼ぶこと。
func (s *Scheduler) Register(runner *Runner, trigger Trigger) {
	s.entries = append(s.entries, entry{runner: runner, trigger: trigger})
}

// Start は全サイクルを起動し、ctxがキャンセルされて実行中のサイクルが
// すべて終わるまでブロックする。
func (s *Scheduler) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for _, e := range s.entries {
		s.logger.Info("サイクルを登録しました",
			slog.String("cycle", e.runner.Name()),
			slog.String("trigger", e.trigger.String()),
		)

		wg.Add(1)
		go func(e entry) {
			defer wg.Done()
			var inflight sync.WaitGroup
			e.trigger.Start(ctx, func() {
				inflight.Add(1)
				defer inflight.Done()
				e.runner.Run(ctx)
			})
			inflight.Wait()
		}(e)
	}

	<-ctx.Done()
	wg.Wait()
	s.logger.Info("スケジューラを停止しました")
}
