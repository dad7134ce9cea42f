package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger はサイクルを起動するタイミングの方針。
// Startはctxがキャンセルされるまでブロックし、起動のたびにfireを呼ぶ。
type Trigger interface {
	Start(ctx context.Context, fire func())
	String() string
}

// IntervalTrigger は一定間隔で起動する。開始直後に1回起動する。
type IntervalTrigger struct {
	Every time.Duration
}

// Start はTriggerを実装する。
func (t IntervalTrigger) Start(ctx context.Context, fire func()) {
	ticker := time.NewTicker(t.Every)
	defer ticker.Stop()

	fire()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fire()
		}
	}
}

func (t IntervalTrigger) String() string {
	return "every " + t.Every.String()
}

// CronTrigger はcron式で起動する。タイムゾーンはLocationで指定する。
// 前回の起動がまだ実行中の場合、その起動はスキップされる。
type CronTrigger struct {
	Specs    []string
	Location *time.Location
	Logger   *slog.Logger
}

// NewFixedTimesTrigger は毎日の固定時刻（"HH:MM"）に起動するCronTriggerを生成する。
func NewFixedTimesTrigger(times []string, loc *time.Location, logger *slog.Logger) (*CronTrigger, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("固定時刻が指定されていません")
	}
	specs := make([]string, 0, len(times))
	for _, hhmm := range times {
		clock, err := time.Parse("15:04", strings.TrimSpace(hhmm))
		if err != nil {
			return nil, fmt.Errorf("不正な時刻です: %q", hhmm)
		}
		specs = append(specs, fmt.Sprintf("%d %d * * *", clock.Minute(), clock.Hour()))
	}
	return &CronTrigger{Specs: specs, Location: loc, Logger: logger}, nil
}

// NewCronTrigger はcron式（5フィールド）のCronTriggerを生成する。
// 式はここで検証する。
func NewCronTrigger(spec string, loc *time.Location, logger *slog.Logger) (*CronTrigger, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("不正なcron式です %q: %w", spec, err)
	}
	return &CronTrigger{Specs: []string{spec}, Location: loc, Logger: logger}, nil
}

// Start はTriggerを実装する。停止時は実行中の起動の完了を待つ。
func (t *CronTrigger) Start(ctx context.Context, fire func()) {
	loc := t.Location
	if loc == nil {
		loc = time.UTC
	}
	logger := cronLogger{logger: t.Logger}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	job := cron.FuncJob(fire)
	for _, spec := range t.Specs {
		if _, err := c.AddJob(spec, job); err != nil {
			t.Logger.Error("cronジョブの登録に失敗しました",
				slog.String("spec", spec),
				slog.String("error", err.Error()),
			)
			return
		}
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
}

func (t *CronTrigger) String() string {
	name := "UTC"
	if t.Location != nil {
		name = t.Location.String()
	}
	return fmt.Sprintf("cron %s (%s)", strings.Join(t.Specs, ", "), name)
}

// cronLogger はcron.Loggerをslogに変換する。
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)
	l.logger.Error("cron: "+msg, args...)
}
