package app

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/jobnudge/internal/action"
	"github.com/hitoshi/jobnudge/internal/alert"
	"github.com/hitoshi/jobnudge/internal/config"
	"github.com/hitoshi/jobnudge/internal/database"
	"github.com/hitoshi/jobnudge/internal/dispatch"
	"github.com/hitoshi/jobnudge/internal/ledger"
	"github.com/hitoshi/jobnudge/internal/message"
	"github.com/hitoshi/jobnudge/internal/metrics"
	"github.com/hitoshi/jobnudge/internal/profile"
	"github.com/hitoshi/jobnudge/internal/query"
	"github.com/hitoshi/jobnudge/internal/repository"
	"github.com/hitoshi/jobnudge/internal/security"
	"github.com/hitoshi/jobnudge/internal/worker/alertcycle"
	"github.com/hitoshi/jobnudge/internal/worker/cleanup"
	"github.com/hitoshi/jobnudge/internal/worker/reminder"
	"github.com/hitoshi/jobnudge/internal/worker/schedule"
	"github.com/hitoshi/jobnudge/internal/worker/summary"
)

// stores はドライバに応じたリポジトリの組。
type stores struct {
	profiles repository.ProfileRepository
	ledger   repository.LedgerRepository
	actions  repository.ActionRepository
}

func newStores(driver string, db *sql.DB) stores {
	if driver == database.DriverSQLite {
		return stores{
			profiles: repository.NewSQLiteProfileRepo(db),
			ledger:   repository.NewSQLiteLedgerRepo(db),
			actions:  repository.NewSQLiteActionRepo(db),
		}
	}
	return stores{
		profiles: repository.NewPostgresProfileRepo(db),
		ledger:   repository.NewPostgresLedgerRepo(db),
		actions:  repository.NewPostgresActionRepo(db),
	}
}

// components はserveとworkerで共有する部品。
// スケジューラとコマンド処理は同じ純粋部品と同じリポジトリを使う。
type components struct {
	cfg      *config.Config
	stores   stores
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
	renderer *message.Renderer
	sender   dispatch.Sender

	processor      *alert.Processor
	profileService *profile.Service
	ledgerService  *ledger.Service
	actionHandler  *action.Handler
}

func build(cfg *config.Config, db *sql.DB, m metrics.MetricsCollector, log *slog.Logger) *components {
	st := newStores(cfg.DatabaseDriver, db)
	guard := security.NewLinkGuard()
	renderer := message.NewRenderer(security.NewTextSanitizer())
	builder := query.NewBuilder(cfg.DefaultLocation, cfg.SearchBaseURL)
	sender := dispatch.NewDispatcher(newGateway(cfg, guard, log), m, log)

	processor := alert.NewProcessor(st.profiles, builder, renderer, sender, m, log)
	ledgerService := ledger.NewService(st.ledger, guard, cfg.DefaultFollowupDays, log)

	return &components{
		cfg:       cfg,
		stores:    st,
		metrics:   m,
		logger:    log,
		renderer:  renderer,
		sender:    sender,
		processor: processor,
		profileService: profile.NewService(st.profiles, builder, processor,
			profile.ExperienceRange{Min: cfg.DefaultExpMin, Max: cfg.DefaultExpMax}, log),
		ledgerService: ledgerService,
		actionHandler: action.NewHandler(ledgerService, st.actions, m, log),
	}
}

// newGateway は設定に応じた送信ゲートウェイを生成する。
// Telegramへの通信はSSRF対策済みクライアントとレートリミッターを通す。
func newGateway(cfg *config.Config, guard security.LinkGuard, log *slog.Logger) dispatch.Gateway {
	if cfg.Gateway == config.GatewayLog {
		return dispatch.NewLogGateway(log)
	}
	burst := int(cfg.GatewayRatePerSec)
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.GatewayRatePerSec), burst)
	return dispatch.NewTelegramGateway(
		guard.NewSafeClient(cfg.GatewayTimeout),
		cfg.TelegramAPIBase, cfg.TelegramBotToken, limiter, log,
	)
}

// cleanupInterval は履歴削除ジョブの実行間隔。
const cleanupInterval = 24 * time.Hour

// buildScheduler は全サイクルをトリガー付きで登録したSchedulerを返す。
func buildScheduler(cfg *config.Config, c *components, locker schedule.Locker, log *slog.Logger) (*schedule.Scheduler, error) {
	s := schedule.NewScheduler(log)
	runner := func(cycle schedule.Cycle) *schedule.Runner {
		return schedule.NewRunner(cycle, locker, cfg.CycleLockTTL, c.metrics, log)
	}

	alertTrigger, err := cycleTrigger(cfg, log)
	if err != nil {
		return nil, err
	}
	s.Register(runner(alertcycle.NewCycle(c.stores.profiles, c.processor, c.metrics, log, cfg.CycleMaxConcurrent)), alertTrigger)

	reminderTrigger, err := cycleTrigger(cfg, log)
	if err != nil {
		return nil, err
	}
	s.Register(runner(reminder.NewCycle(c.stores.ledger, c.stores.profiles, c.renderer, c.sender, c.metrics, log, cfg.CycleMaxConcurrent)), reminderTrigger)

	if cfg.SummarySchedule != "" {
		summaryTrigger, err := schedule.NewCronTrigger(cfg.SummarySchedule, cfg.TimeZone, log)
		if err != nil {
			return nil, fmt.Errorf("invalid SUMMARY_SCHEDULE: %w", err)
		}
		s.Register(runner(summary.NewCycle(c.stores.actions, c.stores.profiles, c.renderer, c.sender, c.metrics, log, cfg.CycleMaxConcurrent)), summaryTrigger)
	} else {
		log.Info("weekly summary disabled")
	}

	cleanupJob := cleanup.NewCleanupJob(c.stores.actions, log)
	if cfg.ActionRetentionDays > 0 {
		cleanupJob.RetentionDays = cfg.ActionRetentionDays
	}
	s.Register(runner(cleanupJob), schedule.IntervalTrigger{Every: cleanupInterval})

	return s, nil
}

// cycleTrigger はアラートとリマインダーに共通のトリガー方針を返す。
func cycleTrigger(cfg *config.Config, log *slog.Logger) (schedule.Trigger, error) {
	if cfg.TriggerMode == config.TriggerInterval {
		return schedule.IntervalTrigger{Every: cfg.Interval}, nil
	}
	t, err := schedule.NewFixedTimesTrigger(cfg.FixedTimes, cfg.TimeZone, log)
	if err != nil {
		return nil, fmt.Errorf("invalid FIXED_TIMES: %w", err)
	}
	return t, nil
}
