// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// 送信境界・サイクル・コマンド処理から利用する。
type MetricsCollector interface {
	RecordDispatch(kind, result string)
	RecordAlertSkipped(reason string)
	RecordCycleDuration(cycle string, duration time.Duration)
	RecordCycleItem(cycle, outcome string)
	RecordCycleSkipped(cycle string)
	RecordProfileDeactivated()
	RecordAction(action string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	dispatchTotal       *prometheus.CounterVec
	alertsSkipped       *prometheus.CounterVec
	cycleDuration       *prometheus.HistogramVec
	cycleItems          *prometheus.CounterVec
	cyclesSkipped       *prometheus.CounterVec
	profilesDeactivated prometheus.Counter
	actionsTotal        *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobnudge_dispatch_total",
			Help: "メッセージ種別・送信結果別の送信試行数",
		}, []string{"kind", "result"}),
		alertsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobnudge_alerts_skipped_total",
			Help: "理由別の送信されなかったアラート数",
		}, []string{"reason"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jobnudge_cycle_duration_seconds",
			Help:    "サイクル1回あたりの処理時間（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"cycle"}),
		cycleItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobnudge_cycle_items_total",
			Help: "サイクル・処理結果別の処理件数",
		}, []string{"cycle", "outcome"}),
		cyclesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobnudge_cycles_skipped_total",
			Help: "前回の実行中のためスキップされたサイクル数",
		}, []string{"cycle"}),
		profilesDeactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jobnudge_profiles_deactivated_total",
			Help: "宛先に到達できず無効化されたプロフィール数",
		}),
		actionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jobnudge_actions_total",
			Help: "種別ごとの処理済み構造化アクション数",
		}, []string{"action"}),
	}

	reg.MustRegister(
		c.dispatchTotal,
		c.alertsSkipped,
		c.cycleDuration,
		c.cycleItems,
		c.cyclesSkipped,
		c.profilesDeactivated,
		c.actionsTotal,
	)

	return c
}

// RecordDispatch は送信試行の結果を記録する。
func (c *Collector) RecordDispatch(kind, result string) {
	c.dispatchTotal.WithLabelValues(kind, result).Inc()
}

// RecordAlertSkipped は送信を見送ったアラートを記録する。
func (c *Collector) RecordAlertSkipped(reason string) {
	c.alertsSkipped.WithLabelValues(reason).Inc()
}

// RecordCycleDuration はサイクルの処理時間を記録する。
func (c *Collector) RecordCycleDuration(cycle string, duration time.Duration) {
	c.cycleDuration.WithLabelValues(cycle).Observe(duration.Seconds())
}

// RecordCycleItem はサイクル内の1件の処理結果を記録する。
func (c *Collector) RecordCycleItem(cycle, outcome string) {
	c.cycleItems.WithLabelValues(cycle, outcome).Inc()
}

// RecordCycleSkipped は重複起動によりスキップされたサイクルを記録する。
func (c *Collector) RecordCycleSkipped(cycle string) {
	c.cyclesSkipped.WithLabelValues(cycle).Inc()
}

// RecordProfileDeactivated は到達不能による無効化を記録する。
func (c *Collector) RecordProfileDeactivated() {
	c.profilesDeactivated.Inc()
}

// RecordAction は処理した構造化アクションを記録する。
func (c *Collector) RecordAction(action string) {
	c.actionsTotal.WithLabelValues(action).Inc()
}

// Nop は何も記録しないMetricsCollector。メトリクス無効時やテストで使用する。
type Nop struct{}

func (Nop) RecordDispatch(string, string)             {}
func (Nop) RecordAlertSkipped(string)                 {}
func (Nop) RecordCycleDuration(string, time.Duration) {}
func (Nop) RecordCycleItem(string, string)            {}
func (Nop) RecordCycleSkipped(string)                 {}
func (Nop) RecordProfileDeactivated()                 {}
func (Nop) RecordAction(string)                       {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ MetricsCollector = (*Collector)(nil)
	_ MetricsCollector = Nop{}
)
