// Package dispatch はメッセージ送信の境界を提供する。
// 送信は1回だけ試行し、結果を配信済み・一時的失敗・恒久的失敗に分類する。
// 再送は行わない（次回サイクルが再評価する）。
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/jobnudge/internal/metrics"
	"github.com/hitoshi/jobnudge/internal/model"
)

// Kind は送信するメッセージの種別。メトリクスとログのラベルに使う。
type Kind string

const (
	KindAlert    Kind = "alert"
	KindReminder Kind = "reminder"
	KindSummary  Kind = "summary"
)

// Action はメッセージに添付する操作ボタン。
// URLが設定されている場合はリンクボタンとなり、Kind/Company/Roleは使われない。
type Action struct {
	Label   string
	Kind    model.ActionKind
	Company string
	Role    string
	URL     string
}

// Message は送信するメッセージ本文と操作ボタン。
// TextはゲートウェイのHTMLサブセット（b, i, a）で記述する。
type Message struct {
	Text    string
	Actions []Action
}

// Gateway はメッセージングプラットフォームへの送信インターフェース。
// 宛先に恒久的に到達できない場合は*PermanentErrorを返す。
type Gateway interface {
	Send(ctx context.Context, recipientID string, msg Message) error
}

// PermanentError は宛先に恒久的に到達できないことを表す（ブロック・削除・チャット不在）。
type PermanentError struct {
	Reason string
}

func (e *PermanentError) Error() string {
	return "recipient unreachable: " + e.Reason
}

// IsPermanent はerrが恒久的な送信失敗かを返す。
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// Result は送信試行の結果。
type Result int

const (
	// Delivered はゲートウェイが受理した。
	Delivered Result = iota
	// Transient は一時的な失敗。状態を変更せず次回サイクルで再評価する。
	Transient
	// Permanent は宛先に到達できない。呼び出し元はプロフィールを無効化する。
	Permanent
)

func (r Result) String() string {
	switch r {
	case Delivered:
		return "delivered"
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Sender はメッセージ送信の抽象。サイクルとコマンド処理から使用する。
type Sender interface {
	Dispatch(ctx context.Context, kind Kind, recipientID string, msg Message) Result
}

// Dispatcher はGatewayを1回だけ呼び出し、結果を分類・記録する。
type Dispatcher struct {
	gateway Gateway
	metrics metrics.MetricsCollector
	logger  *slog.Logger
}

// NewDispatcher はDispatcherを生成する。
func NewDispatcher(gateway Gateway, m metrics.MetricsCollector, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{gateway: gateway, metrics: m, logger: logger}
}

// Dispatch はメッセージを送信し、結果を返す。
func (d *Dispatcher) Dispatch(ctx context.Context, kind Kind, recipientID string, msg Message) Result {
	start := time.Now()
	err := d.gateway.Send(ctx, recipientID, msg)

	result := Delivered
	switch {
	case err == nil:
	case IsPermanent(err):
		result = Permanent
	default:
		result = Transient
	}
	d.metrics.RecordDispatch(string(kind), result.String())

	attrs := []any{
		slog.String("kind", string(kind)),
		slog.String("recipient_id", recipientID),
		slog.String("result", result.String()),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	}
	switch result {
	case Delivered:
		d.logger.Debug("メッセージを送信しました", attrs...)
	case Permanent:
		d.logger.Warn("宛先に到達できません", append(attrs, slog.String("error", err.Error()))...)
	default:
		d.logger.Error("メッセージの送信に失敗しました", append(attrs, slog.String("error", err.Error()))...)
	}
	return result
}

var _ Sender = (*Dispatcher)(nil)
