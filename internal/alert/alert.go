// Package alert は検索条件が変わったときだけアラートを送る重複排除と、
// プロフィール1件分のアラート処理を提供する。
package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hitoshi/jobnudge/internal/dispatch"
	"github.com/hitoshi/jobnudge/internal/message"
	"github.com/hitoshi/jobnudge/internal/metrics"
	"github.com/hitoshi/jobnudge/internal/model"
	"github.com/hitoshi/jobnudge/internal/query"
	"github.com/hitoshi/jobnudge/internal/repository"
)

// Outcome はプロフィール1件分のアラート処理結果。
type Outcome int

const (
	// Skipped は送信不要（スキル未設定または条件未変更）。
	Skipped Outcome = iota
	// Sent は送信し、フィンガープリントを記録した。
	Sent
	// TransientFailure は一時的な送信失敗。状態は変更していない。
	TransientFailure
	// Deactivated は宛先に到達できずプロフィールを無効化した。
	Deactivated
)

func (o Outcome) String() string {
	switch o {
	case Skipped:
		return "skipped"
	case Sent:
		return "sent"
	case TransientFailure:
		return "transient_failure"
	case Deactivated:
		return "deactivated"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// ShouldNotify はfingerprintのアラートを送るべきかを返す。
// 空のフィンガープリント（検索対象なし）と、最後に通知したものと同じ場合はfalse。
func ShouldNotify(p *model.Profile, fingerprint string) bool {
	return fingerprint != "" && fingerprint != p.LastQueryFingerprint
}

// Processor はプロフィール1件分のアラート処理を行う。
// アラートサイクルとオンデマンドの確認コマンドが同じ処理を共有する。
type Processor struct {
	profiles repository.ProfileRepository
	builder  *query.Builder
	renderer *message.Renderer
	sender   dispatch.Sender
	metrics  metrics.MetricsCollector
	logger   *slog.Logger
}

// NewProcessor はProcessorを生成する。
func NewProcessor(
	profiles repository.ProfileRepository,
	builder *query.Builder,
	renderer *message.Renderer,
	sender dispatch.Sender,
	m metrics.MetricsCollector,
	logger *slog.Logger,
) *Processor {
	return &Processor{
		profiles: profiles,
		builder:  builder,
		renderer: renderer,
		sender:   sender,
		metrics:  m,
		logger:   logger,
	}
}

// Process は検索ターゲットを組み立て、未通知の条件であればアラートを送信する。
// 送信に成功した場合のみ、読み込み時のフィンガープリントを期待値として比較更新する。
// 比較更新に負けた場合は記録せず、次回サイクルで再送される（少なくとも1回の配信）。
func (p *Processor) Process(ctx context.Context, prof *model.Profile) (Outcome, error) {
	target := p.builder.BuildForProfile(prof)
	if target.IsNone() {
		p.metrics.RecordAlertSkipped("no_skills")
		return Skipped, nil
	}

	fingerprint := query.Fingerprint(target)
	if !ShouldNotify(prof, fingerprint) {
		p.metrics.RecordAlertSkipped("unchanged")
		return Skipped, nil
	}

	result := p.sender.Dispatch(ctx, dispatch.KindAlert, prof.UserID, p.renderer.Alert(prof, target))
	switch result {
	case dispatch.Delivered:
		err := p.profiles.MarkNotified(ctx, prof.UserID, prof.LastQueryFingerprint, fingerprint)
		if errors.Is(err, repository.ErrStaleFingerprint) {
			p.logger.Warn("フィンガープリントが並行して更新されたため記録しませんでした",
				slog.String("user_id", prof.UserID),
			)
			return Sent, nil
		}
		if err != nil {
			return Sent, fmt.Errorf("通知済みフィンガープリントの記録に失敗しました: %w", err)
		}
		return Sent, nil

	case dispatch.Permanent:
		if err := p.profiles.Deactivate(ctx, prof.UserID); err != nil {
			return Deactivated, fmt.Errorf("到達不能なプロフィールの無効化に失敗しました: %w", err)
		}
		p.metrics.RecordProfileDeactivated()
		p.logger.Info("到達不能なプロフィールを無効化しました", slog.String("user_id", prof.UserID))
		return Deactivated, nil

	default:
		return TransientFailure, nil
	}
}
