package dispatch

import (
	"context"
	"log/slog"
)

// LogGateway はメッセージを送信せずログに書き出すGateway。
// 開発環境やドライランで使用する。
type LogGateway struct {
	logger *slog.Logger
}

// NewLogGateway はLogGatewayを生成する。
func NewLogGateway(logger *slog.Logger) *LogGateway {
	return &LogGateway{logger: logger}
}

// Send はメッセージをINFOレベルで記録する。常に成功する。
func (g *LogGateway) Send(ctx context.Context, recipientID string, msg Message) error {
	labels := make([]string, 0, len(msg.Actions))
	for _, a := range msg.Actions {
		labels = append(labels, a.Label)
	}
	g.logger.InfoContext(ctx, "メッセージ（ドライラン）",
		slog.String("recipient_id", recipientID),
		slog.String("text", msg.Text),
		slog.Any("actions", labels),
	)
	return nil
}

var _ Gateway = (*LogGateway)(nil)
