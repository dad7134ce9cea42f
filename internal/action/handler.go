// Package action はメッセージのボタン等から届く構造化アクションを処理する。
// アクションはコマンドと同じ応募記録の変更経路を通る。
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/jobnudge/internal/dispatch"
	"github.com/hitoshi/jobnudge/internal/metrics"
	"github.com/hitoshi/jobnudge/internal/model"
	"github.com/hitoshi/jobnudge/internal/repository"
)

// Ledger はアクションが変更する応募記録の操作。
type Ledger interface {
	Record(ctx context.Context, userID, company, role, link string, days int) (*model.LedgerEntry, error)
	Remove(ctx context.Context, userID, company, role string) error
}

// Event は受信した構造化アクション。
type Event struct {
	RecipientID string `json:"recipient_id"`
	Data        string `json:"data"`
}

// Result はアクションの処理結果とユーザーへの返答。
type Result struct {
	Kind    model.ActionKind `json:"kind"`
	Company string           `json:"company"`
	Role    string           `json:"role"`
	// Applied は状態が変化したかを表す。重複や削除済みの場合はfalse。
	Applied bool   `json:"applied"`
	Reply   string `json:"reply"`
}

// Handler は構造化アクションのハンドラー。
type Handler struct {
	ledger  Ledger
	actions repository.ActionRepository
	metrics metrics.MetricsCollector
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler はHandlerを生成する。
func NewHandler(ledger Ledger, actions repository.ActionRepository, m metrics.MetricsCollector, logger *slog.Logger) *Handler {
	return &Handler{
		ledger:  ledger,
		actions: actions,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Handle はアクションをデコードして適用する。
// 解釈できないデータは*model.APIErrorを返す。重複した応募や削除済みの記録は
// エラーではなくResult.Applied=falseで報告する。
func (h *Handler) Handle(ctx context.Context, ev Event) (*Result, error) {
	kind, company, role, err := dispatch.DecodeActionData(ev.Data)
	if err != nil {
		h.logger.Warn("解釈できないアクションを受信しました",
			slog.String("user_id", ev.RecipientID),
			slog.String("data", ev.Data),
			slog.String("error", err.Error()),
		)
		return nil, model.NewUnknownActionError(ev.Data)
	}

	res := &Result{Kind: kind, Company: company, Role: role}
	switch kind {
	case model.ActionApply:
		_, err := h.ledger.Record(ctx, ev.RecipientID, company, role, "", 0)
		if isAPIError(err, model.ErrCodeDuplicateApplication) {
			res.Reply = fmt.Sprintf("Already recorded: %s - %s", company, role)
			return res, nil
		}
		if err != nil {
			return nil, err
		}
		res.Reply = fmt.Sprintf("Marked as applied: %s - %s", company, role)

	case model.ActionDone:
		err := h.ledger.Remove(ctx, ev.RecipientID, company, role)
		if isAPIError(err, model.ErrCodeApplicationNotFound) {
			res.Reply = fmt.Sprintf("Already closed: %s - %s", company, role)
			return res, nil
		}
		if err != nil {
			return nil, err
		}
		res.Reply = fmt.Sprintf("Closed: %s - %s", company, role)

	case model.ActionFollow:
		res.Reply = fmt.Sprintf("Noted your follow-up with %s", company)

	case model.ActionIgnore:
		res.Reply = fmt.Sprintf("Ignored: %s - %s", company, role)
	}

	res.Applied = true
	h.appendHistory(ctx, ev.RecipientID, res)
	return res, nil
}

// appendHistory はアクション履歴を追加する。履歴の失敗はアクション自体の結果を変えない。
func (h *Handler) appendHistory(ctx context.Context, userID string, res *Result) {
	h.metrics.RecordAction(string(res.Kind))

	record := &model.JobAction{
		UserID:   userID,
		Company:  res.Company,
		Role:     res.Role,
		Action:   res.Kind,
		ActionAt: h.now().UTC(),
	}
	if err := h.actions.Create(ctx, record); err != nil {
		h.logger.Error("アクション履歴の追加に失敗しました",
			slog.String("user_id", userID),
			slog.String("action", string(res.Kind)),
			slog.String("error", err.Error()),
		)
		return
	}

	h.logger.Info("アクションを処理しました",
		slog.String("user_id", userID),
		slog.String("action", string(res.Kind)),
		slog.String("company", res.Company),
		slog.String("role", res.Role),
	)
}

func isAPIError(err error, code string) bool {
	var apiErr *model.APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}
