package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

const (
	// DefaultTelegramAPIBase はTelegram Bot APIのベースURL。
	DefaultTelegramAPIBase = "https://api.telegram.org"
	// maxResponseBytes はAPIレスポンスとして読み取る最大バイト数。
	maxResponseBytes = 64 * 1024
)

// permanentDescriptions は400応答のうち宛先到達不能を表す説明文。
var permanentDescriptions = []string{
	"chat not found",
	"user is deactivated",
	"bot was blocked by the user",
	"bot was kicked",
	"peer_id_invalid",
}

// TelegramGateway はTelegram Bot APIのsendMessageで送信するGateway。
// 送信はrate.Limiterでペース配分し、Bot APIの送信レート上限を超えないようにする。
type TelegramGateway struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	endpoint   string
}

// NewTelegramGateway はTelegramGatewayを生成する。
// baseURLが空の場合はDefaultTelegramAPIBaseを使用する。
func NewTelegramGateway(httpClient *http.Client, baseURL, token string, limiter *rate.Limiter, logger *slog.Logger) *TelegramGateway {
	if baseURL == "" {
		baseURL = DefaultTelegramAPIBase
	}
	return &TelegramGateway{
		httpClient: httpClient,
		limiter:    limiter,
		logger:     logger,
		endpoint:   strings.TrimRight(baseURL, "/") + "/bot" + token + "/sendMessage",
	}
}

type inlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type sendMessageRequest struct {
	ChatID                string       `json:"chat_id"`
	Text                  string       `json:"text"`
	ParseMode             string       `json:"parse_mode"`
	DisableWebPagePreview bool         `json:"disable_web_page_preview"`
	ReplyMarkup           *replyMarkup `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// Send はメッセージを1回だけ送信する。
// 403および宛先不在を示す400は*PermanentErrorを返す。429・5xx・通信エラーは一時的失敗。
func (g *TelegramGateway) Send(ctx context.Context, recipientID string, msg Message) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("送信レートの待機に失敗しました: %w", err)
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:                recipientID,
		Text:                  msg.Text,
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
		ReplyMarkup:           buildKeyboard(msg.Actions, g.logger),
	})
	if err != nil {
		return fmt.Errorf("リクエストのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		// エラーメッセージにトークンを含むURLが入るため、URLを除いて返す
		return fmt.Errorf("Telegram APIの呼び出しに失敗しました: %w", unwrapURLError(err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	var result apiResponse
	if err := json.Unmarshal(raw, &result); err != nil && resp.StatusCode == http.StatusOK {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	if resp.StatusCode == http.StatusOK && result.OK {
		return nil
	}
	return classifyAPIError(resp.StatusCode, result)
}

// classifyAPIError はBot APIのエラー応答を分類する。
func classifyAPIError(status int, result apiResponse) error {
	desc := result.Description
	if desc == "" {
		desc = http.StatusText(status)
	}

	switch {
	case status == http.StatusForbidden:
		return &PermanentError{Reason: desc}
	case status == http.StatusBadRequest && isPermanentDescription(desc):
		return &PermanentError{Reason: desc}
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("Telegram APIのレート制限に達しました（retry_after=%ds）: %s", result.Parameters.RetryAfter, desc)
	default:
		return fmt.Errorf("Telegram APIがステータス %d を返しました: %s", status, desc)
	}
}

func isPermanentDescription(desc string) bool {
	lower := strings.ToLower(desc)
	for _, p := range permanentDescriptions {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// buildKeyboard はActionをインラインキーボードに変換する。
// 同じ求人（企業・職種）に対するボタンは同じ行に並べる。
// エンコードできないボタンは省略する。
func buildKeyboard(actions []Action, logger *slog.Logger) *replyMarkup {
	var rows [][]inlineButton
	lastKey := ""
	for _, a := range actions {
		btn := inlineButton{Text: a.Label}
		key := a.URL
		if a.URL != "" {
			btn.URL = a.URL
		} else {
			data, err := EncodeActionData(a.Kind, a.Company, a.Role)
			if err != nil {
				logger.Warn("ボタンを省略しました",
					slog.String("label", a.Label),
					slog.String("error", err.Error()),
				)
				continue
			}
			btn.CallbackData = data
			key = a.Company + "\x00" + a.Role
		}

		if len(rows) > 0 && key == lastKey {
			rows[len(rows)-1] = append(rows[len(rows)-1], btn)
		} else {
			rows = append(rows, []inlineButton{btn})
		}
		lastKey = key
	}
	if len(rows) == 0 {
		return nil
	}
	return &replyMarkup{InlineKeyboard: rows}
}

// unwrapURLError は*url.Errorから内側のエラーを取り出す。
func unwrapURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

var _ Gateway = (*TelegramGateway)(nil)
