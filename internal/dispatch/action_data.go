package dispatch

import (
	"fmt"
	"strings"

	"github.com/hitoshi/jobnudge/internal/model"
)

// MaxActionDataBytes はボタンに埋め込めるデータの最大バイト数（Telegramのcallback_data上限）。
const MaxActionDataBytes = 64

const actionDataSeparator = "|"

// EncodeActionData はアクションを "kind|company|role" 形式にエンコードする。
// 企業名に区切り文字を含む場合や上限バイト数を超える場合はエラーを返す。
func EncodeActionData(kind model.ActionKind, company, role string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown action kind %q", kind)
	}
	if strings.Contains(company, actionDataSeparator) {
		return "", fmt.Errorf("company %q contains %q", company, actionDataSeparator)
	}
	data := string(kind) + actionDataSeparator + company + actionDataSeparator + role
	if len(data) > MaxActionDataBytes {
		return "", fmt.Errorf("action data exceeds %d bytes", MaxActionDataBytes)
	}
	return data, nil
}

// DecodeActionData は "kind|company|role" 形式のデータをデコードする。
// 職種は区切り文字を含んでもよい（最初の2つの区切りのみで分割する）。
func DecodeActionData(data string) (model.ActionKind, string, string, error) {
	parts := strings.SplitN(data, actionDataSeparator, 3)
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("malformed action data %q", data)
	}
	kind := model.ActionKind(parts[0])
	if !kind.Valid() {
		return "", "", "", fmt.Errorf("unknown action kind %q", parts[0])
	}
	company := strings.TrimSpace(parts[1])
	role := strings.TrimSpace(parts[2])
	if company == "" || role == "" {
		return "", "", "", fmt.Errorf("action data %q has empty company or role", data)
	}
	return kind, company, role, nil
}
