package security

import (
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はユーザー入力（企業名・職種・スキル等）をHTMLメッセージへ
// 埋め込める形に変換する。
type TextSanitizer interface {
	// Sanitize はタグを除去し、HTML特殊文字をエスケープしたテキストを返す。
	// 前後の空白を除き、maxRunesを超える場合は末尾を「…」で切り詰める。
	// maxRunesが0以下の場合は切り詰めない。
	Sanitize(s string, maxRunes int) string
}

type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer は全タグを除去するStrictPolicyのサニタイザーを生成する。
// bluemondayのPolicyは生成後の並行利用が安全。
func NewTextSanitizer() TextSanitizer {
	return &textSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *textSanitizer) Sanitize(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	if maxRunes > 0 && utf8.RuneCountInString(text) > maxRunes {
		runes := []rune(text)
		text = string(runes[:maxRunes]) + "…"
	}
	return s.policy.Sanitize(text)
}
