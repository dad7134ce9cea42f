// Package message は送信メッセージの本文と操作ボタンを組み立てる。
// 本文はゲートウェイのHTMLサブセットで記述し、ユーザー入力は必ず無害化してから埋め込む。
package message

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hitoshi/jobnudge/internal/dispatch"
	"github.com/hitoshi/jobnudge/internal/model"
	"github.com/hitoshi/jobnudge/internal/query"
	"github.com/hitoshi/jobnudge/internal/security"
)

const (
	// maxFieldRunes は本文に埋め込むユーザー入力1項目あたりの最大文字数。
	maxFieldRunes = 120
	// maxMessageRunes は本文全体の上限。ゲートウェイの上限4096文字に余裕を残す。
	maxMessageRunes = 4000
	// maxReminderEntries はリマインダー1通に載せる記録の上限。ボタン数もこれで抑える。
	maxReminderEntries = 30
)

// Renderer はメッセージを組み立てる。状態を持たず並行利用できる。
type Renderer struct {
	sanitizer security.TextSanitizer
}

// NewRenderer はRendererを生成する。
func NewRenderer(sanitizer security.TextSanitizer) *Renderer {
	return &Renderer{sanitizer: sanitizer}
}

func (r *Renderer) clean(s string) string {
	return r.sanitizer.Sanitize(s, maxFieldRunes)
}

// Alert は検索条件の変更を知らせるアラートを組み立てる。
func (r *Renderer) Alert(p *model.Profile, target query.Target) dispatch.Message {
	var b strings.Builder
	b.WriteString("🔔 <b>New job search for you</b>\n\n")
	fmt.Fprintf(&b, "Skills: %s\n", r.clean(p.SkillsLabel()))
	fmt.Fprintf(&b, "Location: %s\n", r.clean(p.LocationLabel()))
	fmt.Fprintf(&b, "Experience: %s\n", r.clean(p.ExperienceLabel()))
	fmt.Fprintf(&b, "Work mode: %s\n\n", r.clean(p.WorkModeLabel()))
	fmt.Fprintf(&b, `<a href="%s">Open matching jobs</a>`, html.EscapeString(target.URL))

	return dispatch.Message{
		Text: b.String(),
		Actions: []dispatch.Action{
			{Label: "🔎 Open jobs", URL: target.URL},
		},
	}
}

// Reminder は期日を迎えた応募記録の一覧を組み立てる。entriesは期日到来分のみを渡す。
// 記録ごとに「フォロー済み」「完了」のボタンを付ける。
// 本文がmaxMessageRunesを超える分の記録は載せず、残り件数だけを示す。
func (r *Renderer) Reminder(entries []*model.LedgerEntry, now time.Time) dispatch.Message {
	const (
		header = "⏰ <b>Follow-up reminder</b>\n"
		footer = "\n➡ Send a follow-up today."
	)
	// 省略行のために確保する文字数。
	const moreReserve = 80

	var b strings.Builder
	b.WriteString(header)
	used := utf8.RuneCountInString(header) + utf8.RuneCountInString(footer)

	actions := make([]dispatch.Action, 0, min(len(entries), maxReminderEntries)*2)
	listed := 0
	for _, e := range entries {
		if listed == maxReminderEntries {
			break
		}
		block := r.reminderEntry(e, now)
		n := utf8.RuneCountInString(block)
		if used+n+moreReserve > maxMessageRunes {
			break
		}
		b.WriteString(block)
		used += n
		listed++

		actions = append(actions,
			dispatch.Action{Label: "📩 Followed up", Kind: model.ActionFollow, Company: e.Company, Role: e.Role},
			dispatch.Action{Label: "✅ Done", Kind: model.ActionDone, Company: e.Company, Role: e.Role},
		)
	}
	if rest := len(entries) - listed; rest > 0 {
		fmt.Fprintf(&b, "\n…and %d more due. Check your applications list for the rest.\n", rest)
	}
	b.WriteString(footer)

	return dispatch.Message{Text: b.String(), Actions: actions}
}

func (r *Renderer) reminderEntry(e *model.LedgerEntry, now time.Time) string {
	var b strings.Builder
	days := int(now.UTC().Sub(e.AppliedAt.UTC()).Hours() / 24)
	fmt.Fprintf(&b, "\n📌 <b>%s</b> - %s\napplied %s (%d days ago)",
		r.clean(e.Company), r.clean(e.Role), e.AppliedAt.UTC().Format("2006-01-02"), days)
	if link, ok := e.Link.Get(); ok {
		fmt.Fprintf(&b, "\n<a href=\"%s\">job posting</a>", html.EscapeString(link))
	}
	b.WriteString("\n")
	return b.String()
}

// Summary は直近7日間のアクション件数のサマリーを組み立てる。
func (r *Renderer) Summary(counts map[model.ActionKind]int) dispatch.Message {
	return dispatch.Message{Text: fmt.Sprintf(
		"📊 <b>Weekly job summary</b>\n\n✅ Applied: %d\n🔔 Followed up: %d\n❌ Ignored: %d\n🏁 Closed: %d",
		counts[model.ActionApply], counts[model.ActionFollow], counts[model.ActionIgnore], counts[model.ActionDone],
	)}
}

// FollowupTemplate はフォローアップ連絡の文面テンプレートを返す。
// プレーンテキストで、{{Name}}等のプレースホルダーはユーザーが埋める。
func FollowupTemplate(company, role string) string {
	if company == "" {
		company = "{{Company}}"
	}
	if role == "" {
		role = "{{Role}}"
	}
	return "Hi {{Name}},\n\n" +
		"Following up on my application for " + role + " at " + company + ".\n" +
		"I'd love to know if there's any update.\n\n" +
		"Thanks,\n{{Your Name}}"
}
