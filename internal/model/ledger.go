package model

import "time"

// DefaultFollowupAfterDays はフォローアップまでの既定日数。
const DefaultFollowupAfterDays = 5

// LedgerEntry はユーザーが応募済みとして記録した求人を表す。
// (user_id, company, role) の組で一意。applied_atは作成時に1回だけ設定される。
type LedgerEntry struct {
	UserID            string
	Company           string
	Role              string
	AppliedAt         time.Time
	FollowupAfterDays int
	Link              Optional[string]
}

// ActionKind は構造化アクション（インラインボタン等）の種別。
type ActionKind string

const (
	// ActionApply は求人への応募を記録する。
	ActionApply ActionKind = "apply"
	// ActionFollow はフォローアップ済みを記録する。
	ActionFollow ActionKind = "follow"
	// ActionIgnore は求人を無視する。
	ActionIgnore ActionKind = "ignore"
	// ActionDone は応募記録を削除する（フォローアップ完了）。
	ActionDone ActionKind = "done"
)

// Valid は既知のアクション種別かを返す。
func (k ActionKind) Valid() bool {
	switch k {
	case ActionApply, ActionFollow, ActionIgnore, ActionDone:
		return true
	}
	return false
}

// JobAction はユーザーが実行したアクションの履歴1件を表す。
// 週次サマリーの集計元となる。
type JobAction struct {
	ID       string
	UserID   string
	Company  string
	Role     string
	Action   ActionKind
	ActionAt time.Time
}

// ActionCount はユーザーごと・アクション種別ごとの件数。
type ActionCount struct {
	UserID string
	Action ActionKind
	Count  int
}
