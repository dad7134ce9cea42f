// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// ユーザーに返す修正メッセージと原因カテゴリ、対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, profile, ledger, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidExperience    = "INVALID_EXPERIENCE"
	ErrCodeInvalidWorkMode      = "INVALID_WORK_MODE"
	ErrCodeInvalidFollowupDays  = "INVALID_FOLLOWUP_DAYS"
	ErrCodeInvalidLink          = "INVALID_LINK"
	ErrCodeEmptySkills          = "EMPTY_SKILLS"
	ErrCodeInvalidApplication   = "INVALID_APPLICATION"
	ErrCodeDuplicateApplication = "DUPLICATE_APPLICATION"
	ErrCodeApplicationNotFound  = "APPLICATION_NOT_FOUND"
	ErrCodeProfileNotFound      = "PROFILE_NOT_FOUND"
	ErrCodeUnknownAction        = "UNKNOWN_ACTION"
	ErrCodeStoreUnavailable     = "STORE_UNAVAILABLE"
)

// IsValidation はバリデーションエラーかを返す。
func (e *APIError) IsValidation() bool {
	return e.Category == "validation"
}

// NewInvalidExperienceError は経験年数の形式エラーを生成する。
func NewInvalidExperienceError(input string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidExperience,
		Message:  fmt.Sprintf("Could not understand experience %q.", input),
		Category: "validation",
		Action:   "Use a number of years like 3, or a range like 3-5.",
	}
}

// NewInvalidWorkModeError は勤務形態の指定エラーを生成する。
func NewInvalidWorkModeError(input string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidWorkMode,
		Message:  fmt.Sprintf("Unknown work mode %q.", input),
		Category: "validation",
		Action:   "Choose one of: remote, hybrid, office (wfo), or any.",
	}
}

// NewInvalidFollowupDaysError はフォローアップ日数の範囲エラーを生成する。
func NewInvalidFollowupDaysError(days int) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFollowupDays,
		Message:  fmt.Sprintf("Follow-up delay must be at least 1 day, got %d.", days),
		Category: "validation",
		Action:   "Pass a whole number of days, 1 or more.",
	}
}

// NewInvalidLinkError は参照リンクの形式エラーを生成する。
func NewInvalidLinkError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidLink,
		Message:  fmt.Sprintf("The job link is not usable: %s", reason),
		Category: "validation",
		Action:   "Paste a public http(s) link to the job posting, or leave it out.",
	}
}

// NewEmptySkillsError はスキル未入力エラーを生成する。
func NewEmptySkillsError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptySkills,
		Message:  "Skills cannot be empty.",
		Category: "validation",
		Action:   "Send your skills, for example: AWS DevOps Docker.",
	}
}

// NewInvalidApplicationError は応募記録の必須項目不足エラーを生成する。
func NewInvalidApplicationError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidApplication,
		Message:  "Company and role are both required.",
		Category: "validation",
		Action:   "Usage: applied <Company> <Role>.",
	}
}

// NewDuplicateApplicationError は同一の応募記録が既に存在する場合のエラーを生成する。
func NewDuplicateApplicationError(company, role string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateApplication,
		Message:  fmt.Sprintf("You already recorded %s – %s.", company, role),
		Category: "ledger",
		Action:   "Remove the existing entry first if you applied again.",
	}
}

// NewApplicationNotFoundError は応募記録が見つからない場合のエラーを生成する。
func NewApplicationNotFoundError(company, role string) *APIError {
	return &APIError{
		Code:     ErrCodeApplicationNotFound,
		Message:  fmt.Sprintf("No recorded application for %s – %s.", company, role),
		Category: "ledger",
		Action:   "List your applications to check the exact company and role.",
	}
}

// NewProfileNotFoundError はプロフィールが存在しない場合のエラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "You have not subscribed yet.",
		Category: "profile",
		Action:   "Start the subscription first, then set your skills.",
	}
}

// NewUnknownActionError は解釈できない構造化アクションのエラーを生成する。
func NewUnknownActionError(data string) *APIError {
	return &APIError{
		Code:     ErrCodeUnknownAction,
		Message:  fmt.Sprintf("Unknown action %q.", data),
		Category: "validation",
		Action:   "Use the buttons from the latest message.",
	}
}

// NewStoreUnavailableError はストアエラー時の汎用エラーを生成する。
// 詳細はログのみに記録し、ユーザーには再試行を促す。
func NewStoreUnavailableError() *APIError {
	return &APIError{
		Code:     ErrCodeStoreUnavailable,
		Message:  "Something went wrong while saving.",
		Category: "system",
		Action:   "Please try again in a moment.",
	}
}
