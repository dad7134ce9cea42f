// Package model はドメインモデルを定義する。
package model

import (
	"strconv"
	"time"
)

// AnyLabel は未設定フィールドの表示用デフォルト。
const AnyLabel = "Any"

// WorkMode は勤務形態の希望を表す。空文字は未設定。
type WorkMode string

const (
	// WorkModeUnset は勤務形態の指定なし。
	WorkModeUnset WorkMode = ""
	// WorkModeRemote はリモート勤務。
	WorkModeRemote WorkMode = "remote"
	// WorkModeHybrid はハイブリッド勤務。
	WorkModeHybrid WorkMode = "hybrid"
	// WorkModeOffice は出社勤務。
	WorkModeOffice WorkMode = "office"
)

// Profile は購読者ごとのスキル・検索条件・有効フラグ・最終通知フィンガープリントを表す。
// user_idごとに1行で、物理削除はされない（無効化のみ）。
type Profile struct {
	UserID               string
	Skills               string
	Location             Optional[string]
	ExpMin               Optional[int]
	ExpMax               Optional[int]
	WorkMode             WorkMode
	Active               bool
	LastQueryFingerprint string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// HasSkills はスキルが設定されているかを返す。
func (p *Profile) HasSkills() bool {
	return p.Skills != ""
}

// SkillsLabel は表示用のスキル文字列を返す。
func (p *Profile) SkillsLabel() string {
	if p.Skills == "" {
		return AnyLabel
	}
	return p.Skills
}

// LocationLabel は表示用の勤務地を返す。
func (p *Profile) LocationLabel() string {
	return p.Location.OrElse(AnyLabel)
}

// ExperienceLabel は表示用の経験年数範囲を返す。
func (p *Profile) ExperienceLabel() string {
	lo, hasMin := p.ExpMin.Get()
	hi, hasMax := p.ExpMax.Get()
	switch {
	case hasMin && hasMax:
		return strconv.Itoa(lo) + "-" + strconv.Itoa(hi) + " yrs"
	case hasMin:
		return strconv.Itoa(lo) + "+ yrs"
	case hasMax:
		return "up to " + strconv.Itoa(hi) + " yrs"
	default:
		return AnyLabel
	}
}

// WorkModeLabel は表示用の勤務形態を返す。
func (p *Profile) WorkModeLabel() string {
	if p.WorkMode == WorkModeUnset {
		return AnyLabel
	}
	return string(p.WorkMode)
}

// Preferences はユーザーが変更可能な検索条件の集合。
type Preferences struct {
	Skills   string
	Location Optional[string]
	ExpMin   Optional[int]
	ExpMax   Optional[int]
	WorkMode WorkMode
}

// PreferencesPatch は検索条件の部分更新。Set*がtrueの項目だけを書き換える。
// 経験年数は下限と上限を常に組で扱う。
type PreferencesPatch struct {
	Values        Preferences
	SetSkills     bool
	SetLocation   bool
	SetExperience bool
	SetWorkMode   bool
}

// Apply はパッチをprofに反映する。
func (pp PreferencesPatch) Apply(prof *Profile) {
	if pp.SetSkills {
		prof.Skills = pp.Values.Skills
	}
	if pp.SetLocation {
		prof.Location = pp.Values.Location
	}
	if pp.SetExperience {
		prof.ExpMin, prof.ExpMax = pp.Values.ExpMin, pp.Values.ExpMax
	}
	if pp.SetWorkMode {
		prof.WorkMode = pp.Values.WorkMode
	}
}
