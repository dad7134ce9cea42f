package profile

import (
	"strconv"
	"strings"

	"github.com/hitoshi/jobnudge/internal/model"
)

// ExperienceRange は経験年数として受け付ける範囲。
type ExperienceRange struct {
	Min int
	Max int
}

// ParseExperience は経験年数の入力を解析する。
// "3"は下限のみ、"3+"も下限のみ、"3-5"は下限と上限、空文字と"any"は未設定を表す。
// 値がboundsの範囲外、または下限が上限を超える場合はバリデーションエラーを返す。
func ParseExperience(input string, bounds ExperienceRange) (model.Optional[int], model.Optional[int], error) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.TrimSuffix(strings.TrimSuffix(s, "years"), "yrs")
	s = strings.TrimSpace(s)
	if s == "" || s == "any" {
		return model.None[int](), model.None[int](), nil
	}

	invalid := model.NewInvalidExperienceError(input)

	lowText, highText, isRange := strings.Cut(s, "-")
	lowText = strings.TrimSuffix(strings.TrimSpace(lowText), "+")
	lo, err := strconv.Atoi(strings.TrimSpace(lowText))
	if err != nil || lo < bounds.Min || lo > bounds.Max {
		return model.None[int](), model.None[int](), invalid
	}
	if !isRange {
		return model.Some(lo), model.None[int](), nil
	}

	hi, err := strconv.Atoi(strings.TrimSpace(highText))
	if err != nil || hi < lo || hi > bounds.Max {
		return model.None[int](), model.None[int](), invalid
	}
	return model.Some(lo), model.Some(hi), nil
}
