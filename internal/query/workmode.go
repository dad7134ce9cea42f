package query

import (
	"strings"

	"github.com/hitoshi/jobnudge/internal/model"
)

// workModeAliases は入力トークンから勤務形態への対応表。
var workModeAliases = map[string]model.WorkMode{
	"":                 model.WorkModeUnset,
	"any":              model.WorkModeUnset,
	"remote":           model.WorkModeRemote,
	"wfh":              model.WorkModeRemote,
	"work from home":   model.WorkModeRemote,
	"hybrid":           model.WorkModeHybrid,
	"office":           model.WorkModeOffice,
	"wfo":              model.WorkModeOffice,
	"work from office": model.WorkModeOffice,
	"onsite":           model.WorkModeOffice,
	"on-site":          model.WorkModeOffice,
}

// ParseWorkMode はユーザー入力の勤務形態トークンを正規化する。
// 未知のトークンの場合はバリデーションエラーを返す。Builderに渡す前に呼び出すこと。
func ParseWorkMode(token string) (model.WorkMode, error) {
	key := strings.Join(strings.Fields(strings.ToLower(token)), " ")
	mode, ok := workModeAliases[key]
	if !ok {
		return model.WorkModeUnset, model.NewInvalidWorkModeError(token)
	}
	return mode, nil
}
