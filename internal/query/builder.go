// Package query はプロフィールの検索条件から検索ターゲット（検索URLと正規化文字列）を組み立てる。
// 同一条件からは常に同一のターゲットとフィンガープリントが得られる。
package query

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"github.com/hitoshi/jobnudge/internal/model"
)

const (
	// DefaultBaseURL は検索URLの既定のベース。
	DefaultBaseURL = "https://www.naukri.com"
	// separator は正規化文字列のフィールド区切り。
	separator = "|"
)

// wfhTypes は勤務形態ごとの検索URLパラメータ値。
var wfhTypes = map[model.WorkMode]string{
	model.WorkModeOffice: "0",
	model.WorkModeRemote: "2",
	model.WorkModeHybrid: "3",
}

// Target は検索ターゲット。ゼロ値は「検索対象なし」を表す。
type Target struct {
	// Canonical は大文字小文字・空白を正規化した `skills|location|exp|mode` 形式の文字列。
	Canonical string
	// URL は検索サイト上の検索URL。取得はしない。
	URL string
}

// NoTarget は検索対象なしの番兵値。スキル未設定時に返される。
var NoTarget = Target{}

// IsNone は検索対象なしかを返す。
func (t Target) IsNone() bool {
	return t.Canonical == ""
}

// Builder は検索ターゲットを組み立てる。状態を持たず並行利用できる。
type Builder struct {
	defaultLocation string
	baseURL         string
}

// NewBuilder はBuilderを生成する。
// defaultLocationは勤務地未設定時に使う地域、baseURLが空の場合はDefaultBaseURLを使う。
func NewBuilder(defaultLocation, baseURL string) *Builder {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Builder{
		defaultLocation: defaultLocation,
		baseURL:         strings.TrimRight(baseURL, "/"),
	}
}

// Build は検索条件から検索ターゲットを組み立てる。
// skillsが空（空白のみを含む）の場合はNoTargetを返す。
// expMinが未設定の場合は経験年数フィルタ自体を省略する。
func (b *Builder) Build(skills string, location model.Optional[string], expMin model.Optional[int], mode model.WorkMode) Target {
	skillSlug := slug(skills)
	if skillSlug == "" {
		return NoTarget
	}

	locSlug := slug(location.OrElse(""))
	if locSlug == "" {
		locSlug = slug(b.defaultLocation)
	}

	exp := ""
	if n, ok := expMin.Get(); ok {
		exp = strconv.Itoa(n)
	}

	canonical := strings.Join([]string{skillSlug, locSlug, exp, string(mode)}, separator)

	path := "/" + skillSlug + "-jobs"
	if locSlug != "" {
		path += "-in-" + locSlug
	}
	q := url.Values{}
	if exp != "" {
		q.Set("experience", exp)
	}
	if code, ok := wfhTypes[mode]; ok {
		q.Set("wfhType", code)
	}
	u := b.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	return Target{Canonical: canonical, URL: u}
}

// BuildForProfile はプロフィールの現在の検索条件から検索ターゲットを組み立てる。
func (b *Builder) BuildForProfile(p *model.Profile) Target {
	return b.Build(p.Skills, p.Location, p.ExpMin, p.WorkMode)
}

// Fingerprint は検索ターゲットのフィンガープリント（正規化文字列のSHA-256の16進表現）を返す。
// NoTargetの場合は空文字を返す。プロセス再起動をまたいで安定している。
func Fingerprint(t Target) string {
	if t.IsNone() {
		return ""
	}
	sum := sha256.Sum256([]byte(t.Canonical))
	return hex.EncodeToString(sum[:])
}

// slug は小文字化・前後空白除去・連続空白の圧縮を行い、空白をハイフンに置き換える。
func slug(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, "-")
}
