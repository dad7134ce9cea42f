// Package followup は応募記録のフォローアップ期日判定を提供する。
// 判定は純粋関数で、送信履歴を持たない。期日を過ぎた記録はユーザーが削除するまで
// 毎回「期日到来」と判定される。
package followup

import (
	"fmt"
	"time"
)

// StoredTimeLayout は保存用の固定幅レイアウト。文字列比較が時刻順と一致する。
const StoredTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// storedTimeLayouts は保存済みタイムスタンプとして受け付けるレイアウト。
// オフセットを持たないレイアウトはUTCとして解釈する。
var storedTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// DueAt は応募日時からフォローアップ期日（UTC）を返す。
func DueAt(appliedAt time.Time, followupAfterDays int) time.Time {
	return appliedAt.UTC().AddDate(0, 0, followupAfterDays)
}

// IsDue はnow時点でフォローアップ期日に到達しているかを返す。
// 両方の時刻をUTCに正規化して比較し、境界時刻ちょうどは期日到来とみなす。
func IsDue(appliedAt time.Time, followupAfterDays int, now time.Time) bool {
	return !now.UTC().Before(DueAt(appliedAt, followupAfterDays))
}

// ParseStoredTime は保存済みのタイムスタンプ文字列を解析する。
// オフセットを持たない値はUTCとして扱い、ローカルタイムゾーンとしては解釈しない。
func ParseStoredTime(s string) (time.Time, error) {
	for _, layout := range storedTimeLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FormatStoredTime はタイムスタンプを保存用のUTC固定幅文字列に変換する。
func FormatStoredTime(t time.Time) string {
	return t.UTC().Format(StoredTimeLayout)
}
