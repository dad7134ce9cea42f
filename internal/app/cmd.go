package app

import (
	"fmt"
	"strings"
)

// Command はjobnudgeのサブコマンド。
type Command string

const (
	CommandServe       Command = "serve"
	CommandWorker      Command = "worker"
	CommandMigrate     Command = "migrate"
	CommandHealthcheck Command = "healthcheck"
	CommandHelp        Command = "help"
)

// commandTable はサブコマンドと説明の一覧。Usageの表示順でもある。
var commandTable = []struct {
	cmd     Command
	aliases []string
	summary string
}{
	{CommandServe, nil, "コマンドAPI（プロフィール・応募記録・アクション）を起動する（既定）"},
	{CommandWorker, nil, "アラート・リマインダー・週次サマリー・履歴削除のサイクルを起動する"},
	{CommandMigrate, nil, "未適用のマイグレーションを適用して終了する"},
	{CommandHealthcheck, nil, "ローカルの /health を叩いて終了コードで結果を返す"},
	{CommandHelp, []string{"-h", "--help"}, "この一覧を表示する"},
}

// ParseCommand は先頭の引数からサブコマンドを決める。
// 引数なし、または未知の値はCommandServeとして扱う。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}
	name := strings.TrimSpace(args[0])
	for _, c := range commandTable {
		if name == string(c.cmd) {
			return c.cmd
		}
		for _, a := range c.aliases {
			if name == a {
				return c.cmd
			}
		}
	}
	return CommandServe
}

// NeedsConfig は設定の読み込みが必要なサブコマンドかを返す。
func (c Command) NeedsConfig() bool {
	return c != CommandHealthcheck && c != CommandHelp
}

// Usage はサブコマンド一覧の表示文字列を返す。
func Usage() string {
	var b strings.Builder
	b.WriteString("usage: jobnudge [command]\n\ncommands:\n")
	for _, c := range commandTable {
		fmt.Fprintf(&b, "  %-12s %s\n", c.cmd, c.summary)
	}
	return b.String()
}
