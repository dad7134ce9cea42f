// Command jobnudge は求人アラートと応募フォローアップのサーバー／ワーカーを起動する。
//
// 使い方:
//
//	jobnudge [serve|worker|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/jobnudge/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "jobnudge: %v\n", err)
		os.Exit(1)
	}
}
