// Command enthub は映画、音楽、動画、ニュース、天気をまとめて返すAPIサーバー。
//
// サブコマンド:
//
//	serve        APIサーバー（既定）
//	worker       期限切れセッションの定期削除
//	migrate      データベースマイグレーション
//	healthcheck  /health の疎通確認（コンテナ用）
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/enthub/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
