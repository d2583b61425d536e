package app

import "fmt"

// Command は enthub バイナリのサブコマンド。
type Command string

const (
	// CommandServe はHTTP APIを起動する。引数なしの既定。
	CommandServe Command = "serve"
	// CommandWorker は期限切れセッションの定期削除を行う。
	CommandWorker Command = "worker"
	// CommandMigrate は未適用のマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のAPIの /health を叩く。distroless イメージの HEALTHCHECK 用。
	CommandHealthcheck Command = "healthcheck"
)

var commands = map[string]Command{
	string(CommandServe):       CommandServe,
	string(CommandWorker):      CommandWorker,
	string(CommandMigrate):     CommandMigrate,
	string(CommandHealthcheck): CommandHealthcheck,
}

// ParseCommand は args の先頭をサブコマンドとして解釈する。2番目以降は無視する。
// 未知のサブコマンドはエラーにし、タイプミスでサーバーが起動しないようにする。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return "", fmt.Errorf("unknown command %q (serve, worker, migrate, healthcheck)", args[0])
	}
	return cmd, nil
}
