package app

import "strings"

// Command はaircncの起動モードを表す。
type Command string

const (
	// CommandServe はHTTP APIを起動する。NOTIFY_TRANSPORT=inprocessの場合は
	// 予約通知の配信ワーカーも同じプロセスで動かす。
	CommandServe Command = "serve"
	// CommandWorker は未配信の予約通知を再配信するスケジューラを起動する。
	// NOTIFY_TRANSPORT=amqpの場合はRabbitMQのキューも購読する。
	CommandWorker Command = "worker"
	// CommandMigrate はusers/homes/bookingsのマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のAPIの/healthを叩いて終了コードで結果を返す。
	// distrolessイメージにはcurlが無いため、Dockerのヘルスチェックに使う。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数の先頭からサブコマンドを解析する。
// 大文字小文字は区別しない。空またはサポート外の場合はCommandServeを返す。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch cmd := Command(strings.ToLower(strings.TrimSpace(args[0]))); cmd {
	case CommandWorker, CommandMigrate, CommandHealthcheck:
		return cmd
	default:
		return CommandServe
	}
}
