package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// serviceName は全ログに付与するサービス名。
const serviceName = "aircnc"

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// 全レコードにservice属性を付与する。
func Setup(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler).With(slog.String("service", serviceName))
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// writerがnilの場合はos.Stdoutに出力する。
// ログレベルは環境変数LOG_LEVELから決定する（設定読み込み前に呼ばれるため直接参照する）。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	slog.SetDefault(Setup(w, ParseLevel(os.Getenv("LOG_LEVEL"))))
}

// ParseLevel はdebug/info/warn/errorの文字列をslog.Levelに変換する。
// 未知の値はInfoとして扱う。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
