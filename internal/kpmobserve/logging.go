// Package kpmobserve file: internal/kpmobserve/logging.go
package kpmobserve

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// parseLevel 把配置字符串映射为 slog 级别，无法识别时回落到 INFO。
func parseLevel(levelStr string) slog.Level {
	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger 构造一个写入 w 的 JSON 结构化日志记录器。
// 宿主集成代码可以用它把插件管理日志并入自己的输出流。
func NewLogger(levelStr string, w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     parseLevel(levelStr),
		AddSource: true,
	})
	return slog.New(handler)
}

// InitLogger 初始化全局的结构化日志记录器。
// 它应该在宿主集成代码的早期被调用。
func InitLogger(levelStr string) {
	slog.SetDefault(NewLogger(levelStr, os.Stdout))
}
