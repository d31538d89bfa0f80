// Package logger 以log/slog提供結構化日誌。
//
// 正式環境輸出JSON，其餘環境輸出易讀的文字格式。每個請求的logger會帶上request_id：
//
//	log := logger.WithCtx(c.Request.Context())
//	log.Info("訂單已建立", "orderID", order.ID)
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

var L = slog.New(slog.NewTextHandler(os.Stdout, nil))

// Setup 依環境與等級建立全域logger並設為slog預設值
func Setup(env, level string) *slog.Logger {
	L = New(os.Stdout, env, level)
	slog.SetDefault(L)
	return L
}

func New(w io.Writer, env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	switch env {
	case "production", "prod":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

type ctxKey struct{}

// WithCtx 回傳請求專屬的logger，沒有則回傳全域logger
func WithCtx(ctx context.Context) *slog.Logger {
	if log, ok := FromCtx(ctx); ok {
		return log
	}
	return L
}

func InjectLogger(ctx context.Context, log *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromCtx 只回傳請求中注入的logger
func FromCtx(ctx context.Context) (*slog.Logger, bool) {
	if ctx == nil {
		return nil, false
	}
	log, ok := ctx.Value(ctxKey{}).(*slog.Logger)
	return log, ok && log != nil
}
