// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var base zerolog.Logger

func init() {
	// 未显式 Init 时也能用，避免静默丢日志
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// Init 初始化全局 logger，打上服务名。
func Init(serviceName string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	base = zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Logger 返回全局 logger。
func Logger() *zerolog.Logger {
	return &base
}

// Ctx 返回带当前链路 trace_id/span_id 字段的 logger。
// 上下文里没有有效 Span 时退化为全局 logger。
func Ctx(ctx context.Context) *zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return &base
	}
	l := base.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &l
}
