// Package logger owns the process-wide zerolog logger.
package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	pkgctx "github.com/baechuer/real-time-ressys/services/identity-service/internal/pkg/context"
)

// Logger stays silent until Init runs.
var Logger = zerolog.Nop()

// Init configures Logger on stdout from LOG_LEVEL and LOG_FORMAT.
func Init() {
	InitWithWriter(os.Stdout)
}

// InitWithWriter is Init with a caller-chosen sink. LOG_FORMAT=json writes
// one JSON object per line; anything else renders for a terminal.
// The result also replaces the zerolog global.
func InitWithWriter(w io.Writer) {
	if !strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	Logger = zerolog.New(w).
		Level(levelFromEnv()).
		With().Timestamp().Str("service", "identity-service").
		Logger()
	zlog.Logger = Logger
}

// levelFromEnv falls back to info for an empty or unknown LOG_LEVEL.
func levelFromEnv() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL"))))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithCtx returns Logger tagged with the request id carried by ctx, if any.
func WithCtx(ctx context.Context) *zerolog.Logger {
	l := Logger
	if rid := pkgctx.RequestID(ctx); rid != "" {
		l = l.With().Str("request_id", rid).Logger()
	}
	return &l
}
