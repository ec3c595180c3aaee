package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var base = zerolog.New(os.Stderr).With().Timestamp().Logger()

// InitLogging configures the process-wide logger. format is "json" or "console".
func InitLogging(level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var w io.Writer = os.Stderr
	if format != "json" {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	base = zerolog.New(w).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &base
}

// SetOutput replaces the base logger's writer. Used by tests.
func SetOutput(w io.Writer) {
	base = zerolog.New(w).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &base
}

// Logger returns the base logger.
func Logger() *zerolog.Logger {
	return &base
}

// With returns a child logger tagged with the component name.
func With(component string) zerolog.Logger {
	return base.With().Str("component", component).Logger()
}

// FromContext returns the logger stored in ctx, or the base logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx == nil {
		return &base
	}
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		return &base
	}
	return l
}

func InfoLog(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Info().Msgf(format, args...)
}

func WarnLog(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Warn().Msgf(format, args...)
}

func ErrorLog(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Error().Msgf(format, args...)
}

func DebugLog(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Debug().Msgf(format, args...)
}
