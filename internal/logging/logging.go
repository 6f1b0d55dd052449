// Package logging builds the zerolog loggers used by the grid9 binaries and
// carries them through request contexts.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type loggerContextKey struct {
	name string
}

var loggerCtxKey = &loggerContextKey{"logger"}

// NewLogger returns a logger tagged with service and version and a context
// that carries it. An unknown level falls back to info.
func NewLogger(ctx context.Context, serviceName, serviceVersion, level string, pretty bool) (context.Context, zerolog.Logger) {
	return newLogger(ctx, os.Stderr, serviceName, serviceVersion, level, pretty)
}

func newLogger(ctx context.Context, out io.Writer, serviceName, serviceVersion, level string, pretty bool) (context.Context, zerolog.Logger) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	if pretty || isTerminal(out) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(out).Level(lvl).With().
		Timestamp().
		Str("service", strings.ToLower(serviceName)).
		Str("version", serviceVersion).
		Logger()

	ctx = NewContextWithLogger(ctx, logger)
	return ctx, logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func NewContextWithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey, logger)
}

func GetLoggerFromContext(ctx context.Context) zerolog.Logger {
	logger, ok := ctx.Value(loggerCtxKey).(zerolog.Logger)
	if !ok {
		return log.Logger
	}
	return logger
}

// Time starts a timer for op. Call the returned func with a pointer to the
// operation's error to log its duration and outcome.
func Time(ctx context.Context, op string) func(errp *error) {
	start := time.Now()
	logger := GetLoggerFromContext(ctx)

	return func(errp *error) {
		dur := time.Since(start)
		if errp != nil && *errp != nil {
			logger.Error().Err(*errp).Str("op", op).Dur("dur", dur).Msg("operation failed")
			return
		}
		logger.Debug().Str("op", op).Dur("dur", dur).Msg("operation done")
	}
}
