// Package logger wraps zerolog for the gallery services. Fields travel on the
// request context, so handlers and jobs tag a context once and every later
// entry written with it carries the same fields.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/angelmondragon/gallery-backend/pkg/env"
	"github.com/rs/zerolog"
)

const (
	// EnvLogFormat selects "json" (default) or "console" output.
	EnvLogFormat = "GALLERY_LOG_FORMAT"
	// EnvLogNoColor disables ANSI colors in console output.
	EnvLogNoColor = "GALLERY_LOG_NO_COLOR"

	consoleTimeFormat = "15:04:05"
)

// Options controls how New builds a Logger. A zero Level means info and a
// nil Output means stdout.
type Options struct {
	ServiceName string
	Level       zerolog.Level
	WarnStack   bool
	Output      io.Writer
}

// Logger writes leveled entries stamped with the service name and any fields
// attached to the context.
type Logger struct {
	root      *zerolog.Logger
	warnStack bool
}

type fieldsKey struct{}

func New(opts Options) *Logger {
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	root := zerolog.New(writerFor(opts.Output)).
		Level(level).
		With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()

	return &Logger{root: &root, warnStack: opts.WarnStack}
}

func writerFor(out io.Writer) io.Writer {
	if out == nil {
		out = os.Stdout
	}
	if !strings.EqualFold(env.Get(EnvLogFormat, "json"), "console") {
		return out
	}
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: consoleTimeFormat,
		NoColor:    env.Bool(EnvLogNoColor, false),
	}
}

// ParseLevel maps GALLERY_LOG_LEVEL to a zerolog level. Unknown values fall
// back to info rather than failing startup.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if tagged, ok := ctx.Value(fieldsKey{}).(*zerolog.Logger); ok {
			return tagged
		}
	}
	return l.root
}

func (l *Logger) extend(ctx context.Context, add func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	tagged := add(l.from(ctx).With()).Logger()
	return context.WithValue(ctx, fieldsKey{}, &tagged)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.extend(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Interface(key, value)
	})
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.extend(ctx, func(c zerolog.Context) zerolog.Context {
		return c.Fields(fields)
	})
}

func (l *Logger) WithRequestID(ctx context.Context, requestID string) context.Context {
	return l.WithField(ctx, "request_id", requestID)
}

// WithUploadID tags every entry of one upload request.
func (l *Logger) WithUploadID(ctx context.Context, uploadID string) context.Context {
	return l.WithField(ctx, "upload_id", uploadID)
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.from(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.from(ctx).Info().Msg(msg)
}

// Warn attaches a stack only when the logger was built with WarnStack.
func (l *Logger) Warn(ctx context.Context, msg string) {
	entry := l.from(ctx).Warn()
	if l.warnStack {
		entry = entry.Str("stack", stack())
	}
	entry.Msg(msg)
}

// Error always attaches a stack. err may be nil.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	entry := l.from(ctx).Error().Str("stack", stack())
	if err != nil {
		entry = entry.Err(err)
	}
	entry.Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
