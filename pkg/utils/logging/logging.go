package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
)

// Format is the output format of the logger
type Format int

const (
	FormatConsole Format = iota + 1
	FormatJSON
)

type ctxLoggerKey struct{}

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// Default returns the process wide logger
func Default() *slog.Logger {
	return defaultLogger.Load()
}

// SetDefault replaces the process wide logger
func SetDefault(logger *slog.Logger) {
	if logger == nil {
		return
	}
	defaultLogger.Store(logger)
}

// With returns a new context carrying the logger
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, logger)
}

// From returns the logger stored in ctx, or the default logger.
func From(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(ctxLoggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return Default()
}

// New builds a logger writing to w. Struct fields tagged `masq:"secret"` are
// redacted in both formats.
func New(w io.Writer, level slog.Level, format Format, stacktrace bool) *slog.Logger {
	filter := masq.New(
		masq.WithTag("secret"),
		masq.WithFieldPrefix("secret_"),
	)

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			AddSource:   true,
			Level:       level,
			ReplaceAttr: filter,
		})
	default:
		handler = clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithReplaceAttr(filter),
			clog.WithSource(true),
		)
	}

	return slog.New(&errorHandler{Handler: handler, stacktrace: stacktrace})
}

// errorHandler expands error attributes before the output handler resolves
// them. goerr errors implement slog.LogValuer, so ReplaceAttr only ever sees
// their already resolved group.
type errorHandler struct {
	slog.Handler
	stacktrace bool
}

func (h *errorHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(attr slog.Attr) bool {
		out.AddAttrs(errorAttr(attr, h.stacktrace))
		return true
	})
	return h.Handler.Handle(ctx, out)
}

func (h *errorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	expanded := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		expanded[i] = errorAttr(attr, h.stacktrace)
	}
	return &errorHandler{Handler: h.Handler.WithAttrs(expanded), stacktrace: h.stacktrace}
}

func (h *errorHandler) WithGroup(name string) slog.Handler {
	return &errorHandler{Handler: h.Handler.WithGroup(name), stacktrace: h.stacktrace}
}

// errorAttr expands goerr errors into message, values and optionally stack.
func errorAttr(attr slog.Attr, stacktrace bool) slog.Attr {
	err, ok := attr.Value.Any().(error)
	if !ok {
		return attr
	}

	var ge *goerr.Error
	if !errors.As(err, &ge) {
		return slog.String(attr.Key, err.Error())
	}

	attrs := []any{
		slog.String("message", err.Error()),
	}
	if values := ge.Values(); len(values) > 0 {
		attrs = append(attrs, slog.Any("values", values))
	}
	if stacktrace {
		attrs = append(attrs, slog.Any("stack", ge.Stacks()))
	}
	return slog.Group(attr.Key, attrs...)
}
