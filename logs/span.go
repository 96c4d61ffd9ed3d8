package logs

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
)

// Span identifies one unit of work, such as a session or a snippet, across log records.
type Span string

type spanKey struct{}

func WithSpan(ctx context.Context, span Span) context.Context {
	return context.WithValue(ctx, spanKey{}, span)
}

func SpanFrom(ctx context.Context) (Span, bool) {
	span, ok := ctx.Value(spanKey{}).(Span)
	return span, ok && span != ""
}

type NewSpan func(ctx context.Context, parent Span) (context.Context, Span)

// NewSpan starts a span under parent, or under the span of ctx if parent is empty.
func (Module) NewSpan(
	logger Logger,
) NewSpan {
	return func(ctx context.Context, parent Span) (context.Context, Span) {
		creator, _ := SpanFrom(ctx)
		if parent == "" {
			parent = creator
		}

		span := Span(rand.Text()[:12])
		ctx = WithSpan(ctx, span)

		var args []any
		if creator != "" && creator != parent {
			args = append(args, "creator", creator)
		}
		if parent != "" {
			args = append(args, "parent", parent)
		}
		logger.DebugContext(ctx, "new span", args...)

		return ctx, span
	}
}

// WrapSpan annotates err with the span of ctx.
func WrapSpan(ctx context.Context, err error) error {
	span, ok := SpanFrom(ctx)
	if !ok || err == nil {
		return err
	}
	return fmt.Errorf("%w (span %s)", err, span)
}

// Handler adds the span of the context to every record.
type Handler struct {
	slog.Handler
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if span, ok := SpanFrom(ctx); ok {
		record.Add("span", span)
	}
	return h.Handler.Handle(ctx, record)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		Handler: h.Handler.WithAttrs(attrs),
	}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{
		Handler: h.Handler.WithGroup(name),
	}
}
