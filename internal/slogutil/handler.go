package slogutil

import (
	"context"
	"log/slog"
	"os"
)

// Hook amends a record before it reaches the wrapped handler. Hooks run in
// order on a clone, so they may add attributes freely.
type Hook func(ctx context.Context, r *slog.Record)

// Handler is a slog.Handler that runs hooks on every record.
type Handler struct {
	handler slog.Handler
	hooks   []Hook
}

// WrapHandler wraps h so records carry the context data set with With,
// followed by whatever the extra hooks add. A nil h logs text to stdout.
func WrapHandler(h slog.Handler, hooks ...Hook) Handler {
	if h == nil {
		h = slog.NewTextHandler(os.Stdout, nil)
	}

	all := make([]Hook, 0, len(hooks)+1)
	all = append(all, contextHook)
	for _, hook := range hooks {
		if hook != nil {
			all = append(all, hook)
		}
	}

	return Handler{handler: h, hooks: all}
}

func (h Handler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.handler.Enabled(ctx, l)
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	r = r.Clone()
	for _, hook := range h.hooks {
		hook(ctx, &r)
	}

	return h.handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{handler: h.handler.WithAttrs(attrs), hooks: h.hooks}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{handler: h.handler.WithGroup(name), hooks: h.hooks}
}

// Derive returns a hook that adds dst computed from the context value under
// src. Records whose context lacks src, or that already carry dst, are left
// alone.
func Derive(src, dst string, fn func(slog.Value) slog.Value) Hook {
	return func(ctx context.Context, r *slog.Record) {
		v, ok := Lookup(ctx, src)
		if !ok || hasAttr(r, dst) {
			return
		}
		if _, set := Lookup(ctx, dst); set {
			return
		}
		r.AddAttrs(slog.Attr{Key: dst, Value: fn(v)})
	}
}

func hasAttr(r *slog.Record, key string) bool {
	found := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			found = true
			return false
		}
		return true
	})
	return found
}
