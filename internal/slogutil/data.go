package slogutil

import (
	"context"
	"log/slog"
	"maps"
	"slices"
)

type data map[string]slog.Attr

type dataKey struct{}

func cloneData(ctx context.Context) data {
	d, ok := ctx.Value(dataKey{}).(data)
	if !ok {
		return data{}
	}

	return maps.Clone(d)
}

// With returns a new context carrying the given key-value pairs. Every record
// logged with that context through a wrapped handler gets them attached.
func With(ctx context.Context, kvargs ...any) context.Context {
	if len(kvargs) == 0 {
		return ctx
	}

	d := cloneData(ctx)

	var r slog.Record
	r.Add(kvargs...)
	r.Attrs(func(a slog.Attr) bool {
		d[a.Key] = a
		return true
	})

	return context.WithValue(ctx, dataKey{}, d)
}

// Attrs returns the attributes in the context ordered by key, so repeated
// log lines for the same asset read the same way.
func Attrs(ctx context.Context) []slog.Attr {
	d, ok := ctx.Value(dataKey{}).(data)
	if !ok || len(d) == 0 {
		return nil
	}

	keys := slices.Sorted(maps.Keys(d))
	attrs := make([]slog.Attr, len(keys))
	for i, k := range keys {
		attrs[i] = d[k]
	}

	return attrs
}

// Lookup returns the context value stored under key.
func Lookup(ctx context.Context, key string) (slog.Value, bool) {
	d, ok := ctx.Value(dataKey{}).(data)
	if !ok {
		return slog.Value{}, false
	}

	a, ok := d[key]
	return a.Value, ok
}

func contextHook(ctx context.Context, r *slog.Record) {
	r.AddAttrs(Attrs(ctx)...)
}
