package slogutil

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/rbmmusic/assetcache/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNewLogger_ContextAttrs(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := NewLogger(&buf, "info")

	ctx := With(context.Background(), "url", "https://cdn.example/a.png")
	logger.InfoContext(ctx, "cached")

	assert.Contains(t, buf.String(), "msg=cached")
	assert.Contains(t, buf.String(), "url=https://cdn.example/a.png")
}

func TestLevelUpdater(t *testing.T) {
	var buf bytes.Buffer
	logger, leveler := NewLogger(&buf, "info")

	logger.Debug("hidden")
	assert.Empty(t, buf.String())

	oldCfg := config.DefaultConfig()
	newCfg := config.DefaultConfig()
	newCfg.Log.Level = "debug"
	LevelUpdater(leveler)(oldCfg, newCfg)

	assert.Equal(t, slog.LevelDebug, leveler.Level())
	logger.Debug("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
	assert.Equal(t, slog.LevelInfo, (&DynamicLeveler{}).Level())
}

func TestAttrs_SortedAndOverridden(t *testing.T) {
	ctx := With(context.Background(), "url", "a", "kind", "image")
	ctx = With(ctx, "url", "b")

	attrs := Attrs(ctx)
	if assert.Len(t, attrs, 2) {
		assert.Equal(t, "kind", attrs[0].Key)
		assert.Equal(t, "url", attrs[1].Key)
		assert.Equal(t, "b", attrs[1].Value.String())
	}

	assert.Nil(t, Attrs(context.Background()))
}

func TestDerive_StampsAttributeFromContext(t *testing.T) {
	var buf bytes.Buffer
	upper := Derive("url", "host", func(v slog.Value) slog.Value {
		return slog.StringValue(strings.ToUpper(v.String()))
	})
	logger, _ := NewLogger(&buf, "info", upper)

	logger.InfoContext(With(context.Background(), "url", "cdn"), "first")
	assert.Contains(t, buf.String(), "host=CDN")

	buf.Reset()
	logger.InfoContext(context.Background(), "no url")
	assert.NotContains(t, buf.String(), "host=")

	buf.Reset()
	logger.InfoContext(With(context.Background(), "url", "cdn"), "explicit", "host", "mirror")
	assert.Contains(t, buf.String(), "host=mirror")
	assert.NotContains(t, buf.String(), "host=CDN")

	buf.Reset()
	logger.With("component", "test").InfoContext(With(context.Background(), "url", "cdn"), "derived")
	assert.Contains(t, buf.String(), "component=test")
	assert.Contains(t, buf.String(), "host=CDN")
}

func TestWrapHandler_SkipsNilHooks(t *testing.T) {
	var buf bytes.Buffer
	h := WrapHandler(slog.NewTextHandler(&buf, nil), nil)

	slog.New(h).InfoContext(With(context.Background(), "url", "a"), "ok")
	assert.Contains(t, buf.String(), "url=a")
}

func TestLookup(t *testing.T) {
	ctx := With(context.Background(), "url", "a")

	v, ok := Lookup(ctx, "url")
	assert.True(t, ok)
	assert.Equal(t, "a", v.String())

	_, ok = Lookup(ctx, "kind")
	assert.False(t, ok)

	_, ok = Lookup(context.Background(), "url")
	assert.False(t, ok)
}
