package assetcache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckURL(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t)
	ctx := context.Background()

	url := env.cdn.url("/covers/check.JPG")

	before := m.CheckURL(ctx, url)
	assert.False(t, before.Cached)
	assert.False(t, before.Instant)
	assert.True(t, before.NeedsUpdate)
	assert.Nil(t, before.Metadata)
	assert.Equal(t, KindImage, before.Kind)

	res, err := m.CacheImage(ctx, url, false)
	require.NoError(t, err)

	after := m.CheckURL(ctx, url)
	assert.True(t, after.Cached)
	assert.True(t, after.Instant)
	assert.Equal(t, res.Path, after.LocalPath)
	assert.Equal(t, res.Path, after.InstantPath)
	assert.False(t, after.NeedsUpdate)
	require.NotNil(t, after.Metadata)
	assert.Equal(t, "jpg", after.Metadata.Extension)
}

func TestCheckInstant(t *testing.T) {
	env := newTestEnv(t)
	m := env.manager(t)
	ctx := context.Background()

	cached := env.cdn.url("/covers/in.png")
	missing := env.cdn.url("/covers/out.png")

	report := m.CheckInstant([]string{cached})
	assert.False(t, report.Ready)

	_, err := m.CacheImage(ctx, cached, false)
	require.NoError(t, err)

	report = m.CheckInstant([]string{cached, missing})
	assert.True(t, report.Ready)
	assert.Equal(t, 1, report.IndexSize)
	require.Len(t, report.Results, 2)
	assert.True(t, report.Results[0].Cached)
	assert.Equal(t, "in.png", report.Results[0].Name)
	assert.NotEmpty(t, report.Results[0].Path)
	assert.False(t, report.Results[1].Cached)
}
