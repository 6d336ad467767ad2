package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mixsafe-gateway/internal/cache"
	"mixsafe-gateway/internal/chem"
	"mixsafe-gateway/internal/config"
	"mixsafe-gateway/internal/pipeline"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(context.Background()))
	return out.String()
}

func useFileCache(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("MIXSAFE_CONFIG", "")
	t.Setenv("CACHE_BACKEND", "file")
	t.Setenv("CACHE_DIR", dir)
	t.Setenv("CACHE_VERSION", "v7")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func TestCacheKeyCommandIsOrderInsensitive(t *testing.T) {
	useFileCache(t)

	a := execute(t, "cache", "key", "Bleach", "ammonia")
	b := execute(t, "cache", "key", "AMMONIA", " bleach ")

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "pipeline:v7:"), a)
}

func TestCachePurgeRemovesEntry(t *testing.T) {
	dir := useFileCache(t)
	ctx := context.Background()

	cfg := config.DefaultConfig()
	cfg.Cache.Backend = "file"
	cfg.Cache.Dir = dir
	store, closer, err := openStore(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer closer.Close()

	key := cache.BuildKey([]string{"bleach", "ammonia"}, "v7")
	store.Put(ctx, key, chem.Result{Success: true, AiStatus: chem.AiSkipped})
	_, ok := store.Get(ctx, key)
	require.True(t, ok)

	out := execute(t, "cache", "purge", "ammonia", "bleach")
	assert.Contains(t, out, key.String())

	_, ok = store.Get(ctx, key)
	assert.False(t, ok)
}

func TestBuildAppWithoutCredentials(t *testing.T) {
	dir := useFileCache(t)

	cfg := config.DefaultConfig()
	cfg.Cache.Dir = dir
	a, err := buildApp(context.Background(), cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.endpoint.Configured())

	res, err := a.pipeline.Hybrid(context.Background(), pipeline.Request{
		Substances: []string{"7681-52-9", "7664-41-7"},
		UseAI:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, chem.AiUnavailable, res.AiStatus)
	assert.Equal(t, chem.StatusDanger, res.Classification.Summary.OverallStatus)
}

func TestCachePurgeVersion(t *testing.T) {
	dir := useFileCache(t)
	ctx := context.Background()

	cfg := config.DefaultConfig()
	cfg.Cache.Backend = "file"
	cfg.Cache.Dir = dir
	store, closer, err := openStore(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer closer.Close()

	store.Put(ctx, cache.BuildKey([]string{"bleach", "ammonia"}, "v6"), chem.Result{Success: true})
	store.Put(ctx, cache.BuildKey([]string{"bleach", "ammonia"}, "v7"), chem.Result{Success: true})

	out := execute(t, "cache", "purge", "--version", "v6")
	assert.Contains(t, out, "purged 1 entries of version v6")

	_, ok := store.Get(ctx, cache.BuildKey([]string{"bleach", "ammonia"}, "v7"))
	assert.True(t, ok)
}

func TestCachePurgeNeedsTarget(t *testing.T) {
	useFileCache(t)
	root := newRootCmd()
	root.SetArgs([]string{"cache", "purge"})
	assert.Error(t, root.ExecuteContext(context.Background()))
}
