package provider

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/any-hub/swforge/internal/config"
	"github.com/any-hub/swforge/internal/workbox"
)

func normalize(t *testing.T, workbox map[string]any) *config.Config {
	t.Helper()
	sw := map[string]any{"src": "sw.js"}
	if workbox != nil {
		sw["workbox"] = workbox
	}
	cfg, _, err := config.Normalize(map[string]any{"serviceworker": sw})
	require.NoError(t, err)
	return cfg
}

func names(strategies []workbox.Strategy) []string {
	out := make([]string, 0, len(strategies))
	for _, s := range strategies {
		out = append(out, s.Name())
	}
	return out
}

func TestCollectDefaultOrder(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"resource_caches": []any{map[string]any{"match_callback": `/\/api\//`, "cache_name": "api"}},
	})
	rc := NewRuntimeContext(cfg, "/assets/")

	strategies, err := Collect(cfg, rc, Default())
	require.NoError(t, err)
	assert.Equal(t, []string{"assets", "images", "fonts", "pages", "api"}, names(strategies))
	assert.Equal(t, []string{"asset_cache", "image_cache", "font_cache", "page_cache", "resource_caches"}, Default().Keys())
}

func TestProvidersSkipDisabledClasses(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"image_cache": false,
		"font_cache":  false,
		"page_cache":  false,
		"asset_cache": false,
	})
	strategies, err := Collect(cfg, NewRuntimeContext(cfg, ""), nil)
	require.NoError(t, err)
	assert.Empty(t, strategies)
}

func TestImageMatchExpressionExcludesPublicPrefix(t *testing.T) {
	cfg := normalize(t, nil)
	rc := NewRuntimeContext(cfg, "/assets/")

	strategies, err := ImageCache().Produce(cfg, rc)
	require.NoError(t, err)
	require.Len(t, strategies, 1)
	image := strategies[0]

	assert.Equal(t, workbox.CacheFirst, image.Kind())
	assert.Contains(t, image.MatchExpression(), "request.destination === 'image'")
	assert.Contains(t, image.MatchExpression(), "!url.pathname.startsWith('/assets')")
	require.Len(t, image.Plugins(), 2)
	assert.Equal(t, workbox.PluginCacheableResponse, image.Plugins()[0].Kind())
	entries, _ := image.Plugins()[1].Param("maxEntries")
	assert.Equal(t, 60, entries)

	assets, err := AssetCache().Produce(cfg, rc)
	require.NoError(t, err)
	assert.Contains(t, assets[0].MatchExpression(), "url.pathname.startsWith('/assets') && ")
	assert.Len(t, assets[0].Plugins(), 1)
}

func TestBoundedCacheWithoutLimitsHasNoExpiration(t *testing.T) {
	cfg := normalize(t, map[string]any{"font_cache": map[string]any{"max_entries": 0, "max_age": 0}})
	strategies, err := FontCache().Produce(cfg, NewRuntimeContext(cfg, ""))
	require.NoError(t, err)
	require.Len(t, strategies, 1)
	assert.Len(t, strategies[0].Plugins(), 1)
	assert.NotContains(t, strategies[0].MatchExpression(), "startsWith", "前缀为空时不追加排除条件")
}

func TestPageProviderUsesNetworkFirst(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"page_cache": map[string]any{"network_timeout": 4, "urls": []any{"/", map[string]any{"path": "/about", "params": map[string]any{"lang": "en"}}}},
	})
	strategies, err := PageCache().Produce(cfg, NewRuntimeContext(cfg, ""))
	require.NoError(t, err)
	require.Len(t, strategies, 1)
	page := strategies[0]
	assert.Equal(t, workbox.NetworkFirst, page.Kind())
	timeout, ok := page.NetworkTimeout()
	assert.True(t, ok)
	assert.Equal(t, 4, timeout)
	assert.Equal(t, []string{"/", "/about?lang=en"}, page.PreloadURLs())
	for _, p := range page.Plugins() {
		assert.NotEqual(t, workbox.PluginExpiration, p.Kind())
	}
}

func TestResourceCaches(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"resource_caches": []any{
			map[string]any{"match_callback": `/\/media\//g`, "strategy": "CacheFirst", "cache_name": "media", "max_entries": 5, "range_requests": true, "broadcast": true},
			map[string]any{"match_callback": "({request}) => request.destination === 'document'", "strategy": "NetworkOnly", "method": "post"},
			map[string]any{"match_callback": "/x/", "cache_name": "off", "enabled": false},
		},
	})
	strategies, err := ResourceCaches().Produce(cfg, NewRuntimeContext(cfg, ""))
	require.NoError(t, err)
	require.Len(t, strategies, 2)

	media := strategies[0]
	assert.Equal(t, `({url}) => /\/media\//.test(url.pathname)`, media.MatchExpression())
	var kinds []workbox.PluginKind
	for _, p := range media.Plugins() {
		kinds = append(kinds, p.Kind())
	}
	assert.Equal(t, []workbox.PluginKind{
		workbox.PluginCacheableResponse, workbox.PluginExpiration, workbox.PluginBroadcastUpdate, workbox.PluginRangeRequests,
	}, kinds)

	doc := strategies[1]
	assert.Equal(t, "resource_caches[1]", doc.Name())
	assert.Empty(t, doc.CacheName())
	assert.Equal(t, "POST", doc.Method())
	assert.True(t, strings.HasPrefix(doc.MatchExpression(), "({request})"))
}

func TestCollectRejectsDuplicateNames(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"font_cache": map[string]any{"cache_name": "images"},
	})
	_, err := Collect(cfg, NewRuntimeContext(cfg, ""), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrSchema))
	assert.Contains(t, err.Error(), "serviceworker.workbox.font_cache.cache_name")
}

func TestEveryClassAttachesCacheableResponse(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"resource_caches": []any{map[string]any{"match_callback": `/\/api\//`, "cache_name": "api"}},
	})
	strategies, err := Collect(cfg, NewRuntimeContext(cfg, ""), nil)
	require.NoError(t, err)
	for _, s := range strategies {
		require.NotEmpty(t, s.Plugins(), s.Name())
		first := s.Plugins()[0]
		assert.Equal(t, workbox.PluginCacheableResponse, first.Kind(), s.Name())
		statuses, ok := first.Param("statuses")
		require.True(t, ok)
		assert.Equal(t, []int{0, 200}, statuses, s.Name())
	}
}

func TestCollectRejectsQueueNamedLikeStrategy(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"background_sync": []any{
			map[string]any{"queue_name": "forms", "regex": `/\/submit\//`},
			map[string]any{"queue_name": "images", "regex": `/\/api\//`},
		},
	})
	_, err := Collect(cfg, NewRuntimeContext(cfg, ""), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrSchema))

	var fe *config.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "serviceworker.workbox.background_sync[1].queue_name", fe.Field)
}

func TestCheckQueueNamesRejectsRepeatedQueues(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"background_sync": []any{map[string]any{"queue_name": "forms", "regex": `/\/a\//`}},
	})
	wb := &cfg.ServiceWorker.Workbox
	wb.BackgroundSync = append(wb.BackgroundSync, wb.BackgroundSync[0])
	queues, err := BackgroundSyncQueues(cfg)
	require.NoError(t, err)

	err = CheckQueueNames(nil, queues)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "background_sync[1].queue_name")
	assert.NoError(t, CheckQueueNames(nil, queues[:1]))
}

func TestDescriptorsMirrorWorkboxEnabled(t *testing.T) {
	cfg := normalize(t, map[string]any{"enabled": false})
	strategies, err := Collect(cfg, NewRuntimeContext(cfg, ""), nil)
	require.NoError(t, err)
	require.NotEmpty(t, strategies)
	for _, s := range strategies {
		assert.False(t, s.Enabled(), s.Name())
	}
}

func TestBackgroundSyncQueues(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"background_sync": []any{map[string]any{"queue_name": "api", "regex": `/\/api\//`, "max_retention_time": 60, "force_sync_callback": true}},
	})
	queues, err := BackgroundSyncQueues(cfg)
	require.NoError(t, err)
	require.Len(t, queues, 1)
	q := queues[0]
	assert.Equal(t, workbox.NetworkOnly, q.Kind())
	assert.Equal(t, "POST", q.Method())
	require.Len(t, q.Plugins(), 1)
	force, ok := q.Plugins()[0].Param("forceSyncFallback")
	assert.True(t, ok)
	assert.Equal(t, true, force)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(ImageCache()))
	assert.Error(t, r.Register(ImageCache()))
	_, ok := r.Resolve("IMAGE_CACHE")
	assert.True(t, ok)
	assert.Panics(t, func() { r.MustRegister(ProviderFunc{Name: " "}) })
}
