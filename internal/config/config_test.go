package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLegacyImageKeys(t *testing.T) {
	cfg, notices, err := Normalize(withWorkbox(map[string]any{
		"image_cache_name": "pics",
		"max_image_age":    100,
	}))
	require.NoError(t, err)

	assert.Equal(t, BoundedCache{
		Enabled:    true,
		CacheName:  "pics",
		Regex:      DefaultImageRegex,
		MaxEntries: 60,
		MaxAge:     100,
	}, cfg.ServiceWorker.Workbox.ImageCache)

	require.Len(t, notices, 2)
	assert.Equal(t, "serviceworker.workbox.image_cache_name", notices[0].Key)
	assert.Equal(t, "serviceworker.workbox.image_cache.cache_name", notices[0].Replacement)
	assert.Equal(t, "serviceworker.workbox.max_image_age", notices[1].Key)
}

func TestNormalizeNestedWinsOverLegacy(t *testing.T) {
	cfg, notices, err := Normalize(withWorkbox(map[string]any{
		"image_cache_name": "legacy",
		"image_cache":      map[string]any{"cache_name": "new"},
	}))
	require.NoError(t, err)

	assert.Equal(t, "new", cfg.ServiceWorker.Workbox.ImageCache.CacheName)
	require.Len(t, notices, 1)
	assert.Equal(t, "serviceworker.workbox.image_cache_name", notices[0].Key)
}

func TestNormalizeDefaults(t *testing.T) {
	cfg, notices, err := Normalize(map[string]any{})
	require.NoError(t, err)
	assert.Empty(t, notices)
	assert.False(t, cfg.ServiceWorker.Enabled)
	assert.Equal(t, "/sw.js", cfg.ServiceWorker.Dest)
	assert.Equal(t, "7.0.0", cfg.ServiceWorker.Workbox.Version)
	assert.Equal(t, 3, cfg.ServiceWorker.Workbox.PageCache.NetworkTimeout)
	assert.Equal(t, 5000, cfg.Global.ListenPort)
}

func TestNormalizeShorthand(t *testing.T) {
	cfg, _, err := Normalize(map[string]any{"serviceworker": "assets/sw.js"})
	require.NoError(t, err)
	assert.True(t, cfg.ServiceWorker.Enabled)
	assert.Equal(t, "assets/sw.js", cfg.ServiceWorker.Src)

	cfg, _, err = Normalize(withWorkbox(map[string]any{
		"image_cache": false,
		"font_cache":  nil,
		"page_cache": map[string]any{
			"urls": []any{"/", map[string]any{"path": "/news", "params": map[string]any{"page": 2, "lang": "fr"}}},
		},
		"background_sync": []any{map[string]any{"queue_name": "api", "regex": `/\/api\//`}},
	}))
	require.NoError(t, err)
	wb := cfg.ServiceWorker.Workbox
	assert.False(t, wb.ImageCache.Enabled)
	assert.Equal(t, "images", wb.ImageCache.CacheName, "关闭的子树仍然填充默认值")
	assert.True(t, wb.FontCache.Enabled)
	require.Len(t, wb.PageCache.URLs, 2)
	assert.Equal(t, "/", wb.PageCache.URLs[0].URL())
	assert.Equal(t, "/news?lang=fr&page=2", wb.PageCache.URLs[1].URL())
	require.Len(t, wb.BackgroundSync, 1)
	assert.Equal(t, BackgroundSyncQueue{
		QueueName:        "api",
		Regex:            `/\/api\//`,
		Method:           "POST",
		MaxRetentionTime: 7200,
	}, wb.BackgroundSync[0])

	cfg, _, err = Normalize(map[string]any{
		"serviceworker": map[string]any{"src": "sw.js", "workbox": false},
	})
	require.NoError(t, err)
	assert.True(t, cfg.ServiceWorker.Enabled, "显式给出的 serviceworker 对象默认启用")
	assert.False(t, cfg.WorkboxActive())
}

func TestNormalizeOfflineFallbackObjectForm(t *testing.T) {
	cfg, notices, err := Normalize(withWorkbox(map[string]any{
		"page_fallback": map[string]any{"path": "/offline", "params": map[string]any{"v": 1}},
	}))
	require.NoError(t, err)
	assert.Equal(t, "/offline?v=1", cfg.ServiceWorker.Workbox.OfflineFallback.Page)
	require.Len(t, notices, 1)
	assert.Equal(t, "serviceworker.workbox.offline_fallback.page", notices[0].Replacement)
}

func TestNormalizeRemovedPlaceholderKeys(t *testing.T) {
	_, notices, err := Normalize(withWorkbox(map[string]any{
		"standard_rules_placeholder": "//RULES",
		"widgets_placeholder":        "//WIDGETS",
	}))
	require.NoError(t, err)
	require.Len(t, notices, 2)
	for _, n := range notices {
		assert.Empty(t, n.Replacement)
		assert.Contains(t, n.Message, "没有替代项")
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	raw := withWorkbox(map[string]any{
		"max_font_age":  3600,
		"page_fallback": "/offline.html",
		"google_fonts":  map[string]any{"cache_prefix": "gf", "max_entries": 10},
		"page_cache":    map[string]any{"urls": []any{map[string]any{"path": "/", "params": map[string]any{"a": "b"}}}},
		"background_sync": []any{
			map[string]any{"queue_name": "api", "regex": `/\/api\//`, "method": "put"},
		},
		"resource_caches": []any{
			map[string]any{"match_callback": `/\/data\//`, "strategy": "stale-while-revalidate", "cache_name": "data", "max_entries": 5},
			map[string]any{"match_callback": "({url}) => url.origin === 'https://cdn.example.com'", "strategy": "network_only"},
		},
	})
	raw["screenshots"] = []any{"shot.png", map[string]any{"path": "/", "height": 1080, "width": 1920, "form_factor": "wide"}}

	first, _, err := Normalize(raw)
	require.NoError(t, err)
	second, notices, err := Normalize(first.ToRaw())
	require.NoError(t, err)
	assert.Empty(t, notices)
	assert.Equal(t, first, second)
	assert.Equal(t, "StaleWhileRevalidate", first.ServiceWorker.Workbox.ResourceCaches[0].Strategy)
	assert.Equal(t, "PUT", first.ServiceWorker.Workbox.BackgroundSync[0].Method)
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	raw := withWorkbox(map[string]any{"image_cache_name": "pics"})
	_, _, err := Normalize(raw)
	require.NoError(t, err)
	wb := raw["serviceworker"].(map[string]any)["workbox"].(map[string]any)
	assert.Contains(t, wb, "image_cache_name")
	assert.NotContains(t, wb, "image_cache")
}

func TestNormalizeExclusivity(t *testing.T) {
	testCases := []struct {
		name string
		raw  map[string]any
	}{
		{"filepath mismatch", map[string]any{
			"serviceworker": map[string]any{"src": "sw.js", "filepath": "/var/www/public/service-worker.js"},
		}},
		{"screenshot with both", map[string]any{
			"screenshots": []any{map[string]any{"src": "a.png", "path": "/", "height": 1, "width": 1}},
		}},
		{"screenshot with neither", map[string]any{
			"screenshots": []any{map[string]any{"label": "home"}},
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, notices, err := Normalize(tc.raw)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Nil(t, notices)
			assert.True(t, errors.Is(err, ErrExclusivity), err.Error())
		})
	}

	_, _, err := Normalize(map[string]any{
		"serviceworker": map[string]any{"src": "js/sw.js", "filepath": "/srv/public/sw.js"},
	})
	assert.NoError(t, err, "文件名一致时允许目录不同")
}

func TestNormalizeSchemaErrors(t *testing.T) {
	testCases := []struct {
		name  string
		raw   map[string]any
		field string
	}{
		{"missing src", map[string]any{"serviceworker": true}, "serviceworker.src"},
		{"negative max age", withWorkbox(map[string]any{"image_cache": map[string]any{"max_age": -1}}), "serviceworker.workbox.image_cache.max_age"},
		{"wrong type", withWorkbox(map[string]any{"font_cache": map[string]any{"max_entries": "many"}}), "serviceworker.workbox.font_cache.max_entries"},
		{"legacy wrong type", withWorkbox(map[string]any{"max_image_cache_entries": "lots"}), "serviceworker.workbox.max_image_cache_entries"},
		{"unknown nested key", withWorkbox(map[string]any{"asset_cache": map[string]any{"ttl": 3}}), "serviceworker.workbox.asset_cache.ttl"},
		{"empty queue name", withWorkbox(map[string]any{"background_sync": []any{map[string]any{"queue_name": "", "regex": "/a/"}}}), "serviceworker.workbox.background_sync[0].queue_name"},
		{"bad method", withWorkbox(map[string]any{"background_sync": []any{map[string]any{"queue_name": "q", "regex": "/a/", "method": "FETCH"}}}), "serviceworker.workbox.background_sync[0].method"},
		{"duplicate queue", withWorkbox(map[string]any{"background_sync": []any{
			map[string]any{"queue_name": "q", "regex": "/a/"},
			map[string]any{"queue_name": "q", "regex": "/b/"},
		}}), "serviceworker.workbox.background_sync[1].queue_name"},
		{"regex shape", withWorkbox(map[string]any{"image_cache": map[string]any{"regex": `\.png$`}}), "serviceworker.workbox.image_cache.regex"},
		{"regex compile", withWorkbox(map[string]any{"font_cache": map[string]any{"regex": `/(woff/`}}), "serviceworker.workbox.font_cache.regex"},
		{"bad cache name", withWorkbox(map[string]any{"page_cache": map[string]any{"cache_name": "my pages"}}), "serviceworker.workbox.page_cache.cache_name"},
		{"unknown strategy", withWorkbox(map[string]any{"resource_caches": []any{map[string]any{"match_callback": "/a/", "strategy": "Fastest", "cache_name": "x"}}}), "serviceworker.workbox.resource_caches[0].strategy"},
		{"resource without cache name", withWorkbox(map[string]any{"resource_caches": []any{"/a/"}}), "serviceworker.workbox.resource_caches[0].cache_name"},
		{"timeout without network first", withWorkbox(map[string]any{"resource_caches": []any{map[string]any{"match_callback": "/a/", "strategy": "CacheFirst", "cache_name": "x", "network_timeout": 2}}}), "serviceworker.workbox.resource_caches[0].network_timeout"},
		{"screenshot path without size", map[string]any{"screenshots": []any{map[string]any{"path": "/"}}}, "screenshots[0]"},
		{"serviceworker wrong type", map[string]any{"serviceworker": 42}, "serviceworker"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, _, err := Normalize(tc.raw)
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.True(t, errors.Is(err, ErrSchema), err.Error())

			var fieldErr *FieldError
			require.True(t, errors.As(err, &fieldErr))
			assert.Equal(t, tc.field, fieldErr.Field)
		})
	}
}

func TestNormalizeIgnoresUnknownTopLevelKeys(t *testing.T) {
	_, _, err := Normalize(map[string]any{"name": "My App", "short_name": "app"})
	assert.NoError(t, err)
}

func TestDumpYAML(t *testing.T) {
	cfg, _, err := Normalize(withWorkbox(nil))
	require.NoError(t, err)
	out, err := cfg.DumpYAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "serviceworker:")
	assert.Contains(t, string(out), "cache_name: images")
	assert.NotContains(t, string(out), "image_cache_name")
}

// withWorkbox 构造启用 service worker 且带有指定 workbox 子树的原始配置。
func withWorkbox(workbox map[string]any) map[string]any {
	sw := map[string]any{"src": "sw.js"}
	if workbox != nil {
		sw["workbox"] = workbox
	}
	return map[string]any{"serviceworker": sw}
}
