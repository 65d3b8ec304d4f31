package compiler

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/any-hub/swforge/internal/config"
	"github.com/any-hub/swforge/internal/provider"
)

func normalize(t *testing.T, sw map[string]any) *config.Config {
	t.Helper()
	if _, ok := sw["src"]; !ok {
		sw["src"] = "sw.js"
	}
	cfg, _, err := config.Normalize(map[string]any{"serviceworker": sw})
	require.NoError(t, err)
	return cfg
}

func compile(t *testing.T, cfg *config.Config, prefix string) *Artifact {
	t.Helper()
	rc := provider.NewRuntimeContext(cfg, prefix)
	strategies, err := provider.Collect(cfg, rc, nil)
	require.NoError(t, err)
	art, err := Compile(cfg, strategies, Options{Runtime: rc})
	require.NoError(t, err)
	return art
}

func TestCompileIsDeterministic(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"workbox": map[string]any{
			"offline_fallback": map[string]any{"page": "/offline.html", "image": "/offline.png"},
			"page_cache":       map[string]any{"urls": []any{"/", map[string]any{"path": "/about", "params": map[string]any{"b": 2, "a": 1}}}},
			"background_sync":  []any{map[string]any{"queue_name": "forms", "regex": `/\/submit/`}},
			"google_fonts":     map[string]any{"cache_prefix": "gf", "max_entries": 10},
			"resource_caches": []any{
				map[string]any{"match_callback": `/\/api\//`, "cache_name": "api", "max_age": 60, "broadcast": true},
			},
		},
	})

	first := compile(t, cfg, "/build")
	second := compile(t, cfg, "/build")
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, first.CacheNames, second.CacheNames)
}

func TestCompileDefaultArtifact(t *testing.T) {
	art := compile(t, normalize(t, map[string]any{}), "/build")

	assert.True(t, strings.HasPrefix(art.Text, "importScripts('/workbox/workbox-sw.js');\nworkbox.setConfig({modulePathPrefix: '/workbox'});"))
	assert.Contains(t, art.Text, "const strategy_0 = new workbox.strategies.CacheFirst({\n  cacheName: 'assets'")
	assert.Contains(t, art.Text, "new workbox.strategies.NetworkFirst({\n  cacheName: 'pages',\n  networkTimeoutSeconds: 3")
	assert.Contains(t, art.Text, "workbox.recipes.googleFontsCache();")
	assert.Contains(t, art.Text, "url.pathname === '/site.webmanifest'")
	assert.Contains(t, art.Text, "const CACHE_NAMES = ['assets', 'images', 'fonts', 'pages', 'google-fonts-stylesheets', 'google-fonts-webfonts', 'manifest'];")
	assert.NotContains(t, art.Text, "PLACEHOLDER")
	assert.NotContains(t, art.Text, "skipWaiting")
	assert.True(t, strings.HasSuffix(art.Text, "});\n"))

	names := make([]string, 0, len(art.Strategies))
	for _, s := range art.Strategies {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"assets", "images", "fonts", "pages"}, names)
}

func TestCompileUsesCDNRuntime(t *testing.T) {
	art := compile(t, normalize(t, map[string]any{"workbox": map[string]any{"use_cdn": true, "version": "7.1.0"}}), "")
	assert.True(t, strings.HasPrefix(art.Text, "importScripts('https://storage.googleapis.com/workbox-cdn/releases/7.1.0/workbox-sw.js');\n"))
	assert.NotContains(t, art.Text, "setConfig")
}

func TestDisabledImageCacheLeavesNoTrace(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"workbox": map[string]any{
			"image_cache":      map[string]any{"enabled": false, "cache_name": "pics"},
			"offline_fallback": map[string]any{"image": "/offline.png"},
		},
	})
	art := compile(t, cfg, "")
	assert.Equal(t, 0, strings.Count(art.Text, "pics"))
	assert.NotContains(t, art.CacheNames, "pics")
	assert.Contains(t, art.Text, "image: {url: '/offline.png', cacheName: 'offline-fallbacks'}")

	defaults := compile(t, normalize(t, map[string]any{"workbox": map[string]any{"image_cache": false}}), "")
	assert.Equal(t, 0, strings.Count(defaults.Text, "images"))
}

func TestDisabledClassesAreSilent(t *testing.T) {
	for _, class := range []string{"font_cache", "page_cache", "asset_cache"} {
		t.Run(class, func(t *testing.T) {
			cfg := normalize(t, map[string]any{"workbox": map[string]any{class: false}})
			enabled := normalize(t, map[string]any{})
			name := map[string]string{
				"font_cache":  enabled.ServiceWorker.Workbox.FontCache.CacheName,
				"page_cache":  enabled.ServiceWorker.Workbox.PageCache.CacheName,
				"asset_cache": enabled.ServiceWorker.Workbox.AssetCache.CacheName,
			}[class]

			art := compile(t, cfg, "")
			assert.NotContains(t, art.Text, "'"+name+"'")
			assert.NotContains(t, art.CacheNames, name)
		})
	}
}

func TestStrategiesPrecedeOfflineWiring(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"workbox": map[string]any{"offline_fallback": map[string]any{"page": "/offline.html"}},
	})
	art := compile(t, cfg, "")

	decl := strings.Index(art.Text, "const strategy_0")
	wiring := strings.Index(art.Text, "const offlineFallbacks")
	require.NotEqual(t, -1, decl)
	require.NotEqual(t, -1, wiring)
	assert.Less(t, decl, wiring)
	assert.Contains(t, art.Text, "document: {url: '/offline.html', cacheName: 'pages'}")
}

func TestOfflineFallbackWithoutURLsIsSilent(t *testing.T) {
	art := compile(t, normalize(t, map[string]any{}), "")
	assert.NotContains(t, art.Text, "offlineFallbacks")
	assert.NotContains(t, art.Text, "setCatchHandler")
}

func TestOfflineFallbackRequiresDeclaredCache(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"workbox": map[string]any{"offline_fallback": map[string]any{"page": "/offline.html"}},
	})
	// 不传入任何策略，page_cache 的缓存名就不会被声明。
	_, err := Compile(cfg, nil, Options{Runtime: provider.NewRuntimeContext(cfg, "")})
	require.Error(t, err)

	var ce *ConsistencyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "offline-fallback", ce.Rule)
	assert.Contains(t, ce.Reason, "pages")
}

func TestManifestCacheNameClash(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"workbox": map[string]any{
			"resource_caches": []any{map[string]any{"match_callback": `/\/m\//`, "cache_name": "manifest"}},
		},
	})
	rc := provider.NewRuntimeContext(cfg, "")
	strategies, err := provider.Collect(cfg, rc, nil)
	require.NoError(t, err)

	_, err = Compile(cfg, strategies, Options{Runtime: rc})
	var ce *ConsistencyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "finalize", ce.Rule)
}

func TestBackgroundSyncAndSkipWaiting(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"skip_waiting": true,
		"workbox": map[string]any{
			"clear_cache":     false,
			"background_sync": []any{map[string]any{"queue_name": "forms", "regex": `/\/submit/g`, "method": "put"}},
		},
	})
	art := compile(t, cfg, "")

	assert.Contains(t, art.Text, "const backgroundSync_0 = new workbox.strategies.NetworkOnly({")
	assert.Contains(t, art.Text, "new workbox.backgroundSync.BackgroundSyncPlugin('forms', {\"maxRetentionTime\":7200})")
	assert.Contains(t, art.Text, "({url}) => /\\/submit/.test(url.pathname)")
	assert.Contains(t, art.Text, "  'PUT'\n);")
	assert.Contains(t, art.Text, "self.skipWaiting()")
	assert.NotContains(t, art.Text, "CACHE_NAMES")
	assert.Less(t, strings.Index(art.Text, "strategy_0"), strings.Index(art.Text, "backgroundSync_0"))
}

func TestCompileRejectsQueueNamedLikeStrategy(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"workbox": map[string]any{
			"background_sync": []any{map[string]any{"queue_name": "images", "regex": `/\/api\//`}},
		},
	})
	rc := provider.NewRuntimeContext(cfg, "")
	_, err := provider.Collect(cfg, rc, nil)
	require.Error(t, err)

	images, err := provider.ImageCache().Produce(cfg, rc)
	require.NoError(t, err)
	art, err := Compile(cfg, images, Options{Runtime: rc})
	require.Error(t, err)
	assert.Nil(t, art)
	assert.True(t, errors.Is(err, config.ErrSchema))

	var fe *config.FieldError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "serviceworker.workbox.background_sync[0].queue_name", fe.Field)
}

func TestGoogleFontsOptions(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"workbox": map[string]any{"google_fonts": map[string]any{"cache_prefix": "gf", "max_age": 600}},
	})
	art := compile(t, cfg, "")
	assert.Contains(t, art.Text, `workbox.recipes.googleFontsCache({"cachePrefix":"gf","maxAgeSeconds":600});`)
	assert.Contains(t, art.CacheNames, "gf-stylesheets")
	assert.Contains(t, art.CacheNames, "gf-webfonts")

	off := compile(t, normalize(t, map[string]any{"workbox": map[string]any{"google_fonts": false}}), "")
	assert.NotContains(t, off.Text, "googleFontsCache")
}

func TestWarmCacheURLs(t *testing.T) {
	cfg := normalize(t, map[string]any{
		"workbox": map[string]any{"page_cache": map[string]any{
			"urls": []any{"/", map[string]any{"path": "/search", "params": map[string]any{"q": "x", "page": 2}}},
		}},
	})
	art := compile(t, cfg, "")
	assert.Contains(t, art.Text, "workbox.recipes.warmStrategyCache({\n  urls: ['/', '/search?page=2&q=x'],\n  strategy: strategy_3\n});")
}

func TestWorkboxDisabledRendersTemplateOnly(t *testing.T) {
	cfg := normalize(t, map[string]any{"workbox": false})
	tpl := "// head\n" + importMarker + "\nself.foo = 1;\n" + rulesMarker + "\n" + offlineMarker + "\n// tail\n"

	art, err := Compile(cfg, nil, Options{Template: tpl})
	require.NoError(t, err)
	assert.Equal(t, "// head\n\nself.foo = 1;\n\n// tail\n", art.Text)
	assert.Empty(t, art.CacheNames)
	assert.Empty(t, art.Strategies)
}

func TestCompilePassesDeprecationsThrough(t *testing.T) {
	cfg, notices, err := config.Normalize(map[string]any{
		"serviceworker": map[string]any{"src": "sw.js", "workbox": map[string]any{"image_cache_name": "pics"}},
	})
	require.NoError(t, err)
	require.Len(t, notices, 1)

	rc := provider.NewRuntimeContext(cfg, "")
	strategies, err := provider.Collect(cfg, rc, nil)
	require.NoError(t, err)
	art, err := Compile(cfg, strategies, Options{Runtime: rc, Deprecations: notices})
	require.NoError(t, err)
	assert.Equal(t, notices, art.Deprecations)
	assert.Contains(t, art.CacheNames, "pics")
}

func TestCustomRulesReplacePipeline(t *testing.T) {
	cfg := normalize(t, map[string]any{})
	art, err := Compile(cfg, nil, Options{
		Runtime: provider.NewRuntimeContext(cfg, ""),
		Rules:   []Rule{importRule{}},
	})
	require.NoError(t, err)
	assert.Equal(t, "importScripts('/workbox/workbox-sw.js');\nworkbox.setConfig({modulePathPrefix: '/workbox'});\n", art.Text)
}
