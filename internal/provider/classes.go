package provider

import (
	"fmt"

	"github.com/any-hub/swforge/internal/config"
	"github.com/any-hub/swforge/internal/workbox"
)

// AssetCache 缓存打包工具输出的静态资源，只匹配 PublicAssetPrefix 之下的路径。
func AssetCache() Provider {
	return ProviderFunc{Name: "asset_cache", Fn: produceAssets}
}

func produceAssets(cfg *config.Config, rc RuntimeContext) ([]workbox.Strategy, error) {
	ac := cfg.ServiceWorker.Workbox.AssetCache
	if !ac.Enabled {
		return nil, nil
	}
	test, err := regexTest(ac.Regex)
	if err != nil {
		return nil, config.NewSchemaError(field("asset_cache", "regex"), err.Error())
	}
	match := "({url}) => " + test
	if rc.PublicAssetPrefix != "" {
		match = "({url}) => url.pathname.startsWith(" + workbox.QuoteJS(rc.PublicAssetPrefix) + ") && " + test
	}

	strategy, err := workbox.NewStrategy(workbox.StrategySpec{
		Name:            ac.CacheName,
		CacheName:       ac.CacheName,
		MatchExpression: match,
		Kind:            workbox.CacheFirst,
		Enabled:         cfg.ServiceWorker.Workbox.Enabled,
		RegisterRoute:   true,
		Plugins:         cacheable(),
	})
	if err != nil {
		return nil, config.NewSchemaError(field("asset_cache"), err.Error())
	}
	return []workbox.Strategy{strategy}, nil
}

// ImageCache 缓存图片请求，排除已由静态资源缓存处理的路径。
func ImageCache() Provider {
	return ProviderFunc{Name: "image_cache", Fn: func(cfg *config.Config, rc RuntimeContext) ([]workbox.Strategy, error) {
		return produceBounded("image_cache", "image", cfg.ServiceWorker.Workbox.ImageCache, cfg, rc)
	}}
}

// FontCache 与 ImageCache 相同，只是匹配 font 请求。
func FontCache() Provider {
	return ProviderFunc{Name: "font_cache", Fn: func(cfg *config.Config, rc RuntimeContext) ([]workbox.Strategy, error) {
		return produceBounded("font_cache", "font", cfg.ServiceWorker.Workbox.FontCache, cfg, rc)
	}}
}

func produceBounded(key, destination string, bc config.BoundedCache, cfg *config.Config, rc RuntimeContext) ([]workbox.Strategy, error) {
	if !bc.Enabled {
		return nil, nil
	}
	test, err := regexTest(bc.Regex)
	if err != nil {
		return nil, config.NewSchemaError(field(key, "regex"), err.Error())
	}
	plugins, err := withExpiration(cacheable(), bc.MaxEntries, bc.MaxAge)
	if err != nil {
		return nil, config.NewSchemaError(field(key), err.Error())
	}

	match := fmt.Sprintf("({request, url}) => (request.destination === '%s' || %s)%s", destination, test, excludePrefix(rc))
	strategy, err := workbox.NewStrategy(workbox.StrategySpec{
		Name:            bc.CacheName,
		CacheName:       bc.CacheName,
		MatchExpression: match,
		Kind:            workbox.CacheFirst,
		Enabled:         cfg.ServiceWorker.Workbox.Enabled,
		RegisterRoute:   true,
		Plugins:         plugins,
	})
	if err != nil {
		return nil, config.NewSchemaError(field(key), err.Error())
	}
	return []workbox.Strategy{strategy}, nil
}

// PageCache 以 NetworkFirst 处理导航请求，并预热配置中的页面。
func PageCache() Provider {
	return ProviderFunc{Name: "page_cache", Fn: producePages}
}

func producePages(cfg *config.Config, _ RuntimeContext) ([]workbox.Strategy, error) {
	pc := cfg.ServiceWorker.Workbox.PageCache
	if !pc.Enabled {
		return nil, nil
	}
	preload := make([]string, 0, len(pc.URLs))
	for _, u := range pc.URLs {
		preload = append(preload, u.URL())
	}

	strategy, err := workbox.NewStrategy(workbox.StrategySpec{
		Name:                  pc.CacheName,
		CacheName:             pc.CacheName,
		MatchExpression:       "({request}) => request.mode === 'navigate'",
		Kind:                  workbox.NetworkFirst,
		Enabled:               cfg.ServiceWorker.Workbox.Enabled,
		RegisterRoute:         true,
		NetworkTimeoutSeconds: pc.NetworkTimeout,
		Plugins:               cacheable(),
		PreloadURLs:           preload,
	})
	if err != nil {
		return nil, config.NewSchemaError(field("page_cache"), err.Error())
	}
	return []workbox.Strategy{strategy}, nil
}

// ResourceCaches 对应通用缓存规则列表，每个启用的条目产出一个策略。
func ResourceCaches() Provider {
	return ProviderFunc{Name: "resource_caches", Fn: produceResources}
}

func produceResources(cfg *config.Config, _ RuntimeContext) ([]workbox.Strategy, error) {
	var out []workbox.Strategy
	for i, rc := range cfg.ServiceWorker.Workbox.ResourceCaches {
		if !rc.Enabled {
			continue
		}
		base := fmt.Sprintf("resource_caches[%d]", i)

		match := rc.MatchCallback
		if config.IsRegexLiteral(match) {
			test, err := regexTest(match)
			if err != nil {
				return nil, config.NewSchemaError(field(base, "match_callback"), err.Error())
			}
			match = "({url}) => " + test
		}
		kind, err := workbox.ParseStrategyKind(rc.Strategy)
		if err != nil {
			return nil, config.NewSchemaError(field(base, "strategy"), err.Error())
		}

		plugins, err := withExpiration(cacheable(), rc.MaxEntries, rc.MaxAge)
		if err != nil {
			return nil, config.NewSchemaError(field(base), err.Error())
		}
		if rc.Broadcast {
			plugin, err := workbox.BroadcastUpdate()
			if err != nil {
				return nil, config.NewSchemaError(field(base, "broadcast"), err.Error())
			}
			plugins = append(plugins, plugin)
		}
		if rc.RangeRequests {
			plugins = append(plugins, workbox.RangeRequests())
		}

		name := rc.CacheName
		if name == "" {
			name = base
		}
		strategy, err := workbox.NewStrategy(workbox.StrategySpec{
			Name:                  name,
			CacheName:             rc.CacheName,
			MatchExpression:       match,
			Kind:                  kind,
			Enabled:               cfg.ServiceWorker.Workbox.Enabled,
			RegisterRoute:         rc.RegisterRoute,
			NetworkTimeoutSeconds: rc.NetworkTimeout,
			Method:                rc.Method,
			Plugins:               plugins,
		})
		if err != nil {
			return nil, config.NewSchemaError(field(base), err.Error())
		}
		out = append(out, strategy)
	}
	return out, nil
}
