package config

const (
	DefaultImageRegex = `/\.(ico|png|jpe?g|gif|svg|webp|bmp)$/`
	DefaultFontRegex  = `/\.(ttf|eot|otf|woff2)$/`
	DefaultAssetRegex = `/\.(css|js|json|xml|txt|map|ico|png|jpe?g|gif|svg|webp|bmp)$/`

	oneYear = 60 * 60 * 24 * 365
)

// DefaultConfig 返回全部叶子字段都已填充默认值的配置，Normalize 在其之上解码。
func DefaultConfig() Config {
	return Config{
		Global: GlobalConfig{
			ListenPort:    5000,
			LogLevel:      "info",
			LogMaxSize:    100,
			LogMaxBackups: 10,
			LogCompress:   true,
		},
		ServiceWorker: ServiceWorkerConfig{
			Dest:     "/sw.js",
			Scope:    "/",
			UseCache: true,
			Workbox: WorkboxConfig{
				Enabled:          true,
				Version:          "7.0.0",
				WorkboxPublicURL: "/workbox",
				CacheManifest:    true,
				ManifestURL:      "/site.webmanifest",
				ClearCache:       true,
				GoogleFonts:      GoogleFonts{Enabled: true},
				OfflineFallback:  OfflineFallback{Enabled: true},
				ImageCache: BoundedCache{
					Enabled:    true,
					CacheName:  "images",
					Regex:      DefaultImageRegex,
					MaxEntries: 60,
					MaxAge:     oneYear,
				},
				FontCache: BoundedCache{
					Enabled:    true,
					CacheName:  "fonts",
					Regex:      DefaultFontRegex,
					MaxEntries: 60,
					MaxAge:     oneYear,
				},
				AssetCache: AssetCache{
					Enabled:   true,
					CacheName: "assets",
					Regex:     DefaultAssetRegex,
				},
				PageCache: PageCache{
					Enabled:        true,
					CacheName:      "pages",
					NetworkTimeout: 3,
				},
			},
		},
	}
}

// 列表元素没有默认值可供 mapstructure 复用，解码前逐项补齐。
func backgroundSyncItemDefaults() map[string]any {
	return map[string]any{
		"method":              "POST",
		"max_retention_time":  60 * 24 * 5,
		"force_sync_callback": false,
	}
}

func resourceCacheItemDefaults() map[string]any {
	return map[string]any{
		"enabled":        true,
		"strategy":       "NetworkFirst",
		"register_route": true,
		"method":         "GET",
	}
}
