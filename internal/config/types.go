package config

// GlobalConfig 描述 CLI 与诊断服务共享的运行参数，位于配置文件顶层。
type GlobalConfig struct {
	ListenPort    int    `mapstructure:"listen_port"`
	LogLevel      string `mapstructure:"log_level"`
	LogFilePath   string `mapstructure:"log_file_path"`
	LogMaxSize    int    `mapstructure:"log_max_size"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
	LogCompress   bool   `mapstructure:"log_compress"`
}

// Config 是归一化后的配置树，构造完成后只读。
type Config struct {
	Global        GlobalConfig        `mapstructure:",squash"`
	ServiceWorker ServiceWorkerConfig `mapstructure:"serviceworker"`
	Screenshots   []Screenshot        `mapstructure:"screenshots"`
}

// ServiceWorkerConfig 对应 serviceworker 子树。
type ServiceWorkerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Src         string        `mapstructure:"src"`
	Dest        string        `mapstructure:"dest"`
	Filepath    string        `mapstructure:"filepath"`
	Scope       string        `mapstructure:"scope"`
	SkipWaiting bool          `mapstructure:"skip_waiting"`
	UseCache    bool          `mapstructure:"use_cache"`
	Workbox     WorkboxConfig `mapstructure:"workbox"`
}

// WorkboxConfig 汇总各资源类别的缓存策略。
type WorkboxConfig struct {
	Enabled          bool                  `mapstructure:"enabled"`
	UseCDN           bool                  `mapstructure:"use_cdn"`
	Version          string                `mapstructure:"version"`
	WorkboxPublicURL string                `mapstructure:"workbox_public_url"`
	CacheManifest    bool                  `mapstructure:"cache_manifest"`
	ManifestURL      string                `mapstructure:"manifest_url"`
	ClearCache       bool                  `mapstructure:"clear_cache"`
	GoogleFonts      GoogleFonts           `mapstructure:"google_fonts"`
	OfflineFallback  OfflineFallback       `mapstructure:"offline_fallback"`
	ImageCache       BoundedCache          `mapstructure:"image_cache"`
	FontCache        BoundedCache          `mapstructure:"font_cache"`
	AssetCache       AssetCache            `mapstructure:"asset_cache"`
	PageCache        PageCache             `mapstructure:"page_cache"`
	BackgroundSync   []BackgroundSyncQueue `mapstructure:"background_sync"`
	ResourceCaches   []ResourceCache       `mapstructure:"resource_caches"`
}

// BoundedCache 用于图片、字体这类按条目数与时长淘汰的缓存。
type BoundedCache struct {
	Enabled    bool   `mapstructure:"enabled"`
	CacheName  string `mapstructure:"cache_name"`
	Regex      string `mapstructure:"regex"`
	MaxEntries int    `mapstructure:"max_entries"`
	MaxAge     int    `mapstructure:"max_age"`
}

// AssetCache 匹配打包工具产出的静态资源。
type AssetCache struct {
	Enabled   bool   `mapstructure:"enabled"`
	CacheName string `mapstructure:"cache_name"`
	Regex     string `mapstructure:"regex"`
}

// PageCache 采用 NetworkFirst，页面不做容量与时长限制。
type PageCache struct {
	Enabled        bool      `mapstructure:"enabled"`
	CacheName      string    `mapstructure:"cache_name"`
	NetworkTimeout int       `mapstructure:"network_timeout"`
	URLs           []WarmURL `mapstructure:"urls"`
}

// WarmURL 是需要在安装阶段预热的页面。
type WarmURL struct {
	Path   string         `mapstructure:"path"`
	Params map[string]any `mapstructure:"params"`
}

// OfflineFallback 各字段为离线时返回的 URL，空字符串表示不提供。
type OfflineFallback struct {
	Enabled bool   `mapstructure:"enabled"`
	Page    string `mapstructure:"page"`
	Image   string `mapstructure:"image"`
	Font    string `mapstructure:"font"`
}

// GoogleFonts 对应 workbox.recipes.googleFontsCache 的参数，nil 表示沿用 Workbox 默认值。
type GoogleFonts struct {
	Enabled     bool   `mapstructure:"enabled"`
	CachePrefix string `mapstructure:"cache_prefix"`
	MaxAge      *int   `mapstructure:"max_age"`
	MaxEntries  *int   `mapstructure:"max_entries"`
}

// BackgroundSyncQueue 描述一条离线重放队列，MaxRetentionTime 以分钟计。
type BackgroundSyncQueue struct {
	QueueName         string `mapstructure:"queue_name"`
	Regex             string `mapstructure:"regex"`
	Method            string `mapstructure:"method"`
	MaxRetentionTime  int    `mapstructure:"max_retention_time"`
	ForceSyncCallback bool   `mapstructure:"force_sync_callback"`
}

// ResourceCache 是通用缓存规则，MatchCallback 可以是正则字面量或 JS 表达式。
type ResourceCache struct {
	Enabled        bool   `mapstructure:"enabled"`
	MatchCallback  string `mapstructure:"match_callback"`
	Strategy       string `mapstructure:"strategy"`
	CacheName      string `mapstructure:"cache_name"`
	NetworkTimeout int    `mapstructure:"network_timeout"`
	MaxEntries     int    `mapstructure:"max_entries"`
	MaxAge         int    `mapstructure:"max_age"`
	Broadcast      bool   `mapstructure:"broadcast"`
	RangeRequests  bool   `mapstructure:"range_requests"`
	RegisterRoute  bool   `mapstructure:"register_route"`
	Method         string `mapstructure:"method"`
}

// Screenshot 必须在 src（现成图片）与 path（生成截图的页面）中二选一。
type Screenshot struct {
	Src        string `mapstructure:"src"`
	Path       string `mapstructure:"path"`
	Height     *int   `mapstructure:"height"`
	Width      *int   `mapstructure:"width"`
	FormFactor string `mapstructure:"form_factor"`
	Label      string `mapstructure:"label"`
	Platform   string `mapstructure:"platform"`
	Format     string `mapstructure:"format"`
}

// WorkboxActive 表示是否需要生成 Workbox 相关脚本。
func (c *Config) WorkboxActive() bool {
	return c.ServiceWorker.Enabled && c.ServiceWorker.Workbox.Enabled
}
