package config

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ToRaw 输出规范配置树，空的可选字段省略；再次 Normalize 会得到相同的 Config。
func (c *Config) ToRaw() map[string]any {
	g := c.Global
	root := map[string]any{
		"listen_port":     g.ListenPort,
		"log_level":       g.LogLevel,
		"log_max_size":    g.LogMaxSize,
		"log_max_backups": g.LogMaxBackups,
		"log_compress":    g.LogCompress,
		"serviceworker":   c.ServiceWorker.toRaw(),
	}
	putString(root, "log_file_path", g.LogFilePath)

	if len(c.Screenshots) > 0 {
		shots := make([]any, 0, len(c.Screenshots))
		for _, s := range c.Screenshots {
			shot := map[string]any{}
			putString(shot, "src", s.Src)
			putString(shot, "path", s.Path)
			putIntPtr(shot, "height", s.Height)
			putIntPtr(shot, "width", s.Width)
			putString(shot, "form_factor", s.FormFactor)
			putString(shot, "label", s.Label)
			putString(shot, "platform", s.Platform)
			putString(shot, "format", s.Format)
			shots = append(shots, shot)
		}
		root["screenshots"] = shots
	}
	return root
}

func (sw ServiceWorkerConfig) toRaw() map[string]any {
	out := map[string]any{
		"enabled":      sw.Enabled,
		"dest":         sw.Dest,
		"scope":        sw.Scope,
		"skip_waiting": sw.SkipWaiting,
		"use_cache":    sw.UseCache,
		"workbox":      sw.Workbox.toRaw(),
	}
	putString(out, "src", sw.Src)
	putString(out, "filepath", sw.Filepath)
	return out
}

func (wb WorkboxConfig) toRaw() map[string]any {
	fonts := map[string]any{"enabled": wb.GoogleFonts.Enabled}
	putString(fonts, "cache_prefix", wb.GoogleFonts.CachePrefix)
	putIntPtr(fonts, "max_age", wb.GoogleFonts.MaxAge)
	putIntPtr(fonts, "max_entries", wb.GoogleFonts.MaxEntries)

	fallback := map[string]any{"enabled": wb.OfflineFallback.Enabled}
	putString(fallback, "page", wb.OfflineFallback.Page)
	putString(fallback, "image", wb.OfflineFallback.Image)
	putString(fallback, "font", wb.OfflineFallback.Font)

	page := map[string]any{
		"enabled":         wb.PageCache.Enabled,
		"cache_name":      wb.PageCache.CacheName,
		"network_timeout": wb.PageCache.NetworkTimeout,
	}
	if len(wb.PageCache.URLs) > 0 {
		urls := make([]any, 0, len(wb.PageCache.URLs))
		for _, u := range wb.PageCache.URLs {
			entry := map[string]any{"path": u.Path}
			if len(u.Params) > 0 {
				params := make(map[string]any, len(u.Params))
				for key, value := range u.Params {
					params[key] = cloneValue(value)
				}
				entry["params"] = params
			}
			urls = append(urls, entry)
		}
		page["urls"] = urls
	}

	out := map[string]any{
		"enabled":            wb.Enabled,
		"use_cdn":            wb.UseCDN,
		"version":            wb.Version,
		"workbox_public_url": wb.WorkboxPublicURL,
		"cache_manifest":     wb.CacheManifest,
		"manifest_url":       wb.ManifestURL,
		"clear_cache":        wb.ClearCache,
		"google_fonts":       fonts,
		"offline_fallback":   fallback,
		"image_cache":        wb.ImageCache.toRaw(),
		"font_cache":         wb.FontCache.toRaw(),
		"asset_cache": map[string]any{
			"enabled":    wb.AssetCache.Enabled,
			"cache_name": wb.AssetCache.CacheName,
			"regex":      wb.AssetCache.Regex,
		},
		"page_cache": page,
	}

	if len(wb.BackgroundSync) > 0 {
		queues := make([]any, 0, len(wb.BackgroundSync))
		for _, q := range wb.BackgroundSync {
			queues = append(queues, map[string]any{
				"queue_name":          q.QueueName,
				"regex":               q.Regex,
				"method":              q.Method,
				"max_retention_time":  q.MaxRetentionTime,
				"force_sync_callback": q.ForceSyncCallback,
			})
		}
		out["background_sync"] = queues
	}
	if len(wb.ResourceCaches) > 0 {
		caches := make([]any, 0, len(wb.ResourceCaches))
		for _, rc := range wb.ResourceCaches {
			entry := map[string]any{
				"enabled":        rc.Enabled,
				"match_callback": rc.MatchCallback,
				"strategy":       rc.Strategy,
				"broadcast":      rc.Broadcast,
				"range_requests": rc.RangeRequests,
				"register_route": rc.RegisterRoute,
				"method":         rc.Method,
			}
			putString(entry, "cache_name", rc.CacheName)
			putInt(entry, "network_timeout", rc.NetworkTimeout)
			putInt(entry, "max_entries", rc.MaxEntries)
			putInt(entry, "max_age", rc.MaxAge)
			caches = append(caches, entry)
		}
		out["resource_caches"] = caches
	}
	return out
}

func (b BoundedCache) toRaw() map[string]any {
	return map[string]any{
		"enabled":     b.Enabled,
		"cache_name":  b.CacheName,
		"regex":       b.Regex,
		"max_entries": b.MaxEntries,
		"max_age":     b.MaxAge,
	}
}

// DumpYAML 以 YAML 输出规范配置树，键按字母序排列。
func (c *Config) DumpYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c.ToRaw()); err != nil {
		return nil, fmt.Errorf("序列化配置失败: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("序列化配置失败: %w", err)
	}
	return buf.Bytes(), nil
}

func putString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func putInt(m map[string]any, key string, value int) {
	if value != 0 {
		m[key] = value
	}
}

func putIntPtr(m map[string]any, key string, value *int) {
	if value != nil {
		m[key] = *value
	}
}
