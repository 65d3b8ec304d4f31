package config

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"github.com/any-hub/swforge/internal/workbox"
)

// Validate 针对语义级别做进一步校验，防止非法配置进入编译阶段。
// 资源缓存的 strategy 会被规范化为 Workbox 类名。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	sw := c.ServiceWorker
	if sw.Enabled && strings.TrimSpace(sw.Src) == "" {
		return NewSchemaError("serviceworker.src", "启用 service worker 时不能为空")
	}
	if sw.Filepath != "" && sw.Src != "" {
		if baseName(sw.Filepath) != baseName(sw.Src) {
			return NewExclusivityError("serviceworker.filepath", "filepath 与 src 的文件名必须一致")
		}
	}

	for i, shot := range c.Screenshots {
		if err := validateScreenshot(i, shot); err != nil {
			return err
		}
	}

	wb := &c.ServiceWorker.Workbox
	for i := range wb.ResourceCaches {
		if err := normalizeResourceCache(i, &wb.ResourceCaches[i]); err != nil {
			return err
		}
	}

	if err := validateSchema(c); err != nil {
		return err
	}

	regexes := []regexField{
		{joinPath(workboxPath, "image_cache.regex"), wb.ImageCache.Regex},
		{joinPath(workboxPath, "font_cache.regex"), wb.FontCache.Regex},
		{joinPath(workboxPath, "asset_cache.regex"), wb.AssetCache.Regex},
	}
	for i, queue := range wb.BackgroundSync {
		regexes = append(regexes, regexField{indexPath(joinPath(workboxPath, "background_sync"), i, "regex"), queue.Regex})
	}
	for i, rc := range wb.ResourceCaches {
		if IsRegexLiteral(rc.MatchCallback) {
			regexes = append(regexes, regexField{indexPath(joinPath(workboxPath, "resource_caches"), i, "match_callback"), rc.MatchCallback})
		}
	}
	for _, r := range regexes {
		if _, err := workbox.ParseRegex(r.value); err != nil {
			return NewSchemaError(r.field, err.Error())
		}
	}

	seenQueues := map[string]struct{}{}
	for i, queue := range wb.BackgroundSync {
		if _, exists := seenQueues[queue.QueueName]; exists {
			return NewSchemaError(indexPath(joinPath(workboxPath, "background_sync"), i, "queue_name"), fmt.Sprintf("队列名 %q 重复", queue.QueueName))
		}
		seenQueues[queue.QueueName] = struct{}{}
	}

	return nil
}

type regexField struct {
	field string
	value string
}

// IsRegexLiteral 判断 match_callback 是否为 /.../flags 形式的正则字面量。
func IsRegexLiteral(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "/")
}

func validateScreenshot(idx int, shot Screenshot) error {
	hasSrc := strings.TrimSpace(shot.Src) != ""
	hasPath := strings.TrimSpace(shot.Path) != ""
	if hasSrc == hasPath {
		return NewExclusivityError(fmt.Sprintf("screenshots[%d]", idx), "src 与 path 必须且只能设置一个")
	}
	if hasPath && (shot.Height == nil || shot.Width == nil) {
		return NewSchemaError(fmt.Sprintf("screenshots[%d]", idx), "使用 path 时必须同时设置 height 与 width")
	}
	return nil
}

func normalizeResourceCache(idx int, rc *ResourceCache) error {
	base := joinPath(workboxPath, "resource_caches")
	kind, err := workbox.ParseStrategyKind(rc.Strategy)
	if err != nil {
		return NewSchemaError(indexPath(base, idx, "strategy"), err.Error())
	}
	rc.Strategy = string(kind)
	if kind != workbox.NetworkOnly && strings.TrimSpace(rc.CacheName) == "" {
		return NewSchemaError(indexPath(base, idx, "cache_name"), fmt.Sprintf("%s 需要 cache_name", kind))
	}
	if rc.NetworkTimeout != 0 && kind != workbox.NetworkFirst {
		return NewSchemaError(indexPath(base, idx, "network_timeout"), "仅 NetworkFirst 支持 network_timeout")
	}
	return nil
}

func baseName(p string) string {
	return path.Base(filepath.ToSlash(p))
}
