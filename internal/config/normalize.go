package config

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// subtreeKeys 是 workbox 下支持布尔简写的子树。
var subtreeKeys = []string{"google_fonts", "offline_fallback", "image_cache", "font_cache", "asset_cache", "page_cache"}

// Normalize 把原始配置树（来自 viper 或内存）归一化为只读的 Config。
// 失败时不返回任何部分结果；弃用提示按别名表顺序返回，无替代项的键排在最后。
func Normalize(raw map[string]any) (*Config, []Deprecation, error) {
	root, ok := cloneValue(raw).(map[string]any)
	if !ok || root == nil {
		root = map[string]any{}
	}

	notices, err := expand(root)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := decode(root)
	if err != nil {
		return nil, nil, err
	}
	tidy(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, notices, nil
}

// expand 展开各类简写并折叠旧键；子树是否显式出现在展开子树简写之前判断。
func expand(root map[string]any) ([]Deprecation, error) {
	sw, err := expandServiceWorker(root["serviceworker"])
	if err != nil {
		return nil, err
	}
	if value, ok := root["screenshots"]; ok {
		screenshots, err := expandScreenshots(value)
		if err != nil {
			return nil, err
		}
		root["screenshots"] = screenshots
	}
	if sw == nil {
		return nil, nil
	}
	root["serviceworker"] = sw

	wb, err := expandToggle(workboxPath, sw["workbox"])
	if err != nil {
		return nil, err
	}
	sw["workbox"] = wb

	notices, err := foldAliases(wb)
	if err != nil {
		return nil, err
	}

	for _, key := range subtreeKeys {
		if _, ok := wb[key]; !ok {
			continue
		}
		sub, err := expandToggle(joinPath(workboxPath, key), wb[key])
		if err != nil {
			return nil, err
		}
		wb[key] = sub
	}

	if page, ok := wb["page_cache"].(map[string]any); ok {
		if urls, present := page["urls"]; present {
			list, err := expandURLList(urls)
			if err != nil {
				return nil, NewSchemaError(joinPath(workboxPath, "page_cache.urls"), err.Error())
			}
			page["urls"] = list
		}
	}
	if fallback, ok := wb["offline_fallback"].(map[string]any); ok {
		for _, target := range []string{"page", "image", "font"} {
			value, present := fallback[target]
			if !present || value == nil {
				continue
			}
			folded, err := coerceURL(value)
			if err != nil {
				return nil, NewSchemaError(joinPath(workboxPath, "offline_fallback", target), err.Error())
			}
			fallback[target] = folded
		}
	}

	lists := []struct {
		key      string
		defaults func() map[string]any
		scalar   string
	}{
		{key: "background_sync", defaults: backgroundSyncItemDefaults},
		{key: "resource_caches", defaults: resourceCacheItemDefaults, scalar: "match_callback"},
	}
	for _, l := range lists {
		value, present := wb[l.key]
		if !present {
			continue
		}
		items, err := expandItems(joinPath(workboxPath, l.key), value, l.defaults, l.scalar)
		if err != nil {
			return nil, err
		}
		wb[l.key] = items
	}

	return notices, nil
}

// expandServiceWorker: bool 展开为 {enabled}，字符串展开为 {enabled: true, src}，
// 显式给出但未写 enabled 的对象视为启用。
func expandServiceWorker(v any) (map[string]any, error) {
	switch sw := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return map[string]any{"enabled": sw}, nil
	case string:
		return map[string]any{"enabled": true, "src": sw}, nil
	case map[string]any:
		if _, ok := sw["enabled"]; !ok {
			sw["enabled"] = true
		}
		return sw, nil
	default:
		return nil, NewSchemaError("serviceworker", fmt.Sprintf("需要布尔值、字符串或对象，得到 %T", v))
	}
}

func expandToggle(field string, v any) (map[string]any, error) {
	switch t := v.(type) {
	case nil:
		return map[string]any{}, nil
	case bool:
		return map[string]any{"enabled": t}, nil
	case map[string]any:
		return t, nil
	default:
		return nil, NewSchemaError(field, fmt.Sprintf("需要布尔值或对象，得到 %T", v))
	}
}

func expandURLList(v any) ([]any, error) {
	if v == nil {
		return []any{}, nil
	}
	list, err := coerceURLList(v)
	if err != nil {
		return nil, err
	}
	return list.([]any), nil
}

// expandItems 为列表元素补齐默认值；scalar 非空时字符串元素展开为 {scalar: s}。
func expandItems(field string, v any, defaults func() map[string]any, scalar string) ([]any, error) {
	var list []any
	switch t := v.(type) {
	case nil, bool:
		return []any{}, nil
	case []any:
		list = t
	default:
		return nil, NewSchemaError(field, fmt.Sprintf("需要列表，得到 %T", v))
	}

	out := make([]any, 0, len(list))
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			s, isString := item.(string)
			if scalar == "" || !isString {
				return nil, NewSchemaError(fmt.Sprintf("%s[%d]", field, i), fmt.Sprintf("需要对象，得到 %T", item))
			}
			entry = map[string]any{scalar: s}
		}
		for key, value := range defaults() {
			if current, exists := entry[key]; !exists || current == nil {
				entry[key] = value
			}
		}
		out = append(out, entry)
	}
	return out, nil
}

func expandScreenshots(v any) ([]any, error) {
	switch t := v.(type) {
	case nil, bool:
		return []any{}, nil
	case []any:
		out := make([]any, 0, len(t))
		for i, item := range t {
			switch entry := item.(type) {
			case string:
				out = append(out, map[string]any{"src": entry})
			case map[string]any:
				out = append(out, entry)
			default:
				return nil, NewSchemaError(fmt.Sprintf("screenshots[%d]", i), fmt.Sprintf("需要字符串或对象，得到 %T", item))
			}
		}
		return out, nil
	default:
		return nil, NewSchemaError("screenshots", fmt.Sprintf("需要列表，得到 %T", v))
	}
}

var decodeFieldPattern = regexp.MustCompile(`^(?:error decoding )?'([^']*)':?\s*(.*)$`)

// intDecodeHook 让嵌套字段与旧键共用 coerceInt：数字字符串可用，带小数的值报错而非截断。
func intDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to.Kind() != reflect.Int || data == nil {
			return data, nil
		}
		return coerceInt(data)
	}
}

// decode 在 DefaultConfig 之上解码：缺失的键保留默认值，serviceworker 与 screenshots 下的未知键视为错误。
func decode(root map[string]any) (*Config, error) {
	cfg := DefaultConfig()
	var meta mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:     &cfg,
		Metadata:   &meta,
		TagName:    "mapstructure",
		DecodeHook: intDecodeHook(),
	})
	if err != nil {
		return nil, fmt.Errorf("创建解码器失败: %w", err)
	}

	if err := decoder.Decode(root); err != nil {
		return nil, decodeError(err)
	}

	unused := append([]string(nil), meta.Unused...)
	sort.Strings(unused)
	for _, key := range unused {
		if strings.HasPrefix(key, "serviceworker.") || strings.HasPrefix(key, "screenshots[") {
			return nil, NewSchemaError(key, "未知字段")
		}
	}
	return &cfg, nil
}

func decodeError(err error) error {
	var msErr *mapstructure.Error
	if !errors.As(err, &msErr) || len(msErr.Errors) == 0 {
		return NewSchemaError("", err.Error())
	}
	messages := append([]string(nil), msErr.Errors...)
	sort.Strings(messages)
	if m := decodeFieldPattern.FindStringSubmatch(messages[0]); m != nil {
		return NewSchemaError(m[1], m[2])
	}
	return NewSchemaError("", messages[0])
}

// tidy 统一空集合与大小写，使规范树再次归一化时得到相同结果。
func tidy(cfg *Config) {
	wb := &cfg.ServiceWorker.Workbox
	if len(wb.BackgroundSync) == 0 {
		wb.BackgroundSync = nil
	}
	if len(wb.ResourceCaches) == 0 {
		wb.ResourceCaches = nil
	}
	if len(wb.PageCache.URLs) == 0 {
		wb.PageCache.URLs = nil
	}
	for i := range wb.PageCache.URLs {
		if len(wb.PageCache.URLs[i].Params) == 0 {
			wb.PageCache.URLs[i].Params = nil
		}
	}
	if len(cfg.Screenshots) == 0 {
		cfg.Screenshots = nil
	}
	for i := range wb.BackgroundSync {
		wb.BackgroundSync[i].Method = strings.ToUpper(strings.TrimSpace(wb.BackgroundSync[i].Method))
	}
	for i := range wb.ResourceCaches {
		wb.ResourceCaches[i].Method = strings.ToUpper(strings.TrimSpace(wb.ResourceCaches[i].Method))
	}
	cfg.Global.LogLevel = strings.ToLower(strings.TrimSpace(cfg.Global.LogLevel))
}

// cloneValue 深拷贝原始树，同时把 YAML 可能产生的 map[any]any 统一为 map[string]any。
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for key, value := range t {
			out[key] = cloneValue(value)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for key, value := range t {
			out[fmt.Sprint(key)] = cloneValue(value)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, value := range t {
			out[i] = cloneValue(value)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, value := range t {
			out[i] = cloneValue(value)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, value := range t {
			out[i] = value
		}
		return out
	default:
		return v
	}
}
