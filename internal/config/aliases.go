package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const workboxPath = "serviceworker.workbox"

// coerceFunc 把旧键的原始值转换为嵌套字段接受的形态。
type coerceFunc func(any) (any, error)

// alias 描述一个旧版扁平键（位于 serviceworker.workbox 下）到嵌套字段的映射。
type alias struct {
	Legacy string
	Group  string
	Field  string
	Coerce coerceFunc
}

// Replacement 返回替代字段的完整路径。
func (a alias) Replacement() string {
	return joinPath(workboxPath, a.Group, a.Field)
}

// aliasGroups 的顺序即旧键的处理顺序，也是弃用提示的输出顺序。
var aliasGroups = []string{"image_cache", "font_cache", "page_cache", "asset_cache", "offline_fallback"}

var aliasTable = []alias{
	{Legacy: "image_cache_name", Group: "image_cache", Field: "cache_name", Coerce: coerceString},
	{Legacy: "image_regex", Group: "image_cache", Field: "regex", Coerce: coerceString},
	{Legacy: "max_image_cache_entries", Group: "image_cache", Field: "max_entries", Coerce: coerceInt},
	{Legacy: "max_image_age", Group: "image_cache", Field: "max_age", Coerce: coerceInt},

	{Legacy: "font_cache_name", Group: "font_cache", Field: "cache_name", Coerce: coerceString},
	{Legacy: "font_regex", Group: "font_cache", Field: "regex", Coerce: coerceString},
	{Legacy: "max_font_cache_entries", Group: "font_cache", Field: "max_entries", Coerce: coerceInt},
	{Legacy: "max_font_age", Group: "font_cache", Field: "max_age", Coerce: coerceInt},

	{Legacy: "page_cache_name", Group: "page_cache", Field: "cache_name", Coerce: coerceString},
	{Legacy: "network_timeout_seconds", Group: "page_cache", Field: "network_timeout", Coerce: coerceInt},
	{Legacy: "warm_cache_urls", Group: "page_cache", Field: "urls", Coerce: coerceURLList},

	{Legacy: "asset_cache_name", Group: "asset_cache", Field: "cache_name", Coerce: coerceString},
	{Legacy: "static_regex", Group: "asset_cache", Field: "regex", Coerce: coerceString},

	{Legacy: "page_fallback", Group: "offline_fallback", Field: "page", Coerce: coerceURL},
	{Legacy: "image_fallback", Group: "offline_fallback", Field: "image", Coerce: coerceURL},
	{Legacy: "font_fallback", Group: "offline_fallback", Field: "font", Coerce: coerceURL},
}

// removedKeys 是已弃用且没有替代项的键，读取后直接丢弃。
var removedKeys = []string{
	"workbox_import_placeholder",
	"standard_rules_placeholder",
	"offline_fallback_placeholder",
	"widgets_placeholder",
}

// Aliases 返回旧键到替代路径的映射，键为完整路径。
func Aliases() map[string]string {
	out := make(map[string]string, len(aliasTable))
	for _, a := range aliasTable {
		out[joinPath(workboxPath, a.Legacy)] = a.Replacement()
	}
	return out
}

// foldAliases 遍历别名表一次：旧键总会被删除、校验并记录弃用提示，
// 但只有当对应的嵌套子树在原始输入中缺失时，其值才会写入嵌套字段。
func foldAliases(workbox map[string]any) ([]Deprecation, error) {
	present := make(map[string]bool, len(aliasGroups))
	for _, group := range aliasGroups {
		present[group] = workbox[group] != nil
	}

	var notices []Deprecation
	for _, a := range aliasTable {
		raw, ok := workbox[a.Legacy]
		if !ok {
			continue
		}
		delete(workbox, a.Legacy)
		if raw == nil {
			continue
		}

		value, err := a.Coerce(raw)
		if err != nil {
			return nil, NewSchemaError(joinPath(workboxPath, a.Legacy), err.Error())
		}
		notices = append(notices, newDeprecation(joinPath(workboxPath, a.Legacy), a.Replacement()))
		if present[a.Group] {
			continue
		}

		sub, _ := workbox[a.Group].(map[string]any)
		if sub == nil {
			sub = map[string]any{}
			workbox[a.Group] = sub
		}
		sub[a.Field] = value
	}

	for _, key := range removedKeys {
		if _, ok := workbox[key]; !ok {
			continue
		}
		delete(workbox, key)
		notices = append(notices, newDeprecation(joinPath(workboxPath, key), ""))
	}
	return notices, nil
}

func coerceString(v any) (any, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	default:
		return nil, fmt.Errorf("需要字符串，得到 %T", v)
	}
}

func coerceInt(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float32:
		return coerceInt(float64(n))
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("需要整数，得到 %v", n)
		}
		return int(n), nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil, fmt.Errorf("需要整数，得到 %q", n)
		}
		return parsed, nil
	default:
		return nil, fmt.Errorf("需要整数，得到 %T", v)
	}
}

// coerceURL 接受字符串或 {path, params} 对象，后者折叠为带查询串的 URL。
func coerceURL(v any) (any, error) {
	switch u := v.(type) {
	case string:
		return u, nil
	case map[string]any:
		path, _ := u["path"].(string)
		if strings.TrimSpace(path) == "" {
			return nil, errors.New("需要 path 字段")
		}
		params, err := coerceParams(u["params"])
		if err != nil {
			return nil, err
		}
		return BuildURL(path, params), nil
	default:
		return nil, fmt.Errorf("需要 URL 字符串或对象，得到 %T", v)
	}
}

// coerceURLList 接受 URL 字符串或 {path, params} 对象组成的列表，bool 视为空列表。
func coerceURLList(v any) (any, error) {
	switch list := v.(type) {
	case bool:
		return []any{}, nil
	case []any:
		out := make([]any, 0, len(list))
		for i, item := range list {
			entry, err := coerceWarmURL(item)
			if err != nil {
				return nil, fmt.Errorf("第 %d 项: %w", i, err)
			}
			out = append(out, entry)
		}
		return out, nil
	case []string:
		out := make([]any, 0, len(list))
		for _, item := range list {
			out = append(out, map[string]any{"path": item})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("需要列表，得到 %T", v)
	}
}

func coerceWarmURL(item any) (map[string]any, error) {
	switch entry := item.(type) {
	case string:
		return map[string]any{"path": entry}, nil
	case map[string]any:
		return entry, nil
	default:
		return nil, fmt.Errorf("需要字符串或对象，得到 %T", item)
	}
}

func coerceParams(v any) (map[string]any, error) {
	switch p := v.(type) {
	case nil, bool:
		return nil, nil
	case map[string]any:
		return p, nil
	default:
		return nil, fmt.Errorf("params 需要对象，得到 %T", v)
	}
}
