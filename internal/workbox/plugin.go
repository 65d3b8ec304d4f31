package workbox

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// PluginKind 标识插件类型，取值与 Workbox 插件一一对应。
type PluginKind string

const (
	PluginCacheableResponse PluginKind = "cacheable-response"
	PluginExpiration        PluginKind = "expiration"
	PluginBackgroundSync    PluginKind = "background-sync"
	PluginBroadcastUpdate   PluginKind = "broadcast-update"
	PluginRangeRequests     PluginKind = "range-requests"
)

// ErrInvalidPlugin 表示插件参数不满足其类型的 schema。
var ErrInvalidPlugin = errors.New("invalid plugin")

// DefaultCacheableStatuses 是缓存成功响应时接受的状态码（0 表示 opaque 响应）。
var DefaultCacheableStatuses = []int{0, 200}

// Plugin 描述挂在缓存策略上的一个行为修饰器，构造后不可变。
type Plugin struct {
	kind   PluginKind
	params map[string]any
}

type paramRule struct {
	required bool
	check    func(any) (any, error)
}

var pluginSchemas = map[PluginKind]map[string]paramRule{
	PluginCacheableResponse: {
		"statuses": {required: true, check: checkStatuses},
	},
	PluginExpiration: {
		"maxEntries":    {check: checkPositiveInt},
		"maxAgeSeconds": {check: checkPositiveInt},
	},
	PluginBackgroundSync: {
		"queueName":         {required: true, check: checkNonEmptyString},
		"maxRetentionTime":  {required: true, check: checkPositiveInt},
		"forceSyncFallback": {check: checkBool},
	},
	PluginBroadcastUpdate: {
		"headersToCheck": {check: checkHeaderList},
	},
	PluginRangeRequests: {},
}

// NewPlugin 按插件类型的 schema 校验参数并返回不可变描述；参数会被深拷贝。
func NewPlugin(kind PluginKind, params map[string]any) (Plugin, error) {
	schema, ok := pluginSchemas[kind]
	if !ok {
		return Plugin{}, fmt.Errorf("%w: 未知插件类型 %q", ErrInvalidPlugin, kind)
	}

	normalized := make(map[string]any, len(params))
	for _, key := range sortedKeys(params) {
		rule, known := schema[key]
		if !known {
			return Plugin{}, fmt.Errorf("%w: %s 不支持参数 %q", ErrInvalidPlugin, kind, key)
		}
		value, err := rule.check(params[key])
		if err != nil {
			return Plugin{}, fmt.Errorf("%w: %s.%s %v", ErrInvalidPlugin, kind, key, err)
		}
		normalized[key] = value
	}
	for key, rule := range schema {
		if _, present := normalized[key]; rule.required && !present {
			return Plugin{}, fmt.Errorf("%w: %s 缺少参数 %q", ErrInvalidPlugin, kind, key)
		}
	}
	if kind == PluginExpiration && len(normalized) == 0 {
		return Plugin{}, fmt.Errorf("%w: expiration 至少需要 maxEntries 或 maxAgeSeconds", ErrInvalidPlugin)
	}

	return Plugin{kind: kind, params: normalized}, nil
}

// CacheableResponse 构造只缓存指定状态码的插件，未指定时使用 DefaultCacheableStatuses。
func CacheableResponse(statuses ...int) (Plugin, error) {
	if len(statuses) == 0 {
		statuses = DefaultCacheableStatuses
	}
	return NewPlugin(PluginCacheableResponse, map[string]any{"statuses": statuses})
}

// Expiration 构造过期插件，值为 0 的参数会被省略。
func Expiration(maxEntries, maxAgeSeconds int) (Plugin, error) {
	params := map[string]any{}
	if maxEntries != 0 {
		params["maxEntries"] = maxEntries
	}
	if maxAgeSeconds != 0 {
		params["maxAgeSeconds"] = maxAgeSeconds
	}
	return NewPlugin(PluginExpiration, params)
}

// BackgroundSync 构造后台同步插件，retentionMinutes 以分钟计。
func BackgroundSync(queueName string, retentionMinutes int, forceSyncFallback bool) (Plugin, error) {
	params := map[string]any{
		"queueName":        queueName,
		"maxRetentionTime": retentionMinutes,
	}
	if forceSyncFallback {
		params["forceSyncFallback"] = true
	}
	return NewPlugin(PluginBackgroundSync, params)
}

// BroadcastUpdate 构造缓存更新广播插件。
func BroadcastUpdate(headersToCheck ...string) (Plugin, error) {
	params := map[string]any{}
	if len(headersToCheck) > 0 {
		params["headersToCheck"] = headersToCheck
	}
	return NewPlugin(PluginBroadcastUpdate, params)
}

// RangeRequests 构造 Range 请求插件，该插件没有参数。
func RangeRequests() Plugin {
	return Plugin{kind: PluginRangeRequests, params: map[string]any{}}
}

// Kind 返回插件类型。
func (p Plugin) Kind() PluginKind {
	return p.kind
}

// Param 返回单个参数的副本。
func (p Plugin) Param(key string) (any, bool) {
	value, ok := p.params[key]
	if !ok {
		return nil, false
	}
	return copyValue(value), true
}

// Parameters 返回参数表的深拷贝，调用方修改不会影响描述对象。
func (p Plugin) Parameters() map[string]any {
	out := make(map[string]any, len(p.params))
	for key, value := range p.params {
		out[key] = copyValue(value)
	}
	return out
}

func checkStatuses(v any) (any, error) {
	list, err := toIntList(v)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.New("不能为空")
	}
	for _, status := range list {
		if status != 0 && (status < 100 || status > 599) {
			return nil, fmt.Errorf("非法状态码 %d", status)
		}
	}
	return list, nil
}

func checkPositiveInt(v any) (any, error) {
	n, ok := toInt(v)
	if !ok {
		return nil, fmt.Errorf("需要整数，得到 %T", v)
	}
	if n <= 0 {
		return nil, errors.New("必须大于 0")
	}
	return n, nil
}

func checkNonEmptyString(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("需要字符串，得到 %T", v)
	}
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("不能为空")
	}
	return s, nil
}

func checkBool(v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("需要布尔值，得到 %T", v)
	}
	return b, nil
}

func checkHeaderList(v any) (any, error) {
	var headers []string
	switch list := v.(type) {
	case []string:
		headers = append(headers, list...)
	case []any:
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("需要字符串列表，得到 %T", item)
			}
			headers = append(headers, s)
		}
	default:
		return nil, fmt.Errorf("需要字符串列表，得到 %T", v)
	}
	for _, h := range headers {
		if strings.TrimSpace(h) == "" {
			return nil, errors.New("header 名称不能为空")
		}
	}
	return headers, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func toIntList(v any) ([]int, error) {
	switch list := v.(type) {
	case []int:
		return append([]int(nil), list...), nil
	case []any:
		out := make([]int, 0, len(list))
		for _, item := range list {
			n, ok := toInt(item)
			if !ok {
				return nil, fmt.Errorf("需要整数列表，得到 %T", item)
			}
			out = append(out, n)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("需要整数列表，得到 %T", v)
	}
}

func copyValue(v any) any {
	switch typed := v.(type) {
	case []int:
		return append([]int(nil), typed...)
	case []string:
		return append([]string(nil), typed...)
	default:
		return v
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
