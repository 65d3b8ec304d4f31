package workbox

import (
	"errors"
	"fmt"
	"strings"
)

// StrategyKind 与 workbox.strategies 下的类名保持一致，便于直接渲染。
type StrategyKind string

const (
	CacheFirst           StrategyKind = "CacheFirst"
	NetworkFirst         StrategyKind = "NetworkFirst"
	StaleWhileRevalidate StrategyKind = "StaleWhileRevalidate"
	CacheOnly            StrategyKind = "CacheOnly"
	NetworkOnly          StrategyKind = "NetworkOnly"
)

// ErrInvalidStrategy 表示策略描述违反了构造约束。
var ErrInvalidStrategy = errors.New("invalid strategy")

var strategyKinds = []StrategyKind{CacheFirst, NetworkFirst, StaleWhileRevalidate, CacheOnly, NetworkOnly}

// StrategyKinds 返回全部策略类型，顺序固定。
func StrategyKinds() []StrategyKind {
	return append([]StrategyKind(nil), strategyKinds...)
}

// ParseStrategyKind 识别 CacheFirst / cache_first / cache-first 等写法。
func ParseStrategyKind(raw string) (StrategyKind, error) {
	normalized := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.TrimSpace(raw)))
	for _, kind := range strategyKinds {
		if strings.ToLower(string(kind)) == normalized {
			return kind, nil
		}
	}
	return "", fmt.Errorf("%w: 未知策略 %q", ErrInvalidStrategy, raw)
}

// StrategySpec 是构造 Strategy 的输入，字段含义与 Strategy 访问器一致。
type StrategySpec struct {
	Name                  string
	CacheName             string
	MatchExpression       string
	Kind                  StrategyKind
	Enabled               bool
	RegisterRoute         bool
	NetworkTimeoutSeconds int
	Method                string
	Plugins               []Plugin
	PreloadURLs           []string
}

// Strategy 是一条已校验的缓存策略描述，构造后只读。
type Strategy struct {
	spec StrategySpec
}

// NewStrategy 校验 spec 并生成不可变的策略描述。
func NewStrategy(spec StrategySpec) (Strategy, error) {
	spec.Name = strings.TrimSpace(spec.Name)
	if spec.Name == "" {
		return Strategy{}, fmt.Errorf("%w: name 不能为空", ErrInvalidStrategy)
	}
	if !validKind(spec.Kind) {
		return Strategy{}, fmt.Errorf("%w: %s 的策略类型 %q 不合法", ErrInvalidStrategy, spec.Name, spec.Kind)
	}
	if spec.RegisterRoute && strings.TrimSpace(spec.MatchExpression) == "" {
		return Strategy{}, fmt.Errorf("%w: %s 需要注册路由但缺少匹配表达式", ErrInvalidStrategy, spec.Name)
	}
	if spec.NetworkTimeoutSeconds < 0 {
		return Strategy{}, fmt.Errorf("%w: %s 的 networkTimeoutSeconds 不能为负数", ErrInvalidStrategy, spec.Name)
	}
	if spec.NetworkTimeoutSeconds > 0 && spec.Kind != NetworkFirst {
		return Strategy{}, fmt.Errorf("%w: %s 仅 NetworkFirst 支持 networkTimeoutSeconds", ErrInvalidStrategy, spec.Name)
	}
	if spec.Kind != NetworkOnly && strings.TrimSpace(spec.CacheName) == "" {
		return Strategy{}, fmt.Errorf("%w: %s 需要 cacheName", ErrInvalidStrategy, spec.Name)
	}

	spec.Method = strings.ToUpper(strings.TrimSpace(spec.Method))
	if spec.Method == "" {
		spec.Method = "GET"
	}

	seen := make(map[PluginKind]struct{}, len(spec.Plugins))
	for _, plugin := range spec.Plugins {
		if plugin.kind == "" {
			return Strategy{}, fmt.Errorf("%w: %s 包含未初始化的插件", ErrInvalidStrategy, spec.Name)
		}
		if _, dup := seen[plugin.kind]; dup {
			return Strategy{}, fmt.Errorf("%w: %s 重复挂载插件 %s", ErrInvalidStrategy, spec.Name, plugin.kind)
		}
		seen[plugin.kind] = struct{}{}
	}

	spec.Plugins = append([]Plugin(nil), spec.Plugins...)
	spec.PreloadURLs = append([]string(nil), spec.PreloadURLs...)
	return Strategy{spec: spec}, nil
}

func validKind(kind StrategyKind) bool {
	for _, k := range strategyKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Name 在一次编译的全部策略中唯一。
func (s Strategy) Name() string { return s.spec.Name }

// CacheName 为空表示该策略不落缓存（例如 NetworkOnly）。
func (s Strategy) CacheName() string { return s.spec.CacheName }

func (s Strategy) MatchExpression() string { return s.spec.MatchExpression }

func (s Strategy) Kind() StrategyKind { return s.spec.Kind }

func (s Strategy) Enabled() bool { return s.spec.Enabled }

func (s Strategy) RegisterRoute() bool { return s.spec.RegisterRoute }

func (s Strategy) Method() string { return s.spec.Method }

// NetworkTimeout 返回网络超时秒数，未设置时第二个返回值为 false。
func (s Strategy) NetworkTimeout() (int, bool) {
	return s.spec.NetworkTimeoutSeconds, s.spec.NetworkTimeoutSeconds > 0
}

// Plugins 返回插件列表副本，顺序即渲染顺序。
func (s Strategy) Plugins() []Plugin {
	return append([]Plugin(nil), s.spec.Plugins...)
}

// PreloadURLs 返回需要预热到该策略缓存中的 URL。
func (s Strategy) PreloadURLs() []string {
	return append([]string(nil), s.spec.PreloadURLs...)
}
