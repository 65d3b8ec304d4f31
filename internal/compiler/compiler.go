package compiler

import (
	"fmt"

	"github.com/any-hub/swforge/internal/config"
	"github.com/any-hub/swforge/internal/provider"
	"github.com/any-hub/swforge/internal/workbox"
)

// ConsistencyError 表示规则之间的约定被破坏，例如引用了未声明的缓存名。
type ConsistencyError struct {
	Rule   string
	Reason string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("规则 %s 不一致: %s", e.Rule, e.Reason)
}

// Options 控制一次编译，零值即使用默认模板与默认规则。
type Options struct {
	Template     string
	Runtime      provider.RuntimeContext
	Rules        []Rule
	Deprecations []config.Deprecation
}

// StrategySummary 是诊断接口与日志使用的策略摘要。
type StrategySummary struct {
	Name          string   `json:"name"`
	Kind          string   `json:"kind"`
	CacheName     string   `json:"cache_name,omitempty"`
	Method        string   `json:"method"`
	RegisterRoute bool     `json:"register_route"`
	Plugins       []string `json:"plugins,omitempty"`
}

// Artifact 是编译结果。
type Artifact struct {
	Text         string               `json:"-"`
	Strategies   []StrategySummary    `json:"strategies"`
	CacheNames   []string             `json:"cache_names"`
	Deprecations []config.Deprecation `json:"deprecations"`
}

// Compile 依次执行规则流水线并渲染最终脚本。
// 任一规则失败时不返回任何产物。
func Compile(cfg *config.Config, strategies []workbox.Strategy, opts Options) (*Artifact, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	doc, err := ParseTemplate(opts.Template)
	if err != nil {
		return nil, err
	}

	art := &Artifact{Deprecations: opts.Deprecations}
	if !cfg.WorkboxActive() {
		art.Text = doc.Render()
		return art, nil
	}

	queues, err := provider.BackgroundSyncQueues(cfg)
	if err != nil {
		return nil, err
	}
	if err := provider.CheckQueueNames(strategies, queues); err != nil {
		return nil, err
	}
	in := &Input{Config: cfg, Runtime: opts.Runtime, Strategies: strategies, Queues: queues}

	rules := opts.Rules
	if rules == nil {
		rules = DefaultRules()
	}
	for _, rule := range rules {
		if err := rule.Apply(doc, in); err != nil {
			return nil, fmt.Errorf("执行规则 %s 失败: %w", rule.Name(), err)
		}
	}

	art.Text = doc.Render()
	art.CacheNames = doc.CacheNames()
	for _, s := range append(append([]workbox.Strategy(nil), strategies...), queues...) {
		if s.Enabled() {
			art.Strategies = append(art.Strategies, summarize(s))
		}
	}
	return art, nil
}

func summarize(s workbox.Strategy) StrategySummary {
	sum := StrategySummary{
		Name:          s.Name(),
		Kind:          string(s.Kind()),
		CacheName:     s.CacheName(),
		Method:        s.Method(),
		RegisterRoute: s.RegisterRoute(),
	}
	for _, p := range s.Plugins() {
		sum.Plugins = append(sum.Plugins, string(p.Kind()))
	}
	return sum
}
