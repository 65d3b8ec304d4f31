package provider

import (
	"fmt"
	"strings"
	"sync"
)

// Registry 按注册顺序保存 Provider，该顺序即策略的输出顺序。
type Registry struct {
	mu        sync.RWMutex
	order     []string
	providers map[string]Provider
}

// NewRegistry 创建空注册表。
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Default 返回内置 Provider，顺序固定为 assets、images、fonts、pages、resource caches。
func Default() *Registry {
	r := NewRegistry()
	r.MustRegister(AssetCache())
	r.MustRegister(ImageCache())
	r.MustRegister(FontCache())
	r.MustRegister(PageCache())
	r.MustRegister(ResourceCaches())
	return r
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Register 追加 Provider，重复键会返回错误。
func (r *Registry) Register(p Provider) error {
	if p == nil {
		return fmt.Errorf("provider is required")
	}
	key := normalizeKey(p.Key())
	if key == "" {
		return fmt.Errorf("provider key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[key]; exists {
		return fmt.Errorf("provider %s already registered", key)
	}
	r.providers[key] = p
	r.order = append(r.order, key)
	return nil
}

// MustRegister 在注册失败时 panic，适合组装内置注册表时调用。
func (r *Registry) MustRegister(p Provider) {
	if err := r.Register(p); err != nil {
		panic(err)
	}
}

// Resolve 返回指定键的 Provider。
func (r *Registry) Resolve(key string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[normalizeKey(key)]
	return p, ok
}

// List 按注册顺序返回 Provider。
func (r *Registry) List() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Provider, 0, len(r.order))
	for _, key := range r.order {
		result = append(result, r.providers[key])
	}
	return result
}

// Keys 返回已注册的键，供诊断接口展示。
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
