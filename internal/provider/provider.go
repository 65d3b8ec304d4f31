package provider

import (
	"strings"

	"github.com/any-hub/swforge/internal/config"
	"github.com/any-hub/swforge/internal/workbox"
)

// RuntimeContext 由宿主提供，同一次编译内所有 Provider 共享且只读。
type RuntimeContext struct {
	// PublicAssetPrefix 是打包工具输出静态资源的 URL 前缀，不带结尾的 /。
	PublicAssetPrefix string
	// RemoteRuntime 为 true 时从 CDN 加载 Workbox，否则使用本地文件。
	RemoteRuntime bool
	// RuntimePublicPath 是本地 Workbox 文件的公开路径，形如 /workbox。
	RuntimePublicPath string
	// RuntimeVersion 是 Workbox 版本号。
	RuntimeVersion string
}

// NewRuntimeContext 从配置推导运行时上下文，publicPrefix 为静态资源前缀。
func NewRuntimeContext(cfg *config.Config, publicPrefix string) RuntimeContext {
	wb := cfg.ServiceWorker.Workbox
	return RuntimeContext{
		PublicAssetPrefix: strings.TrimRight(strings.TrimSpace(publicPrefix), "/"),
		RemoteRuntime:     wb.UseCDN,
		RuntimePublicPath: "/" + strings.Trim(wb.WorkboxPublicURL, "/"),
		RuntimeVersion:    wb.Version,
	}
}

// Provider 负责一种资源类别，按配置生成零个或多个缓存策略。
// Produce 必须是纯函数：相同输入得到相同顺序的输出。
type Provider interface {
	// Key 与 serviceworker.workbox 下的配置键一致，用于错误定位。
	Key() string
	Produce(cfg *config.Config, rc RuntimeContext) ([]workbox.Strategy, error)
}

// ProviderFunc 让普通函数满足 Provider 接口。
type ProviderFunc struct {
	Name string
	Fn   func(cfg *config.Config, rc RuntimeContext) ([]workbox.Strategy, error)
}

func (p ProviderFunc) Key() string { return p.Name }

func (p ProviderFunc) Produce(cfg *config.Config, rc RuntimeContext) ([]workbox.Strategy, error) {
	return p.Fn(cfg, rc)
}

func field(parts ...string) string {
	return "serviceworker.workbox." + strings.Join(parts, ".")
}

// regexTest 生成 /re/.test(url.pathname)，去掉会导致 test 结果漂移的 g/y。
func regexTest(literal string) (string, error) {
	re, err := workbox.ParseRegex(literal)
	if err != nil {
		return "", err
	}
	return re.Tester() + ".test(url.pathname)", nil
}

// excludePrefix 返回排除打包资源前缀的条件，前缀为空时不加限制。
func excludePrefix(rc RuntimeContext) string {
	if rc.PublicAssetPrefix == "" {
		return ""
	}
	return " && !url.pathname.startsWith(" + workbox.QuoteJS(rc.PublicAssetPrefix) + ")"
}

// cacheableDefault 的参数固定，构造失败只可能是编程错误。
var cacheableDefault = mustPlugin(workbox.CacheableResponse())

func mustPlugin(p workbox.Plugin, err error) workbox.Plugin {
	if err != nil {
		panic(err)
	}
	return p
}

func cacheable() []workbox.Plugin {
	return []workbox.Plugin{cacheableDefault}
}

// withExpiration 在上限不全为 0 时追加过期插件，全为 0 表示不限制。
func withExpiration(plugins []workbox.Plugin, maxEntries, maxAge int) ([]workbox.Plugin, error) {
	if maxEntries == 0 && maxAge == 0 {
		return plugins, nil
	}
	plugin, err := workbox.Expiration(maxEntries, maxAge)
	if err != nil {
		return nil, err
	}
	return append(plugins, plugin), nil
}
