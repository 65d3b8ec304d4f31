package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/any-hub/swforge/internal/workbox"
)

// pluginClasses 是各插件在 Workbox 运行时中的构造器。
var pluginClasses = map[workbox.PluginKind]string{
	workbox.PluginCacheableResponse: "workbox.cacheableResponse.CacheableResponsePlugin",
	workbox.PluginExpiration:        "workbox.expiration.ExpirationPlugin",
	workbox.PluginBackgroundSync:    "workbox.backgroundSync.BackgroundSyncPlugin",
	workbox.PluginBroadcastUpdate:   "workbox.broadcastUpdate.BroadcastUpdatePlugin",
	workbox.PluginRangeRequests:     "workbox.rangeRequests.RangeRequestsPlugin",
}

// jsonOptions 输出键排序的紧凑 JSON，不转义 <、>、&。
func jsonOptions(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func renderPlugin(p workbox.Plugin) (string, error) {
	class, ok := pluginClasses[p.Kind()]
	if !ok {
		return "", fmt.Errorf("未知插件类型 %q", p.Kind())
	}
	params := p.Parameters()

	var args []string
	if p.Kind() == workbox.PluginBackgroundSync {
		queue, _ := params["queueName"].(string)
		delete(params, "queueName")
		args = append(args, workbox.QuoteJS(queue))
	}
	if len(params) > 0 {
		opts, err := jsonOptions(params)
		if err != nil {
			return "", err
		}
		args = append(args, opts)
	}
	return fmt.Sprintf("new %s(%s)", class, strings.Join(args, ", ")), nil
}

// renderStrategy 生成策略实例的声明语句，以及（需要时）路由注册语句。
func renderStrategy(varName string, s workbox.Strategy) (string, error) {
	var opts []string
	if s.CacheName() != "" {
		opts = append(opts, "cacheName: "+workbox.QuoteJS(s.CacheName()))
	}
	if timeout, ok := s.NetworkTimeout(); ok {
		opts = append(opts, fmt.Sprintf("networkTimeoutSeconds: %d", timeout))
	}
	if plugins := s.Plugins(); len(plugins) > 0 {
		rendered := make([]string, 0, len(plugins))
		for _, p := range plugins {
			js, err := renderPlugin(p)
			if err != nil {
				return "", fmt.Errorf("%s: %w", s.Name(), err)
			}
			rendered = append(rendered, "    "+js)
		}
		opts = append(opts, "plugins: [\n"+strings.Join(rendered, ",\n")+"\n  ]")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "const %s = new workbox.strategies.%s({", varName, s.Kind())
	if len(opts) > 0 {
		b.WriteString("\n  " + strings.Join(opts, ",\n  ") + "\n")
	}
	b.WriteString("});")

	if s.RegisterRoute() {
		fmt.Fprintf(&b, "\nworkbox.routing.registerRoute(\n  %s,\n  %s", s.MatchExpression(), varName)
		if s.Method() != "GET" {
			b.WriteString(",\n  " + workbox.QuoteJS(s.Method()))
		}
		b.WriteString("\n);")
	}

	if urls := s.PreloadURLs(); len(urls) > 0 {
		fmt.Fprintf(&b, "\nworkbox.recipes.warmStrategyCache({\n  urls: %s,\n  strategy: %s\n});", stringList(urls), varName)
	}
	return b.String(), nil
}

func stringList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		quoted = append(quoted, workbox.QuoteJS(item))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
