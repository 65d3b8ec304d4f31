package compiler

import (
	"fmt"
	"strings"

	"github.com/any-hub/swforge/internal/workbox"
)

// fallbackCacheName 是对应资源类别的缓存未启用时使用的缓存。
const fallbackCacheName = "offline-fallbacks"

type offlineTarget struct {
	destination string
	url         string
	classKey    string
	classOn     bool
	cacheName   string
}

type offlineFallbackRule struct{}

func (offlineFallbackRule) Name() string { return "offline-fallback" }

// Apply 在 install 阶段预缓存离线页面，并注册全局 catch handler。
// 资源类别的缓存启用时复用其缓存名，该缓存必须已被前面的规则声明。
func (r offlineFallbackRule) Apply(doc *Document, in *Input) error {
	wb := in.Config.ServiceWorker.Workbox
	if !in.Config.WorkboxActive() || !wb.OfflineFallback.Enabled {
		return nil
	}

	targets := []offlineTarget{
		{"document", wb.OfflineFallback.Page, "page_cache", wb.PageCache.Enabled, wb.PageCache.CacheName},
		{"image", wb.OfflineFallback.Image, "image_cache", wb.ImageCache.Enabled, wb.ImageCache.CacheName},
		{"font", wb.OfflineFallback.Font, "font_cache", wb.FontCache.Enabled, wb.FontCache.CacheName},
	}

	var entries []string
	for _, t := range targets {
		if t.url == "" {
			continue
		}
		cacheName := fallbackCacheName
		if t.classOn {
			cacheName = t.cacheName
			if !doc.HasCache(cacheName) {
				return &ConsistencyError{
					Rule:   r.Name(),
					Reason: fmt.Sprintf("%s 的离线回退引用了未声明的缓存 %q", t.classKey, cacheName),
				}
			}
		} else {
			doc.DeclareCache(r.Name(), cacheName)
		}
		entries = append(entries, fmt.Sprintf("  %s: {url: %s, cacheName: %s}",
			t.destination, workbox.QuoteJS(t.url), workbox.QuoteJS(cacheName)))
	}
	if len(entries) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("const offlineFallbacks = {\n" + strings.Join(entries, ",\n") + "\n};\n")
	b.WriteString(`self.addEventListener('install', (event) => {
  event.waitUntil(Promise.all(Object.values(offlineFallbacks).map(({url, cacheName}) =>
    caches.open(cacheName).then((cache) => cache.add(url))
  )));
});
workbox.routing.setCatchHandler(async ({request}) => {
  const fallback = offlineFallbacks[request.destination];
  if (fallback) {
    const cached = await caches.match(fallback.url, {cacheName: fallback.cacheName});
    if (cached) {
      return cached;
    }
  }
  return Response.error();
});`)
	doc.Append(SlotOffline, r.Name(), b.String())
	return nil
}
