package compiler

import (
	"fmt"
	"strings"

	"github.com/any-hub/swforge/internal/workbox"
)

const manifestCacheName = "manifest"

type finalizeRule struct{}

func (finalizeRule) Name() string { return "finalize" }

// Apply 处理 manifest 路由、skip_waiting 与 clear_cache。
// clear_cache 使用到此为止声明的全部缓存名，因此必须位于流水线末尾。
func (r finalizeRule) Apply(doc *Document, in *Input) error {
	if !in.Config.WorkboxActive() {
		return nil
	}
	sw := in.Config.ServiceWorker
	wb := sw.Workbox

	if wb.CacheManifest {
		if doc.HasCache(manifestCacheName) && doc.declared[manifestCacheName] != r.Name() {
			return &ConsistencyError{
				Rule:   r.Name(),
				Reason: fmt.Sprintf("缓存名 %q 已被 %s 使用", manifestCacheName, doc.declared[manifestCacheName]),
			}
		}
		doc.Append(SlotRules, r.Name(), fmt.Sprintf(`workbox.routing.registerRoute(
  ({url}) => url.pathname === %s,
  new workbox.strategies.StaleWhileRevalidate({cacheName: %s})
);`, workbox.QuoteJS(wb.ManifestURL), workbox.QuoteJS(manifestCacheName)))
		doc.DeclareCache(r.Name(), manifestCacheName)
	}

	if sw.SkipWaiting {
		doc.Append(SlotOffline, r.Name(), `self.addEventListener('install', () => self.skipWaiting());
self.addEventListener('activate', (event) => event.waitUntil(self.clients.claim()));`)
	}

	if wb.ClearCache {
		var b strings.Builder
		fmt.Fprintf(&b, "const CACHE_NAMES = %s;\n", stringList(doc.CacheNames()))
		b.WriteString(`self.addEventListener('activate', (event) => {
  event.waitUntil(caches.keys().then((keys) => Promise.all(
    keys
      .filter((key) => !CACHE_NAMES.includes(key) && !key.startsWith('workbox-'))
      .map((key) => caches.delete(key))
  )));
});`)
		doc.Append(SlotOffline, r.Name(), b.String())
	}
	return nil
}
