package compiler

import (
	"fmt"
	"strings"

	"github.com/any-hub/swforge/internal/workbox"
)

const cdnURL = "https://storage.googleapis.com/workbox-cdn/releases/%s/workbox-sw.js"

type importRule struct{}

func (importRule) Name() string { return "workbox-import" }

func (importRule) Apply(doc *Document, in *Input) error {
	if !in.Config.WorkboxActive() {
		return nil
	}
	if in.Runtime.RemoteRuntime {
		doc.Append(SlotImport, "workbox-import", fmt.Sprintf("importScripts(%s);", workbox.QuoteJS(fmt.Sprintf(cdnURL, in.Runtime.RuntimeVersion))))
		return nil
	}

	base := strings.TrimRight(in.Runtime.RuntimePublicPath, "/")
	var b strings.Builder
	fmt.Fprintf(&b, "importScripts(%s);\n", workbox.QuoteJS(base+"/workbox-sw.js"))
	fmt.Fprintf(&b, "workbox.setConfig({modulePathPrefix: %s});", workbox.QuoteJS(base))
	doc.Append(SlotImport, "workbox-import", b.String())
	return nil
}
