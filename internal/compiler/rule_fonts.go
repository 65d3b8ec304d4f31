package compiler

import (
	"fmt"
)

const defaultGoogleFontsPrefix = "google-fonts"

type googleFontsRule struct{}

func (googleFontsRule) Name() string { return "google-fonts" }

func (r googleFontsRule) Apply(doc *Document, in *Input) error {
	gf := in.Config.ServiceWorker.Workbox.GoogleFonts
	if !in.Config.WorkboxActive() || !gf.Enabled {
		return nil
	}

	opts := map[string]any{}
	if gf.CachePrefix != "" {
		opts["cachePrefix"] = gf.CachePrefix
	}
	if gf.MaxAge != nil {
		opts["maxAgeSeconds"] = *gf.MaxAge
	}
	if gf.MaxEntries != nil {
		opts["maxEntries"] = *gf.MaxEntries
	}

	args := ""
	if len(opts) > 0 {
		encoded, err := jsonOptions(opts)
		if err != nil {
			return &ConsistencyError{Rule: r.Name(), Reason: err.Error()}
		}
		args = encoded
	}
	doc.Append(SlotRules, r.Name(), fmt.Sprintf("workbox.recipes.googleFontsCache(%s);", args))

	prefix := gf.CachePrefix
	if prefix == "" {
		prefix = defaultGoogleFontsPrefix
	}
	doc.DeclareCache(r.Name(), prefix+"-stylesheets")
	doc.DeclareCache(r.Name(), prefix+"-webfonts")
	return nil
}
