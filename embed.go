package folio

import (
	"embed"
	"io/fs"
	"sort"
)

// EmbeddedAssets contains static assets shipped with the engine:
// folio.css and folio.js (live search, newsletter form, analytics beacon).
//
//go:embed embedded/*
var EmbeddedAssets embed.FS

// EmbeddedAssetNames lists the embedded files, served under /public/.
func EmbeddedAssetNames() []string {
	entries, err := fs.ReadDir(EmbeddedAssets, "embedded")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names
}
