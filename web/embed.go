// Package web embeds the HTML templates and static assets served by the
// dashboards.
package web

import (
	"embed"
	"fmt"
	"io/fs"
)

//go:embed static templates
var content embed.FS

var (
	staticFS    = mustSub("static")
	templatesFS = mustSub("templates")
)

// StaticFS returns the static asset file system.
func StaticFS() fs.FS { return staticFS }

// TemplatesFS returns the templates file system.
func TemplatesFS() fs.FS { return templatesFS }

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(content, dir)
	if err != nil {
		panic(fmt.Sprintf("embedded %s directory: %v", dir, err))
	}
	return sub
}
