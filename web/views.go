// Package web embeds the default pages served at /, /lapor and /tutorial.
package web

import (
	"embed"
	"io/fs"
)

//go:embed views/*.html
var views embed.FS

// Views returns the embedded pages rooted at the views directory.
func Views() fs.FS {
	sub, err := fs.Sub(views, "views")
	if err != nil {
		panic(err)
	}
	return sub
}
