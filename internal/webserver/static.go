package webserver

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static
var staticFS embed.FS

// staticFiles serves dir when set, otherwise the embedded client.
func staticFiles(dir string) http.FileSystem {
	if dir != "" {
		return http.Dir(dir)
	}
	sub, _ := fs.Sub(staticFS, "static")
	return http.FS(sub)
}
