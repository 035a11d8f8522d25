package ui

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/johnwards/crmproxy/internal/api"
)

// RegisterRoutes installs the catch-all handler. Files found in assets are
// served as-is; other GETs outside /api fall back to index.html so a client
// side router can take over. Everything else gets a 404 envelope. A nil
// assets disables static serving.
func RegisterRoutes(mux *http.ServeMux, assets fs.FS) {
	mux.Handle("/", Handler(assets))
}

// Handler returns the catch-all handler described in RegisterRoutes.
func Handler(assets fs.FS) http.Handler {
	var fileServer http.Handler
	if assets != nil {
		fileServer = http.FileServer(http.FS(assets))
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if assets == nil || api.IsAPIPath(r.URL.Path) ||
			(r.Method != http.MethodGet && r.Method != http.MethodHead) {
			notFound(w, r)
			return
		}

		name := strings.TrimPrefix(r.URL.Path, "/")
		if name != "" {
			if info, err := fs.Stat(assets, name); err == nil && !info.IsDir() {
				fileServer.ServeHTTP(w, r)
				return
			}
		}

		index, err := fs.ReadFile(assets, "index.html")
		if err != nil {
			notFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(index)
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	api.WriteError(w, api.NewNotFoundError("Cannot "+r.Method+" "+r.URL.Path))
}
