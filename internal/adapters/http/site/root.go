// Package site serves the embedded intake page.
package site

import (
	"context"
	"net/http"
)

// Register attaches the intake page at / to mux. Unknown paths get 404.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	files := http.FileServer(FS())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if r.URL.Path != "/" && r.URL.Path != "/index.html" && r.URL.Path != "/app.js" {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
