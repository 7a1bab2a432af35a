package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers the dashboard routes on the provided mux.
// The single-page dashboard is served at / and talks to the JSON API.
// Static assets are served from the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux) {
	// Static assets (embedded via go:embed).
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Page routes.
	mux.HandleFunc("GET /{$}", Dashboard)
}

// Dashboard serves the single-page dashboard shell.
func Dashboard(w http.ResponseWriter, r *http.Request) {
	index, err := StaticFS.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "dashboard unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(index)
}
