package httpapi

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"

	"seattle-events/internal/metrics"
)

// NewMux registers the operational routes. Feature modules add theirs on top.
func NewMux(db *sql.DB, staticDir string, m *metrics.Metrics) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	mux.Handle("GET /metrics", m.Handler())
	registerStatic(mux, staticDir)
	return mux
}

func registerStatic(mux *http.ServeMux, dir string) {
	if dir == "" {
		return
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		slog.Warn("static dir not found, skipping /static/", "dir", dir)
		return
	}
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(dir))))
}
