package httpapi

import (
	"net/http"
	"time"

	"seattle-events/internal/auth"
	"seattle-events/internal/config"
	"seattle-events/internal/metrics"
)

func NewServer(cfg config.Config, mux *http.ServeMux, creds auth.Credentials, m *metrics.Metrics) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(auth.Middleware(creds, mux, "/healthz"), m),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
