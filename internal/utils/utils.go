package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const (
	ContentTypeJSON     = "application/json; charset=utf-8"
	ContentTypeHTML     = "text/html; charset=utf-8"
	ContentTypeCSV      = "text/csv; charset=utf-8"
	ContentTypeCalendar = "text/calendar; charset=utf-8"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", ContentTypeJSON)
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

// WriteError writes {"error": <status text>, "message": msg}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]any{
		"error":   http.StatusText(status),
		"message": msg,
	})
}

// WriteContent writes a fully rendered body. Handlers render into a buffer
// first so failures can still become a JSON error.
func WriteContent(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write response", "content_type", contentType, "error", err)
	}
}
