package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/homely-api/internal/dataset"
)

type StatusDeps struct {
	Catalog *dataset.Catalog
}

func RegisterStatus(r chi.Router, d StatusDeps) {
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		render.JSON(w, req, map[string]any{"ok": true})
	})
	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		if d.Catalog.Ready() {
			render.JSON(w, req, map[string]any{"ready": true})
			return
		}
		body := map[string]any{"ready": false, "error": "not_ready", "message": msgNotReady}
		if err := d.Catalog.LastError(); err != nil {
			body["last_error"] = err.Error()
		}
		render.Status(req, http.StatusServiceUnavailable)
		render.JSON(w, req, body)
	})
}

// RequireReady rejects requests with 503 until every dataset is loaded.
func RequireReady(cat *dataset.Catalog) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if !cat.Ready() {
				writeError(w, req, http.StatusServiceUnavailable, "not_ready", msgNotReady)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
