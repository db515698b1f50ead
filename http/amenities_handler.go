package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/homely-api/internal/app"
)

type AmenitiesDeps struct {
	Service *app.Service
	Logger  *slog.Logger
}

func RegisterAmenities(r chi.Router, d AmenitiesDeps) {
	r.Route("/amenities", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			groups, err := d.Service.Nearby(req.Context(), SessionID(req.Context()))
			if err != nil {
				writeServiceError(w, req, d.Logger, err)
				return
			}
			render.JSON(w, req, map[string]any{"amenities": groups})
		})
		r.Get("/sources", func(w http.ResponseWriter, req *http.Request) {
			sources, err := d.Service.Sources()
			if err != nil {
				writeServiceError(w, req, d.Logger, err)
				return
			}
			render.JSON(w, req, map[string]any{"sources": sources})
		})
	})
}
