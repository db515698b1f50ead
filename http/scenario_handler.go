package httpapi

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/homely-api/internal/app"
	"github.com/yourorg/homely-api/internal/scenario"
)

type ScenarioDeps struct {
	Service *app.Service
	Logger  *slog.Logger
}

func RegisterScenario(r chi.Router, d ScenarioDeps) {
	r.Route("/scenario", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var o scenario.Overrides
			// an empty body means no overrides
			if err := render.DecodeJSON(req.Body, &o); err != nil && !errors.Is(err, io.EOF) {
				writeError(w, req, http.StatusBadRequest, "invalid_json", err.Error())
				return
			}
			ev, err := d.Service.Evaluate(req.Context(), SessionID(req.Context()), o)
			if err != nil {
				writeServiceError(w, req, d.Logger, err)
				return
			}
			render.JSON(w, req, ev)
		})
		r.Get("/history", func(w http.ResponseWriter, req *http.Request) {
			limit := 10
			if v := req.URL.Query().Get("limit"); v != "" {
				if i, err := strconv.Atoi(v); err == nil && i > 0 && i <= 100 {
					limit = i
				}
			}
			runs, err := d.Service.Recent(req.Context(), SessionID(req.Context()), limit)
			if err != nil {
				writeServiceError(w, req, d.Logger, err)
				return
			}
			render.JSON(w, req, map[string]any{"runs": runs})
		})
	})
}
