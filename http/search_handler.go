package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/yourorg/homely-api/internal/app"
)

type SearchDeps struct {
	Service *app.Service
	Logger  *slog.Logger
}

type SearchRequest struct {
	Address string `json:"address"`
}

func RegisterSearch(r chi.Router, d SearchDeps) {
	// POST: JSON body
	r.Post("/search", func(w http.ResponseWriter, req *http.Request) {
		var body SearchRequest
		if err := render.DecodeJSON(req.Body, &body); err != nil {
			writeError(w, req, http.StatusBadRequest, "invalid_json", err.Error())
			return
		}
		handleSearch(w, req, d, body)
	})

	// GET: query params
	r.Get("/search", func(w http.ResponseWriter, req *http.Request) {
		handleSearch(w, req, d, SearchRequest{Address: req.URL.Query().Get("address")})
	})

	r.Get("/addresses", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		limit := 10
		if v := q.Get("limit"); v != "" {
			if i, err := strconv.Atoi(v); err == nil && i > 0 {
				limit = i
			}
		}
		addrs, err := d.Service.Suggest(q.Get("prefix"), limit)
		if err != nil {
			writeServiceError(w, req, d.Logger, err)
			return
		}
		render.JSON(w, req, map[string]any{"addresses": addrs})
	})
}

func handleSearch(w http.ResponseWriter, req *http.Request, d SearchDeps, body SearchRequest) {
	if strings.TrimSpace(body.Address) == "" {
		writeError(w, req, http.StatusBadRequest, "address_required", "address is required")
		return
	}
	sel, err := d.Service.Search(req.Context(), SessionID(req.Context()), body.Address)
	if err != nil {
		writeServiceError(w, req, d.Logger, err)
		return
	}
	render.JSON(w, req, sel)
}
