package main

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	httpapi "github.com/yourorg/homely-api/http"
	"github.com/yourorg/homely-api/internal/app"
	"github.com/yourorg/homely-api/internal/dataset"
	"github.com/yourorg/homely-api/internal/logger"
	"github.com/yourorg/homely-api/internal/metrics"
)

type RouterDeps struct {
	Service         *app.Service
	Catalog         *dataset.Catalog
	Metrics         *metrics.Metrics
	Logger          *slog.Logger
	RateLimitPerMin int
}

func BuildRouter(d RouterDeps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.RateLimitPerMin <= 0 {
		d.RateLimitPerMin = 100
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(d.RateLimitPerMin, 1*time.Minute)) // protect the valuation service
	r.Use(render.SetContentType(render.ContentTypeJSON))

	httpapi.RegisterStatus(r, httpapi.StatusDeps{Catalog: d.Catalog})
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(httpapi.Sessions)
		r.Use(httpapi.RequireReady(d.Catalog))
		httpapi.RegisterSearch(r, httpapi.SearchDeps{Service: d.Service, Logger: d.Logger})
		httpapi.RegisterAmenities(r, httpapi.AmenitiesDeps{Service: d.Service, Logger: d.Logger})
		httpapi.RegisterScenario(r, httpapi.ScenarioDeps{Service: d.Service, Logger: d.Logger})
	})

	return r
}
