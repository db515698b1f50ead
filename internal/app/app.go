// Package app wires the catalog, session state and valuation client into
// the operations the HTTP layer exposes.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/homely-api/internal/amenity"
	"github.com/yourorg/homely-api/internal/dataset"
	"github.com/yourorg/homely-api/internal/metrics"
	"github.com/yourorg/homely-api/internal/property"
	"github.com/yourorg/homely-api/internal/scenario"
	"github.com/yourorg/homely-api/internal/session"
	"github.com/yourorg/homely-api/internal/store"
	"github.com/yourorg/homely-api/internal/valuation"
)

var (
	ErrNotFound    = errors.New("address not found")
	ErrNoSelection = errors.New("no property selected")
	ErrNoHistory   = errors.New("scenario history not configured")
)

type Predictor interface {
	Predict(ctx context.Context, req scenario.Request) (valuation.Response, error)
}

// PredictionCache is satisfied by *redisx.Client.
type PredictionCache interface {
	Prediction(ctx context.Context, key string) ([]byte, bool, error)
	SetPrediction(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type Recorder interface {
	Enqueue(run store.ScenarioRun, cached bool) bool
}

type History interface {
	RecentScenarios(ctx context.Context, address string, limit int) ([]store.ScenarioRun, error)
}

// Service holds everything a request needs. Cache, Recorder, History and
// Metrics are optional.
type Service struct {
	Catalog   *dataset.Catalog
	Sessions  session.Store
	Sequencer *session.Sequencer
	Predictor Predictor
	Cache     PredictionCache
	CacheTTL  time.Duration
	Recorder  Recorder
	History   History
	Metrics   *metrics.Metrics
	Render    valuation.RenderOptions
	Logger    *slog.Logger
	Now       func() time.Time
}

type Selection struct {
	Property  property.Property `json:"property"`
	Amenities []amenity.Group   `json:"amenities"`
}

type Evaluation struct {
	RunID   string           `json:"run_id"`
	Address string           `json:"address"`
	Request scenario.Request `json:"request"`
	Result  valuation.Result `json:"result"`
	Cached  bool             `json:"cached"`
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *Service) countSearch(outcome string) {
	if s.Metrics != nil {
		s.Metrics.Searches.WithLabelValues(outcome).Inc()
	}
}

func (s *Service) countPrediction(outcome string) {
	if s.Metrics != nil {
		s.Metrics.Predictions.WithLabelValues(outcome).Inc()
	}
}

// Search locates the address and makes it the session's selection. A miss
// leaves the previous selection in place.
func (s *Service) Search(ctx context.Context, sid, query string) (Selection, error) {
	loc, err := s.Catalog.Locator()
	if err != nil {
		return Selection{}, err
	}
	ix, err := s.Catalog.Index()
	if err != nil {
		return Selection{}, err
	}
	p, ok := loc.Find(query)
	if !ok {
		s.countSearch(metrics.OutcomeNotFound)
		return Selection{}, ErrNotFound
	}
	if err := s.Sessions.Select(ctx, sid, p.Address); err != nil {
		return Selection{}, fmt.Errorf("store selection: %w", err)
	}
	s.countSearch(metrics.OutcomeFound)
	return Selection{
		Property:  p,
		Amenities: ix.NearbyAll(p.Coordinate(), amenity.DefaultRadiusMiles),
	}, nil
}

// Suggest lists dataset addresses starting with prefix.
func (s *Service) Suggest(prefix string, limit int) ([]string, error) {
	loc, err := s.Catalog.Locator()
	if err != nil {
		return nil, err
	}
	return loc.Suggest(prefix, limit), nil
}

// Sources returns the amenity category configuration.
func (s *Service) Sources() ([]amenity.Source, error) {
	ix, err := s.Catalog.Index()
	if err != nil {
		return nil, err
	}
	return ix.Sources(), nil
}

func (s *Service) selected(ctx context.Context, sid string) (property.Property, error) {
	loc, err := s.Catalog.Locator()
	if err != nil {
		return property.Property{}, err
	}
	addr, ok, err := s.Sessions.Selected(ctx, sid)
	if err != nil {
		return property.Property{}, fmt.Errorf("load selection: %w", err)
	}
	if !ok {
		return property.Property{}, ErrNoSelection
	}
	p, ok := loc.Find(addr)
	if !ok {
		return property.Property{}, ErrNoSelection
	}
	return p, nil
}

// Nearby recomputes the amenity groups around the current selection.
func (s *Service) Nearby(ctx context.Context, sid string) ([]amenity.Group, error) {
	p, err := s.selected(ctx, sid)
	if err != nil {
		return nil, err
	}
	ix, err := s.Catalog.Index()
	if err != nil {
		return nil, err
	}
	return ix.NearbyAll(p.Coordinate(), amenity.DefaultRadiusMiles), nil
}

// Evaluate builds the what-if request for the selection, values it and
// renders the result. Only the latest submission of a session gets a
// result; earlier ones finish with session.ErrSuperseded.
func (s *Service) Evaluate(ctx context.Context, sid string, o scenario.Overrides) (Evaluation, error) {
	p, err := s.selected(ctx, sid)
	if err != nil {
		return Evaluation{}, err
	}
	req := scenario.Build(p, o)
	key := req.Key()

	token := s.Sequencer.Begin(sid)
	defer s.Sequencer.Done(sid, token)

	resp, cached := s.cached(ctx, key)
	if !cached {
		start := time.Now()
		resp, err = s.Predictor.Predict(ctx, req)
		if s.Metrics != nil {
			s.Metrics.PredictLatency.Observe(time.Since(start).Seconds())
		}
		if err != nil && s.Sequencer.Latest(sid, token) {
			s.countPrediction(metrics.OutcomeFailed)
			s.logger().Error("prediction failed", slog.String("address", p.Address), slog.String("error", err.Error()))
			return Evaluation{}, err
		}
	}
	if !s.Sequencer.Latest(sid, token) {
		s.countPrediction(metrics.OutcomeSuperseded)
		return Evaluation{}, session.ErrSuperseded
	}

	if cached {
		s.countPrediction(metrics.OutcomeCached)
	} else {
		s.countPrediction(metrics.OutcomeOK)
		s.store(ctx, key, resp)
	}

	ev := Evaluation{
		RunID:   uuid.NewString(),
		Address: p.Address,
		Request: req,
		Result:  valuation.Render(resp, s.Render),
		Cached:  cached,
	}
	s.record(sid, ev, resp)
	return ev, nil
}

func (s *Service) cached(ctx context.Context, key string) (valuation.Response, bool) {
	if s.Cache == nil {
		return valuation.Response{}, false
	}
	raw, ok, err := s.Cache.Prediction(ctx, key)
	if err != nil {
		s.logger().Warn("prediction cache read failed", slog.String("error", err.Error()))
		return valuation.Response{}, false
	}
	if !ok {
		return valuation.Response{}, false
	}
	var resp valuation.Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return valuation.Response{}, false
	}
	return resp, true
}

func (s *Service) store(ctx context.Context, key string, resp valuation.Response) {
	if s.Cache == nil || s.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := s.Cache.SetPrediction(ctx, key, raw, s.CacheTTL); err != nil {
		s.logger().Warn("prediction cache write failed", slog.String("error", err.Error()))
	}
}

func (s *Service) record(sid string, ev Evaluation, resp valuation.Response) {
	if s.Recorder == nil {
		return
	}
	reqJSON, err := json.Marshal(ev.Request)
	if err != nil {
		return
	}
	attr, err := json.Marshal(resp.Summary)
	if err != nil {
		return
	}
	s.Recorder.Enqueue(store.ScenarioRun{
		ID:          ev.RunID,
		SessionID:   sid,
		Address:     ev.Address,
		Request:     reqJSON,
		WhatIfValue: resp.WhatIfValue,
		Attribution: attr,
		CreatedAt:   s.now(),
	}, ev.Cached)
}

// Recent lists past evaluations of the selected property.
func (s *Service) Recent(ctx context.Context, sid string, limit int) ([]store.ScenarioRun, error) {
	p, err := s.selected(ctx, sid)
	if err != nil {
		return nil, err
	}
	if s.History == nil {
		return nil, ErrNoHistory
	}
	return s.History.RecentScenarios(ctx, p.Address, limit)
}
