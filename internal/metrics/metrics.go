package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeFound      = "found"
	OutcomeNotFound   = "not_found"
	OutcomeOK         = "ok"
	OutcomeCached     = "cached"
	OutcomeFailed     = "failed"
	OutcomeSuperseded = "superseded"
)

type Metrics struct {
	Registry       *prometheus.Registry
	Searches       *prometheus.CounterVec
	Predictions    *prometheus.CounterVec
	PredictLatency prometheus.Histogram
	Evaluations    *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homely",
			Name:      "address_searches_total",
			Help:      "Address lookups by outcome.",
		}, []string{"outcome"}),
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homely",
			Name:      "predictions_total",
			Help:      "What-if submissions by outcome.",
		}, []string{"outcome"}),
		PredictLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "homely",
			Name:      "valuation_request_seconds",
			Help:      "Latency of calls to the valuation service.",
			Buckets:   prometheus.DefBuckets,
		}),
		Evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "homely",
			Name:      "scenario_evaluations_total",
			Help:      "Evaluated scenarios seen by the audit consumer, by source.",
		}, []string{"source"}),
	}
	reg.MustRegister(
		m.Searches, m.Predictions, m.PredictLatency, m.Evaluations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
