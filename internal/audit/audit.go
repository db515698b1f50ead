package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/homely-api/internal/events"
	"github.com/yourorg/homely-api/internal/metrics"
)

// Consumer drains scenario.evaluated events into the log and metrics.
type Consumer struct {
	Pub     events.Publisher
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func (c *Consumer) Run(ctx context.Context) {
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sub := c.Pub.SubscribeScenarioEvaluated()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-sub:
			source := "model"
			if evt.Cached {
				source = "cache"
			}
			if c.Metrics != nil {
				c.Metrics.Evaluations.WithLabelValues(source).Inc()
			}
			logger.Info("scenario evaluated",
				slog.String("run_id", evt.RunID),
				slog.String("address", evt.Address),
				slog.Float64("what_if_value", evt.WhatIfValue),
				slog.String("source", source),
				slog.String("at", evt.At.Format(time.RFC3339)),
			)
		}
	}
}
