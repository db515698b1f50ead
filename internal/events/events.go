package events

import (
	"context"
	"time"
)

// ScenarioEvaluated is published after a what-if prediction is shown.
type ScenarioEvaluated struct {
	RunID       string
	SessionID   string
	Address     string
	WhatIfValue float64
	Cached      bool
	At          time.Time
}

type Publisher interface {
	PublishScenarioEvaluated(ctx context.Context, evt ScenarioEvaluated)
	SubscribeScenarioEvaluated() <-chan ScenarioEvaluated
}

type inMemory struct{ ch chan ScenarioEvaluated }

// NewInMemory returns a single-subscriber publisher. Publishing never
// blocks; events are dropped when the buffer is full.
func NewInMemory(buffer int) Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &inMemory{ch: make(chan ScenarioEvaluated, buffer)}
}

func (m *inMemory) PublishScenarioEvaluated(_ context.Context, evt ScenarioEvaluated) {
	select {
	case m.ch <- evt:
	default:
	}
}

func (m *inMemory) SubscribeScenarioEvaluated() <-chan ScenarioEvaluated { return m.ch }
