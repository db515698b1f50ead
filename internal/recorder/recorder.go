// Package recorder persists evaluated scenarios off the request path.
package recorder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yourorg/homely-api/internal/events"
	"github.com/yourorg/homely-api/internal/store"
)

// Sink is where runs are written; *store.Store satisfies it.
type Sink interface {
	RecordScenario(ctx context.Context, run store.ScenarioRun) error
}

type job struct {
	run    store.ScenarioRun
	cached bool
}

// Recorder is a bounded queue drained by a fixed set of workers. Each
// run is written to the sink, when there is one, then announced.
type Recorder struct {
	Sink    Sink
	Pub     events.Publisher
	Logger  *slog.Logger
	Timeout time.Duration

	ch     chan job
	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func New(capacity, workerCount int, sink Sink, pub events.Publisher, logger *slog.Logger) *Recorder {
	if capacity <= 0 {
		capacity = 256
	}
	if workerCount <= 0 {
		workerCount = 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recorder{Sink: sink, Pub: pub, Logger: logger, Timeout: 10 * time.Second, ch: make(chan job, capacity)}
	for i := 0; i < workerCount; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Enqueue hands a run to the workers. It never blocks: when the queue is
// full or closed the run is dropped and false is returned.
func (r *Recorder) Enqueue(run store.ScenarioRun, cached bool) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	select {
	case r.ch <- job{run: run, cached: cached}:
		return true
	default:
		r.Logger.Warn("scenario recorder saturated; dropping run", slog.String("run_id", run.ID))
		return false
	}
}

// Close stops intake and waits for queued runs to drain.
func (r *Recorder) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for j := range r.ch {
		r.handle(j)
	}
}

func (r *Recorder) handle(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()
	if r.Sink != nil {
		if err := r.Sink.RecordScenario(ctx, j.run); err != nil {
			r.Logger.Warn("persist scenario run failed", slog.String("run_id", j.run.ID), slog.String("error", err.Error()))
		}
	}
	if r.Pub != nil {
		r.Pub.PublishScenarioEvaluated(ctx, events.ScenarioEvaluated{
			RunID:       j.run.ID,
			SessionID:   j.run.SessionID,
			Address:     j.run.Address,
			WhatIfValue: j.run.WhatIfValue,
			Cached:      j.cached,
			At:          j.run.CreatedAt,
		})
	}
}
