// Package tasks runs best-effort side effects (history writes, operator mail)
// off the response path. Submission never blocks; completion is observed only
// through logs and metrics.
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/comigor/nazborg-go/internal/config"
	"github.com/comigor/nazborg-go/internal/logger"
	"github.com/comigor/nazborg-go/internal/metrics"
)

// Func is a unit of background work. ctx is detached from the request that
// submitted it and bounded by the dispatcher timeout.
type Func func(ctx context.Context) error

type job struct {
	name string
	fn   Func
}

// Dispatcher is a bounded queue drained by a fixed set of workers.
type Dispatcher struct {
	queue   chan job
	timeout time.Duration
	metrics *metrics.Metrics

	workers conc.WaitGroup
	pending sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New starts cfg.Workers workers.
func New(cfg config.TasksConfig, m *metrics.Metrics) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	d := &Dispatcher{
		queue:   make(chan job, cfg.QueueSize),
		timeout: cfg.Timeout,
		metrics: m,
	}
	for i := 0; i < cfg.Workers; i++ {
		d.workers.Go(d.work)
	}
	return d
}

// NewSerial returns a single-worker Dispatcher: accepted tasks run one at a
// time in submission order.
func NewSerial(cfg config.TasksConfig, m *metrics.Metrics) *Dispatcher {
	cfg.Workers = 1
	return New(cfg, m)
}

// Submit enqueues fn. It reports false when the task was dropped because the
// queue is full or the dispatcher is closed.
func (d *Dispatcher) Submit(name string, fn Func) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		logger.L.Warn("background task dropped: dispatcher closed", "task", name)
		d.metrics.TaskDropped(name)
		return false
	}

	d.pending.Add(1)
	select {
	case d.queue <- job{name: name, fn: fn}:
		return true
	default:
		d.pending.Done()
		logger.L.Warn("background task dropped: queue full", "task", name)
		d.metrics.TaskDropped(name)
		return false
	}
}

// Flush blocks until every accepted task has finished.
func (d *Dispatcher) Flush() {
	d.pending.Wait()
}

// Close stops accepting tasks and waits for queued ones to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) work() {
	for j := range d.queue {
		d.run(j)
		d.pending.Done()
	}
}

func (d *Dispatcher) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var err error
	var pc panics.Catcher
	pc.Try(func() { err = j.fn(ctx) })
	if r := pc.Recovered(); r != nil {
		logger.L.Error("background task panicked", "task", j.name, "panic", r.Value)
		return
	}
	if err != nil {
		logger.L.Warn("background task failed", "task", j.name, "error", err)
		return
	}
	logger.L.Debug("background task done", "task", j.name)
}
