// Package trigger owns the single goroutine that runs reconciliation passes:
// on request, on a timer and with backoff after failures.
package trigger

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"kasir-sync/internal/obs"
	"kasir-sync/internal/reconcile"
)

var (
	ErrNotStarted = errors.New("sync worker not started")
	ErrStopped    = errors.New("sync worker stopped")
)

// Syncer runs one reconciliation pass.
type Syncer interface {
	SyncOnce(ctx context.Context) reconcile.Result
}

type Config struct {
	Interval   time.Duration // delay between passes while they succeed
	MaxBackoff time.Duration // upper bound of the delay after failed passes
}

// Worker serialises passes: at most one runs at a time and any number of
// requests made meanwhile collapse into a single follow-up pass.
type Worker struct {
	syncer     Syncer
	interval   time.Duration
	maxBackoff time.Duration

	requests chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc

	mu      sync.Mutex
	state   int
	waiters []chan reconcile.Result
	last    *reconcile.Result
	delay   time.Duration

	running atomic.Bool
}

const (
	stateNew = iota
	stateStarted
	stateStopped
)

func New(s Syncer, cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.MaxBackoff < cfg.Interval {
		cfg.MaxBackoff = cfg.Interval
	}
	return &Worker{
		syncer:     s,
		interval:   cfg.Interval,
		maxBackoff: cfg.MaxBackoff,
		requests:   make(chan struct{}, 1),
		done:       make(chan struct{}),
		delay:      cfg.Interval,
	}
}

// Start launches the worker loop and schedules an immediate first pass.
func (w *Worker) Start(parent context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != stateNew {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	w.cancel = cancel
	w.state = stateStarted
	w.Request()
	go w.loop(ctx)
	obs.Logger.Info("sync_worker_started", "interval_ms", w.interval.Milliseconds(), "max_backoff_ms", w.maxBackoff.Milliseconds())
}

// Stop ends the loop and waits for it. A pass already running completes first.
func (w *Worker) Stop() {
	w.mu.Lock()
	switch w.state {
	case stateNew:
		w.state = stateStopped
		close(w.done)
		w.mu.Unlock()
		return
	case stateStopped:
		w.mu.Unlock()
		<-w.done
		return
	}
	w.state = stateStopped
	w.cancel()
	w.mu.Unlock()

	<-w.done
	obs.Logger.Info("sync_worker_stopped")
}

// Request asks for a pass without waiting. Requests made while one is already
// pending are merged into it.
func (w *Worker) Request() {
	select {
	case w.requests <- struct{}{}:
	default:
	}
}

// Sync requests a pass and waits for the result of the next pass to start.
func (w *Worker) Sync(ctx context.Context) (reconcile.Result, error) {
	ch := make(chan reconcile.Result, 1)
	w.mu.Lock()
	switch w.state {
	case stateNew:
		w.mu.Unlock()
		return reconcile.Result{}, ErrNotStarted
	case stateStopped:
		w.mu.Unlock()
		return reconcile.Result{}, ErrStopped
	}
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()

	w.Request()
	select {
	case res := <-ch:
		return res, nil
	case <-ctx.Done():
		w.dropWaiter(ch)
		return reconcile.Result{}, ctx.Err()
	case <-w.done:
		select {
		case res := <-ch:
			return res, nil
		default:
			return reconcile.Result{}, ErrStopped
		}
	}
}

// LastResult returns the result of the most recent finished pass.
func (w *Worker) LastResult() (reconcile.Result, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return reconcile.Result{}, false
	}
	return *w.last, true
}

// Running reports whether a pass is in flight.
func (w *Worker) Running() bool { return w.running.Load() }

// Delay is the wait before the next periodic pass.
func (w *Worker) Delay() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.delay
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.requests:
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}

		res := w.runPass(ctx)

		w.mu.Lock()
		w.delay = nextDelay(w.delay, w.interval, w.maxBackoff, res.OK())
		delay := w.delay
		w.mu.Unlock()
		timer.Reset(delay)
	}
}

// runPass hands the result to every waiter registered before the pass began.
func (w *Worker) runPass(ctx context.Context) reconcile.Result {
	w.mu.Lock()
	waiters := w.waiters
	w.waiters = nil
	w.mu.Unlock()

	w.running.Store(true)
	res := w.syncer.SyncOnce(context.WithoutCancel(ctx))
	w.running.Store(false)

	w.mu.Lock()
	w.last = &res
	w.mu.Unlock()
	for _, ch := range waiters {
		ch <- res
	}
	if !res.OK() {
		obs.Logger.Warn("sync_pass_failed", "pass_id", res.PassID, "outcome", res.Outcome().String(), "err", res.Err())
	}
	return res
}

func (w *Worker) dropWaiter(ch chan reconcile.Result) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, c := range w.waiters {
		if c == ch {
			w.waiters = append(w.waiters[:i], w.waiters[i+1:]...)
			return
		}
	}
}

// nextDelay doubles the delay after a failed pass up to ceiling and resets it to
// interval after a good one.
func nextDelay(cur, interval, ceiling time.Duration, ok bool) time.Duration {
	if ok {
		return interval
	}
	next := cur * 2
	if next > ceiling || next <= 0 {
		next = ceiling
	}
	return next
}
