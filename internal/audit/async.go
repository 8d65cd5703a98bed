package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// AsyncRecorder decouples callers from the underlying sink. Record enqueues
// without blocking; a single background goroutine drains the queue. When the
// queue is full the event is dropped and counted, so a stalled sink can never
// back-pressure an authorization decision.
type AsyncRecorder struct {
	sink    Recorder
	events  chan Event
	logger  *slog.Logger
	timeout time.Duration

	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.Mutex
	closed  bool
	dropped int64
}

// NewAsyncRecorder wraps sink with an asynchronous queue of the given size.
func NewAsyncRecorder(sink Recorder, queueSize int, logger *slog.Logger) *AsyncRecorder {
	if queueSize <= 0 {
		queueSize = 256
	}
	r := &AsyncRecorder{
		sink:    sink,
		events:  make(chan Event, queueSize),
		logger:  logger,
		timeout: 5 * time.Second,
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

// Record enqueues the event, never blocking the caller. Events recorded
// after Close are dropped.
func (r *AsyncRecorder) Record(_ context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.dropped++
		return nil
	}
	select {
	case r.events <- ev:
	default:
		r.dropped++
		if r.logger != nil {
			r.logger.Warn("audit queue full, event dropped", slog.String("type", ev.Type))
		}
	}
	return nil
}

// Dropped returns how many events were discarded because the queue was full.
func (r *AsyncRecorder) Dropped() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Close stops accepting events and waits for the queue to drain. Close is
// idempotent.
func (r *AsyncRecorder) Close() {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		close(r.events)
	})
	r.wg.Wait()
}

func (r *AsyncRecorder) drain() {
	defer r.wg.Done()
	for ev := range r.events {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		if err := r.sink.Record(ctx, ev); err != nil && r.logger != nil {
			r.logger.Warn("audit sink write failed", slog.Any("error", err), slog.String("type", ev.Type))
		}
		cancel()
	}
}
