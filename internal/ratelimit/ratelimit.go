// Package ratelimit gates inbound requests per client key using a sliding
// window with temporary blocking. The in-memory limiter is the reference
// implementation; a redis-backed one covers multi-instance deployments.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Policy holds the thresholds for one endpoint class. Thresholds are
// configuration; the blocking state machine is not.
type Policy struct {
	MaxRequests int
	Window      time.Duration
	BlockFor    time.Duration
}

// Result is the outcome of a rate-limit check.
type Result struct {
	Allowed bool
	// Blocked is true when the key is in (or just entered) the blocked
	// state rather than merely over the window.
	Blocked    bool
	RetryAfter time.Duration
	Remaining  int
}

// Limiter is the throttling capability. Implementations must make the
// check-and-increment sequence atomic per key.
type Limiter interface {
	Check(ctx context.Context, key string, policy Policy) Result
	Cleanup(ctx context.Context, olderThan time.Duration)
}

type entry struct {
	stamps       []time.Time
	blockedUntil time.Time
	lastSeen     time.Time
}

// MemoryLimiter keeps per-key sliding windows in process memory behind a
// single mutex. Contention is low; coarse locking keeps the read-modify-write
// sequence atomic without per-key machinery.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
}

// NewMemoryLimiter constructs an empty limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Check runs one pass of the sliding-window state machine for key:
// a blocked key is rejected without recording the attempt; an expired block
// clears and the counter restarts; otherwise timestamps outside the window
// are dropped and the request is admitted while count stays under the
// policy maximum.
func (l *MemoryLimiter) Check(_ context.Context, key string, policy Policy) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.lastSeen = now

	if !e.blockedUntil.IsZero() {
		if now.Before(e.blockedUntil) {
			return Result{Blocked: true, RetryAfter: e.blockedUntil.Sub(now)}
		}
		e.blockedUntil = time.Time{}
		e.stamps = e.stamps[:0]
	}

	cutoff := now.Add(-policy.Window)
	kept := e.stamps[:0]
	for _, ts := range e.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	e.stamps = kept

	if len(e.stamps) >= policy.MaxRequests {
		e.blockedUntil = now.Add(policy.BlockFor)
		return Result{Blocked: true, RetryAfter: policy.BlockFor}
	}

	e.stamps = append(e.stamps, now)
	return Result{Allowed: true, Remaining: policy.MaxRequests - len(e.stamps)}
}

// Cleanup drops keys with no activity since the retention cutoff, bounding
// memory growth. Removal candidates are collected first so the lock is not
// held while walking a large table twice.
func (l *MemoryLimiter) Cleanup(_ context.Context, olderThan time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-olderThan)
	var stale []string
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		delete(l.entries, key)
	}
}

// Len reports the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// StartSweep runs Cleanup on the given interval until ctx is cancelled.
func (l *MemoryLimiter) StartSweep(ctx context.Context, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Cleanup(ctx, retention)
			case <-ctx.Done():
				return
			}
		}
	}()
}
