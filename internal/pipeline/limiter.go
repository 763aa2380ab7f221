package pipeline

// limiter.go bounds concurrent runs.
//
// A run date may only be processed by one run at a time; a second request
// for the same date fails fast with ErrRunInProgress. Runs for different
// dates share a fixed number of slots and wait up to maxWait for one.
//
// WaitForDrain blocks until all active runs complete, for graceful shutdown.

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/ingest/internal/core"
)

var (
	// ErrRunInProgress is returned when the run date is already being processed.
	ErrRunInProgress = errors.New("run already in progress for this date")

	// ErrTooManyRuns is returned when no run slot frees up within the wait time.
	ErrTooManyRuns = errors.New("too many concurrent runs, please try again later")
)

// DefaultMaxConcurrentRuns is the default limit for parallel runs.
const DefaultMaxConcurrentRuns = 2

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// RunLimiter controls concurrent runs using a semaphore plus a per-date guard.
type RunLimiter struct {
	semaphore chan struct{}
	maxWait   time.Duration

	mu     sync.Mutex
	active map[core.Date]time.Time
}

// NewRunLimiter creates a limiter that allows at most maxConcurrent simultaneous runs.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}

	return &RunLimiter{
		semaphore: make(chan struct{}, maxConcurrent),
		maxWait:   maxWait,
		active:    make(map[core.Date]time.Time),
	}
}

// Acquire reserves runDate and a run slot.
// The caller MUST call Release(runDate) when the run completes (use defer).
func (l *RunLimiter) Acquire(ctx context.Context, runDate core.Date) error {
	l.mu.Lock()
	if _, busy := l.active[runDate]; busy {
		l.mu.Unlock()
		return ErrRunInProgress
	}
	l.active[runDate] = time.Now()
	l.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	select {
	case l.semaphore <- struct{}{}:
		return nil
	case <-waitCtx.Done():
		l.forget(runDate)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyRuns
	}
}

// Release frees runDate and its slot.
// Must be called exactly once for each successful Acquire.
func (l *RunLimiter) Release(runDate core.Date) {
	l.forget(runDate)
	<-l.semaphore
}

func (l *RunLimiter) forget(runDate core.Date) {
	l.mu.Lock()
	delete(l.active, runDate)
	l.mu.Unlock()
}

// ActiveCount returns the number of dates currently reserved.
func (l *RunLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.active)
}

// WaitForDrain blocks until all active runs complete or ctx is cancelled.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LimiterStatus is a snapshot of the limiter's state.
type LimiterStatus struct {
	Active        []string `json:"active"`
	Available     int      `json:"available"`
	MaxConcurrent int      `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *RunLimiter) Status() LimiterStatus {
	l.mu.Lock()
	dates := make([]string, 0, len(l.active))
	for d := range l.active {
		dates = append(dates, d.String())
	}
	l.mu.Unlock()
	sort.Strings(dates)

	return LimiterStatus{
		Active:        dates,
		Available:     cap(l.semaphore) - len(l.semaphore),
		MaxConcurrent: cap(l.semaphore),
	}
}
