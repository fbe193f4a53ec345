package ratelimit

import (
	"sync"
	"time"
)

// maxEvictionsPerCheck bounds the work a single Check spends reclaiming
// stale entries so calls never stall behind a full table.
const maxEvictionsPerCheck = 100

// Config holds limiter tuning parameters.
type Config struct {
	// Interval is the rolling window length.
	Interval time.Duration
	// UniqueTokenPerInterval caps how many distinct identifiers are
	// tracked concurrently.
	UniqueTokenPerInterval int
	// Retention is how long an idle entry survives before the background
	// sweep removes it. It only bounds memory and is a superset of the
	// window itself.
	Retention time.Duration
	// SweepInterval is how often the background sweep runs.
	SweepInterval time.Duration
	// Now is the clock source, injectable for tests.
	Now func() time.Time
}

func (c *Config) withDefaults() {
	if c.Interval <= 0 {
		c.Interval = 15 * time.Minute
	}
	if c.UniqueTokenPerInterval <= 0 {
		c.UniqueTokenPerInterval = 500
	}
	if c.Retention <= 0 {
		c.Retention = time.Hour
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = 10 * time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

type entry struct {
	count       int
	windowStart time.Time
	lastAttempt time.Time
}

// Status describes the window state for an identifier after (or without)
// an attempt.
type Status struct {
	Count     int
	Remaining int
	ResetAt   time.Time
}

// Limiter is an in-process sliding-window attempt counter keyed by an
// identifier string. A single instance is constructed at startup and
// shared by reference; the entry map is guarded for concurrent use.
type Limiter struct {
	cfg Config

	mu      sync.Mutex
	entries map[string]*entry

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a Limiter and starts its background sweep.
func New(cfg Config) *Limiter {
	cfg.withDefaults()

	l := &Limiter{
		cfg:      cfg,
		entries:  make(map[string]*entry),
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.sweepLoop()

	return l
}

// Check records one attempt for the identifier and reports the window
// state. Attempts up to and including limit succeed; the attempt that
// would exceed it fails with a *LimitError carrying the reset time.
// A new identifier that cannot be admitted fails with ErrCapacity.
func (l *Limiter) Check(limit int, identifier string) (Status, error) {
	now := l.cfg.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identifier]
	if !ok {
		if len(l.entries) >= l.cfg.UniqueTokenPerInterval {
			l.evictStaleLocked(now, maxEvictionsPerCheck)
		}
		if len(l.entries) >= l.cfg.UniqueTokenPerInterval {
			return Status{}, ErrCapacity
		}
		e = &entry{windowStart: now}
		l.entries[identifier] = e
	} else if e.lastAttempt.Before(now.Add(-l.cfg.Interval)) {
		e.count = 0
		e.windowStart = now
	}

	e.count++
	e.lastAttempt = now

	if len(l.entries) >= l.cfg.UniqueTokenPerInterval {
		l.evictStaleLocked(now, maxEvictionsPerCheck)
	}

	st := l.statusLocked(e, limit)
	if e.count > limit {
		return st, &LimitError{
			Identifier: identifier,
			Limit:      limit,
			ResetAt:    st.ResetAt,
			retryAfter: st.ResetAt.Sub(now),
		}
	}
	return st, nil
}

// GetStatus is a read-only probe: it reports the same shape as Check
// without recording an attempt.
func (l *Limiter) GetStatus(limit int, identifier string) Status {
	now := l.cfg.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identifier]
	if !ok || e.lastAttempt.Before(now.Add(-l.cfg.Interval)) {
		return Status{Count: 0, Remaining: limit, ResetAt: now.Add(l.cfg.Interval)}
	}
	return l.statusLocked(e, limit)
}

// Size reports how many identifiers are currently tracked.
func (l *Limiter) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Close stops the background sweep. Safe to call multiple times.
func (l *Limiter) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

func (l *Limiter) statusLocked(e *entry, limit int) Status {
	remaining := limit - e.count
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Count:     e.count,
		Remaining: remaining,
		ResetAt:   e.windowStart.Add(l.cfg.Interval),
	}
}

func (l *Limiter) evictStaleLocked(now time.Time, max int) {
	cutoff := now.Add(-l.cfg.Interval)
	evicted := 0
	for id, e := range l.entries {
		if evicted >= max {
			return
		}
		if e.lastAttempt.Before(cutoff) {
			delete(l.entries, id)
			evicted++
		}
	}
}

func (l *Limiter) sweepLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.sweep()
		}
	}
}

// sweep drops entries idle past the retention horizon so memory stays
// bounded even when no checks arrive.
func (l *Limiter) sweep() {
	cutoff := l.cfg.Now().Add(-l.cfg.Retention)

	l.mu.Lock()
	defer l.mu.Unlock()

	for id, e := range l.entries {
		if e.lastAttempt.Before(cutoff) {
			delete(l.entries, id)
		}
	}
}
