package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	tags      []string
	expiresAt time.Time
}

// Memory is the in-process Cache used for single-instance deployments
// and tests. A janitor goroutine drops expired entries so memory stays
// bounded between reads.
type Memory struct {
	now func() time.Time

	mu      sync.RWMutex
	entries map[string]memoryEntry
	tags    map[string]map[string]struct{}

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// MemoryOptions tunes the in-process cache.
type MemoryOptions struct {
	// CleanupInterval is how often the janitor removes expired entries.
	CleanupInterval time.Duration
	// Now is the clock source, injectable for tests.
	Now func() time.Time
}

// NewMemory creates an in-process cache and starts its janitor.
func NewMemory(opts MemoryOptions) *Memory {
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 5 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	m := &Memory{
		now:      opts.Now,
		entries:  make(map[string]memoryEntry),
		tags:     make(map[string]map[string]struct{}),
		stopChan: make(chan struct{}),
	}

	m.wg.Add(1)
	go m.janitor(opts.CleanupInterval)

	return m
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if !m.now().Before(e.expiresAt) {
		// Expired entries are dropped on read; the janitor handles the rest.
		m.mu.Lock()
		if cur, still := m.entries[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			m.removeLocked(key, cur)
		}
		m.mu.Unlock()
		return nil, false, nil
	}

	value := make([]byte, len(e.value))
	copy(value, e.value)
	return value, true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[key]; ok {
		m.unlinkTagsLocked(key, old.tags)
	}

	m.entries[key] = memoryEntry{
		value:     stored,
		tags:      tags,
		expiresAt: m.now().Add(ttl),
	}
	for _, tag := range tags {
		keys, ok := m.tags[tag]
		if !ok {
			keys = make(map[string]struct{})
			m.tags[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (m *Memory) DeleteByTag(ctx context.Context, tag string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.tags[tag] {
		if e, ok := m.entries[key]; ok {
			m.removeLocked(key, e)
		}
	}
	delete(m.tags, tag)
	return nil
}

// Size reports the number of stored entries, expired or not.
func (m *Memory) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close stops the janitor. Safe to call multiple times.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() {
		close(m.stopChan)
		m.wg.Wait()
	})
	return nil
}

func (m *Memory) removeLocked(key string, e memoryEntry) {
	m.unlinkTagsLocked(key, e.tags)
	delete(m.entries, key)
}

func (m *Memory) unlinkTagsLocked(key string, tags []string) {
	for _, tag := range tags {
		if keys, ok := m.tags[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(m.tags, tag)
			}
		}
	}
}

func (m *Memory) janitor(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.cleanup()
		}
	}
}

func (m *Memory) cleanup() {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		if !now.Before(e.expiresAt) {
			m.removeLocked(key, e)
		}
	}
}

var _ Cache = (*Memory)(nil)
