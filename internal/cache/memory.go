package cache

import (
	"context"
	"path"
	"sync"
	"time"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process TTL cache. Entries expire lazily on read and
// are swept on a fixed interval by a background goroutine. Last writer
// wins on concurrent Set of the same key; entries are idempotently
// recomputable so that is safe.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	stop       chan struct{}
	stopOnce   sync.Once

	// OnEvict is invoked (without the lock held) for every expired
	// entry removed by a read or a sweep. Optional.
	OnEvict func()
}

// NewMemory starts the cache and its cleanup loop. Call Stop on
// shutdown.
func NewMemory(defaultTTL, cleanupInterval time.Duration) *Memory {
	m := &Memory{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		stop:       make(chan struct{}),
	}
	go m.cleanupLoop(cleanupInterval)
	return m
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if time.Now().After(e.expiresAt) {
		m.mu.Lock()
		// Re-check: a racing Set may have refreshed the entry.
		if cur, ok := m.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(m.entries, key)
			m.mu.Unlock()
			if m.OnEvict != nil {
				m.OnEvict()
			}
			return nil, false, nil
		}
		m.mu.Unlock()
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	m.mu.Lock()
	m.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeletePattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		ok, err := path.Match(pattern, key)
		if err != nil {
			return err
		}
		if ok {
			delete(m.entries, key)
		}
	}
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	m.entries = make(map[string]entry)
	m.mu.Unlock()
	return nil
}

// Len reports live (unexpired) entries; used by tests and the sweep.
func (m *Memory) Len() int {
	now := time.Now()
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, e := range m.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// Stop terminates the cleanup loop. Safe to call more than once.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Memory) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.cleanup()
		case <-m.stop:
			return
		}
	}
}

func (m *Memory) cleanup() {
	now := time.Now()
	evicted := 0
	m.mu.Lock()
	for key, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, key)
			evicted++
		}
	}
	m.mu.Unlock()
	if m.OnEvict != nil {
		for i := 0; i < evicted; i++ {
			m.OnEvict()
		}
	}
}
