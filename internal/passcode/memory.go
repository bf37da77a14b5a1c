// ABOUTME: Thread-safe, TTL-bounded, size-limited in-memory passcode store
// ABOUTME: Oldest entries are evicted first; a background sweep drops expired ones

package passcode

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	rec     Record
	stored  time.Time
	element *list.Element
}

// MemoryStore keeps records in process memory. Entries older than ttl are
// dropped by a background sweep; Close stops it. When full, expired entries
// go first, then the least recently issued live one.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	order   *list.List // keys in insertion order, oldest at front
	ttl     time.Duration
	maxSize int
	done    chan struct{}
	closed  bool
}

// NewMemoryStore creates a store retaining records for ttl, holding at most maxSize.
func NewMemoryStore(ttl time.Duration, maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 10000
	}
	m := &MemoryStore{
		entries: make(map[string]*memoryEntry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Put stores rec under key, replacing any previous record.
func (m *MemoryStore) Put(_ context.Context, key string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		e.rec = rec
		e.stored = time.Now()
		m.order.MoveToBack(e.element)
		return nil
	}

	if len(m.entries) >= m.maxSize {
		m.dropExpired(time.Now())
	}
	if len(m.entries) >= m.maxSize {
		m.evictOldest()
	}

	m.entries[key] = &memoryEntry{
		rec:     rec,
		stored:  time.Now(),
		element: m.order.PushBack(key),
	}
	return nil
}

// Get returns the record for key.
func (m *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return Record{}, ErrNoRecord
	}
	return e.rec, nil
}

// Delete removes the record for key, if any.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		m.order.Remove(e.element)
		delete(m.entries, key)
	}
	return nil
}

// Len returns the number of retained records.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// evictOldest must be called with mu held.
func (m *MemoryStore) evictOldest() {
	front := m.order.Front()
	if front == nil {
		return
	}
	key, _ := front.Value.(string)
	m.order.Remove(front)
	delete(m.entries, key)
}

func (m *MemoryStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.removeExpired(time.Now())
		case <-m.done:
			return
		}
	}
}

func (m *MemoryStore) removeExpired(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropExpired(now)
}

// dropExpired must be called with mu held.
func (m *MemoryStore) dropExpired(now time.Time) {
	for key, e := range m.entries {
		if now.Sub(e.stored) > m.ttl {
			m.order.Remove(e.element)
			delete(m.entries, key)
		}
	}
}

// Close stops the background sweep. It is safe to call multiple times.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		close(m.done)
		m.closed = true
	}
	return nil
}
