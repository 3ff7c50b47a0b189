package cache

import "sync"

// DefaultCapacity is the number of translations kept when no capacity is given.
const DefaultCapacity = 100

// entry holds both halves stored under one key. Either half may be empty.
type entry struct {
	source      string
	translation string
	analysis    string
}

// Store is a bounded, FIFO-evicting translation/analysis store.
//
// Capacity is governed by translation insertions only. Every insertion
// pushes one slot onto the admission queue, even when the same text was
// inserted before; each slot counts against capacity independently, and
// evicting the older slot removes the key's entry.
//
// All methods are safe for concurrent use. An eviction and the insertion
// that caused it are applied under a single lock.
type Store struct {
	mu       sync.RWMutex
	queue    ring
	entries  map[string]*entry
	capacity int
	metrics  Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewStore creates a store holding at most capacity translations.
// A capacity below 1 is treated as 1.
func NewStore(capacity int, opts ...Option) *Store {
	if capacity < 1 {
		capacity = 1
	}
	s := &Store{
		queue:    newRing(capacity),
		entries:  make(map[string]*entry),
		capacity: capacity,
		metrics:  NoopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DeriveKey returns DeriveKey(text).
func (s *Store) DeriveKey(text string) string {
	return DeriveKey(text)
}

// PutTranslation stores translated as the translation of source, evicting
// the oldest translation first if the store is full.
func (s *Store) PutTranslation(source, translated string) string {
	key := DeriveKey(source)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.len() >= s.capacity {
		s.evictOldest()
	}
	s.queue.push(key)

	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.source = source
	e.translation = translated

	s.metrics.Size(s.queue.len())
	return key
}

// PutAnalysis stores document under key. It never evicts and never
// consumes capacity. A key without a translation is accepted.
func (s *Store) PutAnalysis(key, document string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &entry{}
		s.entries[key] = e
	}
	e.analysis = document
	return key
}

// AttachAnalysis stores document under key only while key still holds
// source text from PutTranslation. It reports whether the document was
// stored. Unlike PutAnalysis it never creates an entry, so a document for
// a key evicted in the meantime is dropped.
func (s *Store) AttachAnalysis(key, document string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.source == "" {
		return false
	}
	e.analysis = document
	return true
}

// HasTranslation reports whether a non-empty translation is stored for key.
func (s *Store) HasTranslation(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ok := s.translationLocked(key) != ""
	s.record(KindTranslation, ok)
	return ok
}

// HasAnalysis reports whether a non-empty analysis is stored for key.
func (s *Store) HasAnalysis(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ok := s.analysisLocked(key) != ""
	s.record(KindAnalysis, ok)
	return ok
}

// Translation returns the translation stored for key, or "".
func (s *Store) Translation(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.translationLocked(key)
}

// OriginalText returns the source text stored for key, or "".
func (s *Store) OriginalText(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return ""
	}
	return e.source
}

// Analysis returns the analysis document stored for key, or "".
func (s *Store) Analysis(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analysisLocked(key)
}

// Invalidate clears both halves stored under key. The key's admission
// slot, if any, stays in the queue until it is evicted.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Len returns the number of occupied admission slots.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queue.len()
}

// Capacity returns the maximum number of admission slots.
func (s *Store) Capacity() int {
	return s.capacity
}

// Snapshot returns a consistent copy of the store contents.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Capacity: s.capacity,
		Queue:    s.queue.items(),
		Entries:  make([]SnapshotEntry, 0, len(s.entries)),
	}
	for key, e := range s.entries {
		snap.Entries = append(snap.Entries, SnapshotEntry{
			Key:         key,
			Source:      e.source,
			Translation: e.translation,
			Analysis:    e.analysis,
		})
	}
	return snap
}

// evictOldest pops the front of the queue and drops its entry.
// Must be called with the write lock held.
func (s *Store) evictOldest() {
	key, ok := s.queue.pop()
	if !ok {
		return
	}
	delete(s.entries, key)
	s.metrics.Evict()
}

func (s *Store) translationLocked(key string) string {
	e, ok := s.entries[key]
	if !ok {
		return ""
	}
	return e.translation
}

func (s *Store) analysisLocked(key string) string {
	e, ok := s.entries[key]
	if !ok {
		return ""
	}
	return e.analysis
}

func (s *Store) record(kind Kind, hit bool) {
	if hit {
		s.metrics.Hit(kind)
		return
	}
	s.metrics.Miss(kind)
}

var _ Cache = (*Store)(nil)
