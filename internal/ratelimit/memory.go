package ratelimit

import (
	"sync"
	"time"
)

type window struct {
	count int
	start time.Time
	end   time.Time
}

// MemoryStore keeps fixed-window counters in process memory. Entries
// reset at window boundary on access; a periodic sweep reclaims keys
// that stopped arriving.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*window

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMemoryStore creates a store sweeping expired entries every
// sweepInterval. Pass zero to disable the sweeper (tests).
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*window),
		stop:    make(chan struct{}),
	}
	if sweepInterval > 0 {
		go s.sweep(sweepInterval)
	}
	return s
}

func (s *MemoryStore) Incr(key string, windowSize time.Duration, now time.Time) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.entries[key]
	if !ok || !now.Before(w.end) {
		w = &window{count: 0, start: now, end: now.Add(windowSize)}
		s.entries[key] = w
	}
	w.count++
	return w.count, w.end
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for key, w := range s.entries {
				if !now.Before(w.end) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Close stops the sweeper.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Len returns the live entry count. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
