package run

import (
	"sort"
	"sync"
)

// Store is the in-memory run registry. All reads return copies, so pollers
// and streamers never observe a record mid-update.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{runs: make(map[string]*Run)}
}

// Put registers or replaces a run record.
func (s *Store) Put(r Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := r
	s.runs[r.ID] = &cp
}

// Get returns a copy of the run, if known.
func (s *Store) Get(id string) (Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return Run{}, false
	}
	return *r, true
}

// Update applies fn to the stored record under the lock.
func (s *Store) Update(id string, fn func(*Run)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return false
	}
	fn(r)
	return true
}

// List returns copies of every run, newest first.
func (s *Store) List() []Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}
