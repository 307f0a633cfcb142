// Package activity keeps a bounded in-memory log of what the dispatcher did
// and serves it over HTTP.
package activity

import (
	"slices"
	"strings"
	"sync"
)

const (
	defaultMaxItems = 500
	maxListLimit    = 200
)

// Reader is the read API the HTTP routes need.
type Reader interface {
	List(outcome Outcome, limit int) []Record
	Get(id string) (*Record, bool)
	LastCycle() (CycleInfo, bool)
}

type Store struct {
	mu        sync.RWMutex
	items     map[string]Record
	maxItems  int
	lastCycle *CycleInfo
}

func NewStore(maxItems int) *Store {
	if maxItems <= 0 {
		maxItems = defaultMaxItems
	}
	return &Store{
		items:    make(map[string]Record),
		maxItems: maxItems,
	}
}

func (s *Store) Upsert(rec Record) {
	if s == nil {
		return
	}
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return
	}
	rec.ID = id
	rec.Outcome, _ = ParseOutcome(string(rec.Outcome))

	s.mu.Lock()
	s.items[id] = rec
	s.pruneLocked()
	s.mu.Unlock()
}

// Update applies fn to the record with the given id and reports whether
// the record was still held.
func (s *Store) Update(id string, fn func(*Record)) bool {
	if s == nil || fn == nil {
		return false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.items[id]
	if !ok {
		return false
	}
	fn(&rec)
	rec.ID = id
	rec.Outcome, _ = ParseOutcome(string(rec.Outcome))
	s.items[id] = rec
	return true
}

func (s *Store) Get(id string) (*Record, bool) {
	if s == nil {
		return nil, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	s.mu.RLock()
	rec, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	cp := rec
	return &cp, true
}

// List returns records newest first, optionally filtered by outcome.
func (s *Store) List(outcome Outcome, limit int) []Record {
	if s == nil {
		return nil
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)
	want, _ := ParseOutcome(string(outcome))

	s.mu.RLock()
	out := make([]Record, 0, len(s.items))
	for _, rec := range s.items {
		if want != "" && rec.Outcome != want {
			continue
		}
		out = append(out, rec)
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *Store) SetLastCycle(info CycleInfo) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.lastCycle = &info
	s.mu.Unlock()
}

func (s *Store) LastCycle() (CycleInfo, bool) {
	if s == nil {
		return CycleInfo{}, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastCycle == nil {
		return CycleInfo{}, false
	}
	return *s.lastCycle, true
}

// pruneLocked drops the oldest records beyond maxItems.
func (s *Store) pruneLocked() {
	for len(s.items) > s.maxItems {
		var oldest *Record
		for id := range s.items {
			rec := s.items[id]
			if oldest == nil || newer(*oldest, rec) {
				oldest = &rec
			}
		}
		delete(s.items, oldest.ID)
	}
}

// newer orders by creation time, then id, so ties are stable.
func newer(a, b Record) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func sortNewestFirst(items []Record) {
	slices.SortFunc(items, func(a, b Record) int {
		switch {
		case newer(a, b):
			return -1
		case newer(b, a):
			return 1
		default:
			return 0
		}
	})
}
