package dispatch

import (
	"container/heap"
	"strings"
	"time"

	"github.com/quailyquaily/inboxdraft/internal/chat"
)

const DefaultSeenCapacity = 500

// SeenSet is a bounded set of message ids. When full, adding a new id
// evicts the id with the oldest timestamp; ids that are not timestamps go
// first, in insertion order.
//
// Evicted timestamps move the horizon forward. Unseen ids at or before the
// horizon are reported by Forgotten, so a history window larger than the
// capacity does not bring them back as new.
type SeenSet struct {
	capacity int
	entries  seenHeap
	index    map[string]*seenEntry
	seq      uint64
	horizon  time.Time
}

type seenEntry struct {
	id  string
	ts  time.Time
	seq uint64
	pos int
}

// seenHeap is a min-heap on (ts, seq).
type seenHeap []*seenEntry

func (h seenHeap) Len() int { return len(h) }

func (h seenHeap) Less(i, j int) bool {
	if !h[i].ts.Equal(h[j].ts) {
		return h[i].ts.Before(h[j].ts)
	}
	return h[i].seq < h[j].seq
}

func (h seenHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].pos = i
	h[j].pos = j
}

func (h *seenHeap) Push(x any) {
	e := x.(*seenEntry)
	e.pos = len(*h)
	*h = append(*h, e)
}

func (h *seenHeap) Pop() any {
	old := *h
	e := old[len(old)-1]
	old[len(old)-1] = nil
	*h = old[:len(old)-1]
	return e
}

func NewSeenSet(capacity int) *SeenSet {
	if capacity <= 0 {
		capacity = DefaultSeenCapacity
	}
	return &SeenSet{
		capacity: capacity,
		index:    make(map[string]*seenEntry, capacity),
	}
}

func (s *SeenSet) Has(id string) bool {
	_, ok := s.index[strings.TrimSpace(id)]
	return ok
}

// Forgotten reports whether id is not in the set but carries a timestamp at
// or before the eviction horizon, i.e. it was handled and later evicted.
func (s *SeenSet) Forgotten(id string) bool {
	id = strings.TrimSpace(id)
	if s.horizon.IsZero() || s.Has(id) {
		return false
	}
	ts := chat.ParseTS(id)
	return !ts.IsZero() && !ts.After(s.horizon)
}

// Horizon is the newest timestamp evicted so far.
func (s *SeenSet) Horizon() time.Time {
	return s.horizon
}

// Add records id and reports whether it was new.
func (s *SeenSet) Add(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	if _, ok := s.index[id]; ok {
		return false
	}
	for s.entries.Len() >= s.capacity {
		oldest := heap.Pop(&s.entries).(*seenEntry)
		delete(s.index, oldest.id)
		if oldest.ts.After(s.horizon) {
			s.horizon = oldest.ts
		}
	}
	s.seq++
	e := &seenEntry{id: id, ts: chat.ParseTS(id), seq: s.seq}
	heap.Push(&s.entries, e)
	s.index[id] = e
	return true
}

func (s *SeenSet) Len() int {
	return s.entries.Len()
}

func (s *SeenSet) Cap() int {
	return s.capacity
}

// State is everything the dispatcher carries between cycles. It lives in
// memory only and is owned by the poll loop.
type State struct {
	Seen *SeenSet
	// Watermark is when the previous cycle finished; the next history read
	// starts at Watermark minus the lookback.
	Watermark time.Time
	// Started bounds auto-drafting to messages posted after startup.
	Started time.Time
	Cycles  int
}

func NewState(seenCapacity int, now time.Time) *State {
	return &State{
		Seen:      NewSeenSet(seenCapacity),
		Watermark: now,
		Started:   now,
	}
}
