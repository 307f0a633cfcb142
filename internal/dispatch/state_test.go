package dispatch

import (
	"fmt"
	"testing"
)

func TestSeenSetEvictsOldestFirst(t *testing.T) {
	t.Parallel()

	s := NewSeenSet(3)
	for _, id := range []string{"a", "b", "c"} {
		if !s.Add(id) {
			t.Fatalf("Add(%q) should be new", id)
		}
	}
	if s.Add("b") {
		t.Fatalf("Add(b) twice should report false")
	}
	s.Add("d")
	if s.Has("a") {
		t.Fatalf("oldest id should have been evicted")
	}
	for _, id := range []string{"b", "c", "d"} {
		if !s.Has(id) {
			t.Fatalf("expected %q to be kept", id)
		}
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
}

func TestSeenSetNeverExceedsBound(t *testing.T) {
	t.Parallel()

	s := NewSeenSet(0)
	if s.Cap() != DefaultSeenCapacity {
		t.Fatalf("Cap() = %d, want %d", s.Cap(), DefaultSeenCapacity)
	}
	for cycle := 0; cycle < 20; cycle++ {
		for i := 0; i < 100; i++ {
			s.Add(fmt.Sprintf("%d.%06d", cycle, i))
			if s.Len() > DefaultSeenCapacity {
				t.Fatalf("Len() = %d exceeds bound", s.Len())
			}
		}
	}
	if s.Len() != DefaultSeenCapacity {
		t.Fatalf("Len() = %d, want %d", s.Len(), DefaultSeenCapacity)
	}
	if s.Has("0.000000") || !s.Has("19.000099") {
		t.Fatalf("expected oldest evicted and newest kept")
	}
	if !s.Has("15.000000") || s.Has("14.000099") {
		t.Fatalf("eviction boundary is wrong")
	}
	if s.Add("  ") {
		t.Fatalf("blank ids must be ignored")
	}
}

func TestSeenSetForgetsEvictedTimestamps(t *testing.T) {
	t.Parallel()

	s := NewSeenSet(2)
	s.Add("1739660002.000001")
	s.Add("1739660001.000001")
	if !s.Horizon().IsZero() || s.Forgotten("1739660000.000001") {
		t.Fatalf("nothing evicted yet, horizon = %v", s.Horizon())
	}
	s.Add("1739660003.000001")
	if s.Has("1739660001.000001") || !s.Has("1739660002.000001") {
		t.Fatalf("expected the oldest timestamp to be evicted")
	}
	if !s.Forgotten("1739660001.000001") || !s.Forgotten("1739660000.500000") {
		t.Fatalf("ids at or before the horizon should be forgotten")
	}
	if s.Forgotten("1739660002.000001") || s.Forgotten("1739660004.000001") {
		t.Fatalf("held or newer ids must not be forgotten")
	}
	if s.Forgotten("not-a-ts") {
		t.Fatalf("non-timestamp ids are never forgotten")
	}
}
