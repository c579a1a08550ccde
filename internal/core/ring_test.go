package core

import (
	"sync"
	"testing"
)

func TestRingAppendAndSnapshot(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 3; i++ {
		r.Append(i)
	}

	got := r.Snapshot(0)
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("snapshot length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("snapshot[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 5; i++ {
		r.Append(i)
	}

	got := r.Snapshot(0)
	want := []int{3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("snapshot[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if r.Len() != 3 {
		t.Errorf("len = %d, want 3", r.Len())
	}
}

func TestRingSnapshotLimit(t *testing.T) {
	r := NewRing[int](10)
	for i := 1; i <= 6; i++ {
		r.Append(i)
	}

	got := r.Snapshot(2)
	if len(got) != 2 || got[0] != 5 || got[1] != 6 {
		t.Errorf("limited snapshot = %v, want [5 6]", got)
	}
}

func TestRingConcurrentAppend(t *testing.T) {
	r := NewRing[int](100)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				r.Append(base*50 + j)
			}
		}(i)
	}
	wg.Wait()

	if r.Len() != 100 {
		t.Errorf("len = %d, want 100", r.Len())
	}
}
