package asynctask

import (
	"sync"
	"testing"
)

func TestTaskStateFinished(t *testing.T) {
	for _, tc := range []struct {
		state TaskState
		want  bool
	}{
		{Pending, false},
		{Locked, false},
		{Unwrapped, false},
		{Completed, true},
		{Canceled, true},
	} {
		if got := tc.state.Finished(); got != tc.want {
			t.Errorf("%v.Finished() = %v, want %v", tc.state, got, tc.want)
		}
	}
}

func TestTaskStateString(t *testing.T) {
	for _, tc := range []struct {
		state TaskState
		want  string
	}{
		{Pending, "Pending"},
		{Locked, "Locked"},
		{Unwrapped, "Unwrapped"},
		{Completed, "Completed"},
		{Canceled, "Canceled"},
		{TaskState(99), "Unknown"},
	} {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestStateCellTransitions(t *testing.T) {
	var s stateCell
	if got := s.Load(); got != Pending {
		t.Fatalf("initial state = %v, want Pending", got)
	}
	if !s.TryTransition(Pending, Locked) {
		t.Fatal("Pending → Locked should succeed")
	}
	if s.TryTransition(Pending, Locked) {
		t.Fatal("second Pending → Locked should fail")
	}
	s.Store(Completed)
	if !s.Finished() {
		t.Fatal("Completed should be finished")
	}
}

func TestStateCellSettleRace(t *testing.T) {
	// Exactly one CAS wins regardless of interleaving.
	const attempts = 100
	for range attempts {
		var s stateCell
		var wg sync.WaitGroup
		wins := make([]bool, 8)
		for i := range wins {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				wins[i] = s.TryTransition(Pending, Locked)
			}(i)
		}
		wg.Wait()
		var n int
		for _, w := range wins {
			if w {
				n++
			}
		}
		if n != 1 {
			t.Fatalf("winners = %d, want 1", n)
		}
	}
}
