package asynctask

import (
	"sync/atomic"
)

// TaskState represents the lifecycle state of a task.
//
// State Machine:
//
//	Pending (0) → Completed (3)           [executor success]
//	Pending (0) → Canceled (4)            [executor error or panic]
//	Pending (0) → Unwrapped (2)           [callable returned a task]
//	Pending (0) → Locked (1)              [completion source claiming settle]
//	Locked (1) → Completed (3) | Canceled (4)
//	Unwrapped (2) → Completed (3) | Canceled (4)
//
// State Transition Rules:
//   - Use TryTransition (CAS) for Pending → Locked, which may race between
//     concurrent settlers
//   - Use Store for the terminal transition; exactly one goroutine owns it
//   - Completed and Canceled are sticky
type TaskState uint32

const (
	// Pending indicates the task has not finished yet.
	Pending TaskState = iota
	// Locked is a transient exclusion state used by externally-settled tasks
	// to serialize a one-shot settle against racing settlers.
	Locked
	// Unwrapped indicates the task is waiting on a child task whose outcome
	// will become its own.
	Unwrapped
	// Completed indicates the task finished and a result is available.
	Completed
	// Canceled indicates the task failed and an error is available.
	Canceled
)

// Finished reports whether s is terminal.
func (s TaskState) Finished() bool {
	return s == Completed || s == Canceled
}

// String returns a human-readable representation of the state.
func (s TaskState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Locked:
		return "Locked"
	case Unwrapped:
		return "Unwrapped"
	case Completed:
		return "Completed"
	case Canceled:
		return "Canceled"
	default:
		return "Unknown"
	}
}

// stateCell is the lock-free per-task state machine, padded so the hot
// atomic never shares a cache line with neighboring task fields.
type stateCell struct { // betteralign:ignore
	_ [64]byte      //nolint:unused
	v atomic.Uint32 // State value
	_ [60]byte      //nolint:unused
}

// Load returns the current state atomically.
func (s *stateCell) Load() TaskState {
	return TaskState(s.v.Load())
}

// Store atomically stores a new state. The terminal store publishes every
// write made by the executor before it; readers that observe a terminal
// state may read the result or error slot without further synchronization.
func (s *stateCell) Store(state TaskState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts to atomically transition from one state to another.
// Returns true if the transition was successful.
func (s *stateCell) TryTransition(from, to TaskState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

// Finished reports whether the task reached a terminal state, with the same
// visibility guarantee as Load.
func (s *stateCell) Finished() bool {
	return s.Load().Finished()
}
