package asynctask

import (
	"sync/atomic"
)

// contEntry is a node in the continuation list.
type contEntry struct {
	job  jobNode
	next *contEntry
}

// sealedEntry marks a continuation list whose owner has begun flushing.
// No entry reachable from a live list ever aliases it.
var sealedEntry = new(contEntry)

// continuationList is a lock-free append-once-then-flush list of pending
// continuations.
//
// Ordering contract: if an adder observes the list not-yet-sealed and tryAdd
// succeeds, the flusher will run that continuation. If the adder observes
// sealed, the owner has already finished (the atomic load of the sealed head
// orders the owner's prior writes before the adder's subsequent reads) and
// the adder dispatches the continuation itself. A continuation is never both
// registered and dropped.
type continuationList struct {
	head atomic.Pointer[contEntry]
}

// tryAdd appends job to the list. Returns false iff the list has been
// sealed; the caller must then dispatch job itself.
func (l *continuationList) tryAdd(job jobNode) bool {
	e := &contEntry{job: job}
	for {
		h := l.head.Load()
		if h == sealedEntry {
			return false
		}
		e.next = h
		if l.head.CompareAndSwap(h, e) {
			return true
		}
	}
}

// flushAndLock seals the list and invokes fn on each registered
// continuation, exactly once per entry, in unspecified order. Subsequent
// tryAdd calls fail permanently.
func (l *continuationList) flushAndLock(fn func(jobNode)) {
	for e := l.head.Swap(sealedEntry); e != nil && e != sealedEntry; e = e.next {
		fn(e.job)
	}
}
