package asynctask

import (
	"runtime"
	"sync"
)

// Scheduler arranges for submitted work to be invoked on some goroutine.
// Schedule returns an error if the work cannot be accepted; the runtime
// converts such failures into the affected task's outcome.
type Scheduler interface {
	Schedule(fn func()) error
}

// LocalScheduler is a Scheduler that can additionally enqueue work into the
// current worker's local queue, so that a worker blocking on a join can
// execute the waited-for work itself. [ParallelFor] and friends require this
// to stay deadlock free.
type LocalScheduler interface {
	Scheduler
	ScheduleLocal(fn func()) error
}

// Inline is a trivial scheduler that runs submitted work synchronously on
// the caller. It is used internally for unwrap forwarding and is handy in
// tests.
type Inline struct{}

// Schedule implements [Scheduler].
func (Inline) Schedule(fn func()) error {
	fn()
	return nil
}

// waitHandler lets a cooperative scheduler take over blocking waits issued
// from its own workers.
type waitHandler interface {
	waitFor(w waitable)
}

// waitHandlers maps goroutine id → the wait handler registered by the
// scheduler worker running on that goroutine.
var waitHandlers sync.Map // map[uint64]waitHandler

func registerWaitHandler(id uint64, h waitHandler) {
	waitHandlers.Store(id, h)
}

func unregisterWaitHandler(id uint64) {
	waitHandlers.Delete(id)
}

// currentWaitHandler returns the wait handler for the calling goroutine, or
// nil if the caller is not a cooperative scheduler worker.
func currentWaitHandler() waitHandler {
	if h, ok := waitHandlers.Load(getGoroutineID()); ok {
		return h.(waitHandler)
	}
	return nil
}

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
