package asynctask

import (
	"runtime"

	"golang.org/x/exp/constraints"
)

// Range is a splittable half-open interval [Begin, End) for parallel
// iteration. Grain is the largest sub-range executed sequentially; a grain
// of zero picks one automatically from the range length and GOMAXPROCS.
type Range[T constraints.Integer] struct {
	Begin, End T
	Grain      T
}

// NewRange returns the range [begin, end) with automatic grain.
func NewRange[T constraints.Integer](begin, end T) Range[T] {
	return Range[T]{Begin: begin, End: end}
}

// WithGrain returns a copy of r with the given grain.
func (r Range[T]) WithGrain(grain T) Range[T] {
	r.Grain = grain
	return r
}

// Len returns the number of elements in the range.
func (r Range[T]) Len() T {
	if r.End < r.Begin {
		return 0
	}
	return r.End - r.Begin
}

// split halves the range. Callers must check splittable first.
func (r Range[T]) split() (Range[T], Range[T]) {
	mid := r.Begin + (r.End-r.Begin)/2
	left, right := r, r
	left.End = mid
	right.Begin = mid
	return left, right
}

func (r Range[T]) splittable() bool {
	return r.Len() > r.Grain
}

// resolveGrain fills in an automatic grain: enough splits to keep every
// worker busy several times over, never below one element.
func resolveGrain[T constraints.Integer](r Range[T]) Range[T] {
	if r.Grain > 0 {
		return r
	}
	pieces := T(8 * runtime.GOMAXPROCS(0))
	if pieces < 1 {
		// Narrow integer types can wrap on the conversion above.
		pieces = 1
	}
	grain := r.Len() / pieces
	if grain < 1 {
		grain = 1
	}
	r.Grain = grain
	return r
}

// ParallelFor invokes fn once per element of r, recursively splitting the
// range: one half is spawned onto the scheduler's local queue, the other is
// processed by the current goroutine, and the spawned half is joined before
// returning. On a [LocalScheduler] the join executes queued halves instead
// of parking, so the recursion cannot deadlock even when logical subtasks
// exceed worker count.
//
// A panic in fn cancels the affected sub-range's task; ParallelFor returns
// the first failure it observes after all sub-ranges have been joined.
func ParallelFor[T constraints.Integer](sched Scheduler, r Range[T], fn func(T)) error {
	return parallelSplit(sched, resolveGrain(r), func(rr Range[T]) {
		for i := rr.Begin; i < rr.End; i++ {
			fn(i)
		}
	})
}

func parallelSplit[T constraints.Integer](sched Scheduler, r Range[T], leaf func(Range[T])) error {
	if !r.splittable() {
		return capturePanic(func() { leaf(r) })
	}
	left, right := r.split()
	t := spawnLocal(sched, func() error {
		return parallelSplit(sched, right, leaf)
	})
	leftErr := parallelSplit(sched, left, leaf)
	_, rightErr := t.Get()
	if leftErr != nil {
		return leftErr
	}
	return rightErr
}

// capturePanic converts a panic in fn into a [PanicError].
func capturePanic(fn func()) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = newPanicError(v)
		}
	}()
	fn()
	return nil
}

// spawnLocal spawns fn preferring the scheduler's local queue.
func spawnLocal(sched Scheduler, fn func() error) Task[Unit] {
	return spawnLocalValue(sched, func() (Unit, error) {
		return Unit{}, fn()
	})
}

// localOnly adapts ScheduleLocal to the plain Scheduler contract so the
// task machinery dispatches through the local queue.
type localOnly struct {
	ls LocalScheduler
}

func (s localOnly) Schedule(fn func()) error {
	return s.ls.ScheduleLocal(fn)
}

// ParallelReduce folds the elements of r: leaf reduces a sequential
// sub-range starting from identity, combine merges two partial results.
// combine must be associative; sub-range order is unspecified.
func ParallelReduce[T constraints.Integer, R any](sched Scheduler, r Range[T], identity R, leaf func(Range[T], R) R, combine func(R, R) R) (R, error) {
	return parallelReduce(sched, resolveGrain(r), identity, leaf, combine)
}

func parallelReduce[T constraints.Integer, R any](sched Scheduler, r Range[T], identity R, leaf func(Range[T], R) R, combine func(R, R) R) (acc R, err error) {
	if !r.splittable() {
		err = capturePanic(func() {
			acc = leaf(r, identity)
		})
		return acc, err
	}
	left, right := r.split()
	t := spawnLocalValue(sched, func() (R, error) {
		return parallelReduce(sched, right, identity, leaf, combine)
	})
	leftAcc, leftErr := parallelReduce(sched, left, identity, leaf, combine)
	rightAcc, rightErr := t.Get()
	if leftErr != nil {
		return acc, leftErr
	}
	if rightErr != nil {
		return acc, rightErr
	}
	return combine(leftAcc, rightAcc), nil
}

// spawnLocalValue is spawnLocal for result-bearing callables.
func spawnLocalValue[R any](sched Scheduler, fn func() (R, error)) Task[R] {
	s := sched
	if ls, ok := sched.(LocalScheduler); ok {
		s = localOnly{ls}
	}
	c := newCore[R](s)
	c.fn = rootStrategy(fn)
	c.scheduleJob()
	return Task[R]{core: c}
}

// ParallelInvoke runs the given functions in parallel and returns after all
// have finished: all but the last are spawned locally, the last runs on the
// calling goroutine. The first failure (panic, wrapped as [PanicError]) is
// returned after every function has been joined.
func ParallelInvoke(sched Scheduler, fns ...func()) error {
	switch len(fns) {
	case 0:
		return nil
	case 1:
		return capturePanic(fns[0])
	}
	tasks := make([]Task[Unit], 0, len(fns)-1)
	for _, fn := range fns[:len(fns)-1] {
		fn := fn
		tasks = append(tasks, spawnLocal(sched, func() error {
			return capturePanic(fn)
		}))
	}
	err := capturePanic(fns[len(fns)-1])
	for _, t := range tasks {
		if _, terr := t.Get(); terr != nil && err == nil {
			err = terr
		}
	}
	return err
}
