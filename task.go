package asynctask

// Unit is the void sentinel threaded through the generic machinery when a
// task produces no value. [Run] converts the plain-error contract at the
// handle boundary.
type Unit struct{}

// Task is an exclusive handle on a unit of asynchronous work. The zero value
// is invalid: Ready reports false, State reports [Pending], Wait returns
// immediately, and Get returns [ErrInvalidTask].
//
// A Task is cheap to copy, but the intended ownership is single-consumer;
// use [Task.Share] to hand the result to multiple consumers.
type Task[T any] struct {
	core *taskCore[T]
}

// Ready reports whether the task reached a terminal state. Once true, it
// stays true and the outcome is stable.
func (t Task[T]) Ready() bool {
	return t.core != nil && t.core.ready()
}

// State returns the task's current [TaskState]. A zero-value handle reports
// [Pending], consistent with Ready reporting false.
func (t Task[T]) State() TaskState {
	if t.core == nil {
		return Pending
	}
	return t.core.state.Load()
}

// Wait blocks until the task reaches a terminal state. If called from a
// cooperative scheduler worker, the worker executes queued tasks while it
// waits instead of parking.
func (t Task[T]) Wait() {
	if t.core == nil {
		return
	}
	t.core.waitCore()
}

// Get waits for the task to finish and returns its outcome: the result on
// [Completed], the failure on [Canceled].
func (t Task[T]) Get() (T, error) {
	if t.core == nil {
		var zero T
		return zero, ErrInvalidTask
	}
	t.core.waitCore()
	if t.core.state.Load() == Canceled {
		var zero T
		return zero, t.core.err
	}
	return t.core.result, nil
}

// Share converts the exclusive handle into a freely copyable [SharedTask].
func (t Task[T]) Share() SharedTask[T] {
	return SharedTask[T]{core: t.core}
}

// SharedTask is a shared handle on a task. Copies observe the same task;
// Get returns the same value repeatedly.
type SharedTask[T any] struct {
	core *taskCore[T]
}

// Ready reports whether the task reached a terminal state.
func (t SharedTask[T]) Ready() bool {
	return t.core != nil && t.core.ready()
}

// State returns the task's current [TaskState]. A zero-value handle reports
// [Pending], consistent with Ready reporting false.
func (t SharedTask[T]) State() TaskState {
	if t.core == nil {
		return Pending
	}
	return t.core.state.Load()
}

// Wait blocks until the task reaches a terminal state.
func (t SharedTask[T]) Wait() {
	if t.core == nil {
		return
	}
	t.core.waitCore()
}

// Get waits for the task to finish and returns its outcome. Get may be called
// any number of times from any number of goroutines; every call observes the
// same outcome. It behaves exactly like [Task.Get]; the shared handle only
// marks multi-consumer ownership.
func (t SharedTask[T]) Get() (T, error) {
	return Task[T](t).Get()
}

// CompletionSource is the producer side of an externally-settled task. The
// task completes when exactly one of Set or SetError succeeds; every later
// attempt fails with [AlreadySetError].
type CompletionSource[T any] struct {
	core *taskCore[T]
}

// NewCompletionSource creates a pending externally-settled task and returns
// its producer handle.
func NewCompletionSource[T any]() CompletionSource[T] {
	return CompletionSource[T]{core: newCore[T](Inline{})}
}

// Task returns the consumer handle for this source.
func (s CompletionSource[T]) Task() Task[T] {
	return Task[T]{core: s.core}
}

// Set completes the task with v. Racing settlers are serialized through the
// [Locked] state: exactly one wins, the rest observe AlreadySetError.
func (s CompletionSource[T]) Set(v T) error {
	c := s.core
	if !c.state.TryTransition(Pending, Locked) {
		return &AlreadySetError{State: c.state.Load()}
	}
	c.result = v
	c.state.Store(Completed)
	c.runContinuations()
	return nil
}

// SetError cancels the task with err.
func (s CompletionSource[T]) SetError(err error) error {
	c := s.core
	if !c.state.TryTransition(Pending, Locked) {
		return &AlreadySetError{State: c.state.Load()}
	}
	c.err = err
	c.state.Store(Canceled)
	c.runContinuations()
	return nil
}

// TrySet reports whether it settled the task with v.
func (s CompletionSource[T]) TrySet(v T) bool {
	return s.Set(v) == nil
}

// TrySetError reports whether it canceled the task with err.
func (s CompletionSource[T]) TrySetError(err error) bool {
	return s.SetError(err) == nil
}

// Spawn submits fn to sched as a new root task. The returned value (or
// error) becomes the task's outcome; a panic in fn cancels the task with a
// [PanicError].
func Spawn[T any](sched Scheduler, fn func() (T, error)) Task[T] {
	c := newCore[T](sched)
	c.fn = rootStrategy(fn)
	c.scheduleJob()
	return Task[T]{core: c}
}

// SpawnFlat submits fn to sched as a new root task whose returned task is
// unwrapped: the outer task inherits the inner task's terminal outcome.
func SpawnFlat[T any](sched Scheduler, fn func() (Task[T], error)) Task[T] {
	c := newCore[T](sched)
	c.fn = rootFlatStrategy(fn)
	c.scheduleJob()
	return Task[T]{core: c}
}

// Run submits a no-result callable as a new root task.
func Run(sched Scheduler, fn func() error) Task[Unit] {
	return Spawn(sched, func() (Unit, error) {
		return Unit{}, fn()
	})
}

// canceledTask returns a task that is already canceled with err.
func canceledTask[T any](err error) Task[T] {
	c := newCore[T](Inline{})
	c.err = err
	c.state.Store(Canceled)
	return Task[T]{core: c}
}

// Then registers a value continuation on parent: fn receives the parent's
// result once it completes, and the returned task carries fn's outcome. If
// the parent is canceled, fn never runs and the continuation adopts the
// parent's failure.
func Then[P, T any](sched Scheduler, parent Task[P], fn func(P) (T, error)) Task[T] {
	if parent.core == nil {
		return canceledTask[T](ErrInvalidTask)
	}
	c := newCore[T](sched)
	c.fn = thenStrategy(parent.core, fn)
	parent.core.addContinuation(c)
	return Task[T]{core: c}
}

// ThenTask registers a task continuation on parent: fn receives the parent
// handle regardless of how the parent finished, which lets it inspect the
// failure and recover.
func ThenTask[P, T any](sched Scheduler, parent Task[P], fn func(Task[P]) (T, error)) Task[T] {
	if parent.core == nil {
		return canceledTask[T](ErrInvalidTask)
	}
	c := newCore[T](sched)
	c.fn = thenTaskStrategy(parent.core, fn)
	parent.core.addContinuation(c)
	return Task[T]{core: c}
}

// ThenFlat is [Then] with unwrapping: fn returns a task, and the
// continuation inherits that task's terminal outcome.
func ThenFlat[P, T any](sched Scheduler, parent Task[P], fn func(P) (Task[T], error)) Task[T] {
	if parent.core == nil {
		return canceledTask[T](ErrInvalidTask)
	}
	c := newCore[T](sched)
	c.fn = thenFlatStrategy(parent.core, fn)
	parent.core.addContinuation(c)
	return Task[T]{core: c}
}

// ThenTaskFlat is [ThenTask] with unwrapping.
func ThenTaskFlat[P, T any](sched Scheduler, parent Task[P], fn func(Task[P]) (Task[T], error)) Task[T] {
	if parent.core == nil {
		return canceledTask[T](ErrInvalidTask)
	}
	c := newCore[T](sched)
	c.fn = thenTaskFlatStrategy(parent.core, fn)
	parent.core.addContinuation(c)
	return Task[T]{core: c}
}

// ThenShared is [Then] for shared handles.
func ThenShared[P, T any](sched Scheduler, parent SharedTask[P], fn func(P) (T, error)) Task[T] {
	return Then(sched, Task[P](parent), fn)
}

// Unwrap collapses a task of tasks: the returned task reaches the same
// terminal outcome as the inner task (or the outer task's failure, if the
// outer task is canceled). The forwarding continuation runs inline.
func Unwrap[T any](t Task[Task[T]]) Task[T] {
	return ThenTaskFlat(Inline{}, t, func(p Task[Task[T]]) (Task[T], error) {
		return p.Get()
	})
}
