// Package asynctask provides a fork/join task runtime for Go: computations
// are expressed as first-class [Task] values that run on a [Scheduler], carry
// a result or an error on completion, and support continuation chaining,
// task-result unwrapping, and recursive parallel iteration.
//
// # Architecture
//
// The runtime is built around an internal task node: a lock-free atomic state
// cell ([TaskState]), a sealed-on-finish continuation list, a result/error
// slot pair, and the scheduler reference used when the node itself is
// scheduled as a continuation. Terminal transitions are published with a
// single atomic store; continuations registered before the transition are
// drained by the finishing goroutine, and continuations registered after it
// are scheduled by the registrant. Either way each continuation runs exactly
// once.
//
// Tasks come in three shapes: root tasks created by [Spawn] (and the
// unwrapping [SpawnFlat]), continuation tasks created by [Then], [ThenTask],
// [ThenFlat], and [ThenTaskFlat], and externally-settled tasks created by
// [NewCompletionSource]. [Unwrap] collapses a Task[Task[T]] into a Task[T]
// that inherits the inner task's outcome.
//
// # Schedulers
//
// The core consumes a minimal [Scheduler] contract; [Inline] runs submitted
// work synchronously on the caller and is used internally for unwrap
// forwarding. [WorkerPool] is the reference [LocalScheduler]: a fixed set of
// workers with per-worker deques, work stealing, and a cooperative blocking
// wait that lets a worker execute queued tasks while it joins on another
// task. [ParallelFor], [ParallelReduce], and [ParallelInvoke] require that
// local-spawn cooperation to stay deadlock free when logical subtasks exceed
// worker count.
//
// # Thread Safety
//
// All exported operations are safe for concurrent use. [Task.Get] and
// [Task.Wait] may be called from any goroutine; [CompletionSource.Set] and
// [CompletionSource.SetError] may race freely (exactly one settles the task,
// the rest report [AlreadySetError]). Handler callbacks run on whichever scheduler the
// continuation captured at creation.
//
// # Usage
//
//	pool, err := asynctask.NewWorkerPool()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	t := asynctask.Spawn(pool, func() (int, error) {
//		return 42, nil
//	})
//	sum := asynctask.Then(pool, t, func(v int) (int, error) {
//		return v + 1, nil
//	})
//
//	v, err := sum.Get() // 43, nil
//
// # Error Types
//
// Failures become the task's outcome and are delivered on [Task.Get]:
//   - [PanicError]: wraps a panic recovered from a user callable
//   - [AlreadySetError]: second settle attempt on a [CompletionSource]
//   - [ScheduleError]: a scheduler refused a continuation while draining
//   - [ErrPoolClosed]: submission to a closed [WorkerPool]
//
// All error types implement the standard [error] interface and [errors.Is] /
// [errors.As] matching via Unwrap.
package asynctask
