package asynctask

import (
	"errors"
	"fmt"
	"runtime"
)

var (
	// ErrPoolClosed is returned when work is submitted to a closed [WorkerPool].
	ErrPoolClosed = errors.New("asynctask: pool closed")

	// ErrInvalidTask is returned by [Task.Get] on a zero-value handle.
	ErrInvalidTask = errors.New("asynctask: invalid task handle")
)

// PanicError wraps a panic value recovered from a user callable. A task whose
// callable panics transitions to [Canceled] with a PanicError as its outcome.
type PanicError struct {
	Value any
	// Stack holds the program counters of the goroutine at the recover
	// site, which still includes the panicking frames. Use
	// [PanicError.StackTrace] to format it.
	Stack []uintptr
}

// newPanicError wraps a recovered panic value together with the stack at the
// recover site.
func newPanicError(v any) PanicError {
	// Capture up to 32 stack frames, skip 2 (this function and runtime.Callers).
	pcs := make([]uintptr, 32)
	n := runtime.Callers(2, pcs)
	return PanicError{Value: v, Stack: pcs[:n]}
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("asynctask: callable panicked: %v", e.Value)
}

// StackTrace returns a formatted stack trace of where the panic was
// recovered, one line per frame:
//
//	package.function (file:line)
//
// Returns an empty string if no stack was captured.
func (e PanicError) StackTrace() string {
	if len(e.Stack) == 0 {
		return ""
	}

	frames := runtime.CallersFrames(e.Stack)
	var result string
	for {
		frame, more := frames.Next()
		if frame.Function != "" {
			if result != "" {
				result += "\n"
			}
			result += fmt.Sprintf("%s (%s:%d)", frame.Function, frame.File, frame.Line)
		}
		if !more {
			break
		}
	}
	return result
}

// Unwrap returns the underlying error if the panic value is an error type.
// This enables use with [errors.Is] and [errors.As] for error matching
// through the cause chain. If the panic value is not an error (e.g., a
// string), returns nil.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Is matches any PanicError, regardless of contents: panic values are
// arbitrary user data and may not be comparable, so equality is by type
// only.
func (e PanicError) Is(target error) bool {
	var t PanicError
	return errors.As(target, &t)
}

// AlreadySetError is returned by [CompletionSource.Set] and
// [CompletionSource.SetError] when the task has already been settled, or when
// another settler holds the settle lock.
type AlreadySetError struct {
	// State is the task state observed by the failed settle attempt.
	State TaskState
}

// Error implements the error interface.
func (e *AlreadySetError) Error() string {
	return "asynctask: task already set (state " + e.State.String() + ")"
}

// Is matches any *AlreadySetError regardless of the observed state.
func (e *AlreadySetError) Is(target error) bool {
	var t *AlreadySetError
	return errors.As(target, &t)
}

// ScheduleError wraps a scheduler failure encountered while dispatching a
// continuation. The affected continuation is canceled with a ScheduleError
// as its outcome, and its own continuations are drained transitively.
type ScheduleError struct {
	Cause error
}

// Error implements the error interface.
func (e *ScheduleError) Error() string {
	if e.Cause == nil {
		return "asynctask: schedule failed"
	}
	return "asynctask: schedule failed: " + e.Cause.Error()
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *ScheduleError) Unwrap() error {
	return e.Cause
}
