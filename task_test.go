package asynctask

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestSpawnRoundTrip(t *testing.T) {
	task := Spawn(Inline{}, func() (int, error) {
		return 42, nil
	})
	task.Wait()
	require.True(t, task.Ready())
	require.Equal(t, Completed, task.State())
	v, err := task.Get()
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestSpawnOnPool(t *testing.T) {
	pool, err := NewWorkerPool(WithWorkers(2))
	require.NoError(t, err)
	defer pool.Close()

	task := Spawn(pool, func() (string, error) {
		return "hello", nil
	})
	v, err := task.Get()
	require.NoError(t, err)
	require.Equal(t, "hello", v)
}

func TestThenAddsTwo(t *testing.T) {
	task := Spawn(Inline{}, func() (int, error) {
		return 1, nil
	})
	sum := Then(Inline{}, task, func(v int) (int, error) {
		return v + 2, nil
	})
	v, err := sum.Get()
	require.NoError(t, err)
	require.Equal(t, 3, v)
}

func TestValueContinuationPropagatesFailure(t *testing.T) {
	task := Spawn(Inline{}, func() (int, error) {
		return 0, errBoom
	})
	var ran atomic.Bool
	cont := Then(Inline{}, task, func(v int) (int, error) {
		ran.Store(true)
		return v, nil
	})
	_, err := cont.Get()
	require.ErrorIs(t, err, errBoom)
	require.Equal(t, Canceled, cont.State())
	assert.False(t, ran.Load(), "value continuation must not run on a canceled parent")
}

func TestTaskContinuationRecovers(t *testing.T) {
	task := Spawn(Inline{}, func() (int, error) {
		return 0, errBoom
	})
	cont := ThenTask(Inline{}, task, func(parent Task[int]) (int, error) {
		if _, err := parent.Get(); err != nil {
			return 7, nil
		}
		return 0, nil
	})
	v, err := cont.Get()
	require.NoError(t, err)
	require.Equal(t, 7, v)
}

func TestPanicBecomesPanicError(t *testing.T) {
	task := Spawn(Inline{}, func() (int, error) {
		panic("kaboom")
	})
	_, err := task.Get()
	var pe PanicError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "kaboom", pe.Value)
	require.NotEmpty(t, pe.Stack)
	assert.Contains(t, pe.StackTrace(), "asynctask")
	// Matching is by type: any PanicError matches, including one holding a
	// non-comparable panic value.
	require.ErrorIs(t, err, PanicError{Value: []int{1, 2, 3}})
}

func TestPanicErrorUnwrapsErrorValue(t *testing.T) {
	task := Spawn(Inline{}, func() (int, error) {
		panic(errBoom)
	})
	_, err := task.Get()
	require.ErrorIs(t, err, errBoom)
}

func TestContinuationRegisteredAfterFinish(t *testing.T) {
	task := Spawn(Inline{}, func() (int, error) {
		return 10, nil
	})
	require.True(t, task.Ready())
	cont := Then(Inline{}, task, func(v int) (int, error) {
		return v * 2, nil
	})
	v, err := cont.Get()
	require.NoError(t, err)
	require.Equal(t, 20, v)
}

func TestSharedTaskRepeatedGet(t *testing.T) {
	shared := Spawn(Inline{}, func() (int, error) {
		return 5, nil
	}).Share()
	for range 3 {
		v, err := shared.Get()
		require.NoError(t, err)
		require.Equal(t, 5, v)
	}
	v, err := ThenShared(Inline{}, shared, func(v int) (int, error) {
		return v + 1, nil
	}).Get()
	require.NoError(t, err)
	require.Equal(t, 6, v)
}

func TestZeroValueHandles(t *testing.T) {
	var task Task[int]
	require.False(t, task.Ready())
	require.Equal(t, Pending, task.State())
	require.False(t, task.State().Finished(), "State must agree with Ready on a zero handle")
	task.Wait() // must not block
	_, err := task.Get()
	require.ErrorIs(t, err, ErrInvalidTask)

	var shared SharedTask[int]
	require.False(t, shared.Ready())
	require.Equal(t, Pending, shared.State())

	_, err = Then(Inline{}, task, func(int) (int, error) { return 0, nil }).Get()
	require.ErrorIs(t, err, ErrInvalidTask)
}

func TestContinuationChainOnPool(t *testing.T) {
	pool, err := NewWorkerPool(WithWorkers(4))
	require.NoError(t, err)
	defer pool.Close()

	task := Spawn(pool, func() (int, error) { return 1, nil })
	for range 10 {
		task = Then(pool, task, func(v int) (int, error) { return v + 1, nil })
	}
	v, err := task.Get()
	require.NoError(t, err)
	require.Equal(t, 11, v)
}

func TestExactlyOnceContinuationUnderRace(t *testing.T) {
	// Register continuations from many goroutines racing with the parent
	// finishing; every registered continuation must fire exactly once.
	const attempts = 100
	const conts = 8
	pool, err := NewWorkerPool(WithWorkers(4))
	require.NoError(t, err)
	defer pool.Close()

	for range attempts {
		src := NewCompletionSource[int]()
		parent := src.Task()

		var fired atomic.Int64
		var wg sync.WaitGroup
		tasks := make([]Task[int], conts)
		start := make(chan struct{})
		for i := range conts {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				<-start
				tasks[i] = Then(Inline{}, parent, func(v int) (int, error) {
					fired.Add(1)
					return v, nil
				})
			}(i)
		}
		go func() {
			<-start
			_ = src.Set(3)
		}()
		close(start)
		wg.Wait()
		for _, c := range tasks {
			v, err := c.Get()
			require.NoError(t, err)
			require.Equal(t, 3, v)
		}
		require.Equal(t, int64(conts), fired.Load())
	}
}

func TestHappensBefore(t *testing.T) {
	// Every write made before the terminal publication must be visible to
	// any goroutine that observes the terminal state.
	pool, err := NewWorkerPool(WithWorkers(4))
	require.NoError(t, err)
	defer pool.Close()

	for range 100 {
		var side int
		task := Spawn(pool, func() (int, error) {
			side = 99
			return 1, nil
		})
		_, err := task.Get()
		require.NoError(t, err)
		require.Equal(t, 99, side)
	}
}

func TestWaitFromManyGoroutines(t *testing.T) {
	pool, err := NewWorkerPool(WithWorkers(2))
	require.NoError(t, err)
	defer pool.Close()

	src := NewCompletionSource[int]()
	task := src.Task()
	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := task.Get()
			if err == nil {
				results[i] = v
			}
		}(i)
	}
	require.NoError(t, src.Set(17))
	wg.Wait()
	for i, v := range results {
		require.Equal(t, 17, v, "waiter %d", i)
	}
}
