// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package asynctask

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// WorkerPool is the reference [LocalScheduler]: a fixed set of worker
// goroutines, each owning a local deque, plus a shared overflow queue.
// Work submitted from a worker via ScheduleLocal lands on that worker's own
// deque, so a worker that blocks joining a task can execute the waited-for
// work itself; idle workers steal from their peers.
type WorkerPool struct {
	logger  *logiface.Logger[logiface.Event]
	workers []*worker

	globalMu sync.Mutex
	global   []func()

	wg     sync.WaitGroup
	closed atomic.Bool

	submitted atomic.Uint64
	executed  atomic.Uint64
	stolen    atomic.Uint64
}

type worker struct {
	pool *WorkerPool
	id   int
	dq   deque
	ev   *waitEvent
	idle atomic.Bool
}

// poolOptions holds configuration options for WorkerPool creation.
type poolOptions struct {
	workers int
	logger  *logiface.Logger[logiface.Event]
}

// PoolOption configures a WorkerPool instance.
type PoolOption interface {
	applyPool(*poolOptions) error
}

// poolOptionImpl implements PoolOption.
type poolOptionImpl struct {
	applyPoolFunc func(*poolOptions) error
}

func (p *poolOptionImpl) applyPool(opts *poolOptions) error {
	return p.applyPoolFunc(opts)
}

// WithWorkers sets the number of worker goroutines. Defaults to
// runtime.GOMAXPROCS(0).
func WithWorkers(n int) PoolOption {
	return &poolOptionImpl{func(opts *poolOptions) error {
		opts.workers = n
		return nil
	}}
}

// WithLogger attaches a structured logger to the pool. The pool logs pool
// start and close, worker start/stop, and panics escaping raw jobs;
// scheduling failures are not logged (they become the affected task's
// outcome). An absent logger costs nothing.
func WithLogger(logger *logiface.Logger[logiface.Event]) PoolOption {
	return &poolOptionImpl{func(opts *poolOptions) error {
		opts.logger = logger
		return nil
	}}
}

// resolvePoolOptions applies PoolOption instances to poolOptions.
func resolvePoolOptions(opts []PoolOption) (*poolOptions, error) {
	cfg := &poolOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyPool(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}
	return cfg, nil
}

// NewWorkerPool creates and starts a worker pool.
func NewWorkerPool(opts ...PoolOption) (*WorkerPool, error) {
	cfg, err := resolvePoolOptions(opts)
	if err != nil {
		return nil, err
	}

	p := &WorkerPool{
		logger:  cfg.logger,
		workers: make([]*worker, cfg.workers),
	}
	for i := range p.workers {
		w := &worker{pool: p, id: i, ev: newWaitEvent()}
		w.ev.init()
		p.workers[i] = w
	}
	p.wg.Add(len(p.workers))
	for _, w := range p.workers {
		go w.loop()
	}
	p.logger.Debug().Int("workers", len(p.workers)).Log("pool started")
	return p, nil
}

// Schedule implements [Scheduler]: the job is appended to the shared queue
// and an idle worker, if any, is woken.
func (p *WorkerPool) Schedule(fn func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	p.globalMu.Lock()
	p.global = append(p.global, fn)
	p.globalMu.Unlock()
	p.submitted.Add(1)
	p.wakeOne()
	return nil
}

// ScheduleLocal implements [LocalScheduler]: called from a pool worker, the
// job lands on that worker's own deque; otherwise it degrades to Schedule.
func (p *WorkerPool) ScheduleLocal(fn func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}
	if w := p.currentWorker(); w != nil {
		w.dq.pushBack(fn)
		p.submitted.Add(1)
		p.wakeOne()
		return nil
	}
	return p.Schedule(fn)
}

// Close stops the pool. Workers drain their queues, then exit; Close blocks
// until they have. Submissions after Close fail with [ErrPoolClosed];
// submissions racing with Close may be accepted and never run.
func (p *WorkerPool) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return ErrPoolClosed
	}
	for _, w := range p.workers {
		w.ev.signal(eventTaskAvailable)
	}
	p.wg.Wait()
	p.logger.Debug().Log("pool closed")
	return nil
}

// PoolStats is a snapshot of pool counters.
type PoolStats struct {
	Workers   int
	Submitted uint64
	Executed  uint64
	Stolen    uint64
}

// Stats returns a snapshot of the pool's counters.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		Workers:   len(p.workers),
		Submitted: p.submitted.Load(),
		Executed:  p.executed.Load(),
		Stolen:    p.stolen.Load(),
	}
}

// currentWorker returns the worker running on the calling goroutine, or nil.
func (p *WorkerPool) currentWorker() *worker {
	if h := currentWaitHandler(); h != nil {
		if w, ok := h.(*worker); ok && w.pool == p {
			return w
		}
	}
	return nil
}

// popGlobal removes the oldest job from the shared queue.
func (p *WorkerPool) popGlobal() (func(), bool) {
	p.globalMu.Lock()
	if len(p.global) == 0 {
		p.globalMu.Unlock()
		return nil, false
	}
	job := p.global[0]
	p.global[0] = nil
	p.global = p.global[1:]
	p.globalMu.Unlock()
	return job, true
}

// steal takes a job from the front of some other worker's deque.
func (p *WorkerPool) steal(thief *worker) (func(), bool) {
	n := len(p.workers)
	for i := 1; i < n; i++ {
		victim := p.workers[(thief.id+i)%n]
		if job, ok := victim.dq.popFront(); ok {
			p.stolen.Add(1)
			return job, true
		}
	}
	return nil, false
}

// wakeOne signals one idle worker that work is available. Spurious signals
// are harmless: the wait event latches the bit.
func (p *WorkerPool) wakeOne() {
	for _, w := range p.workers {
		if w.idle.Load() {
			w.ev.signal(eventTaskAvailable)
			return
		}
	}
}

func (w *worker) loop() {
	defer w.pool.wg.Done()
	id := getGoroutineID()
	registerWaitHandler(id, w)
	defer unregisterWaitHandler(id)
	w.pool.logger.Trace().Int("worker", w.id).Log("worker started")
	defer w.pool.logger.Trace().Int("worker", w.id).Log("worker stopped")

	for {
		if job, ok := w.nextJob(); ok {
			w.run(job)
			continue
		}
		if w.pool.closed.Load() {
			return
		}
		// Mark idle before the re-check so a producer that enqueues between
		// the check and the park is guaranteed to see the idle flag and
		// signal the event.
		w.idle.Store(true)
		if job, ok := w.nextJob(); ok {
			w.idle.Store(false)
			w.run(job)
			continue
		}
		if w.pool.closed.Load() {
			w.idle.Store(false)
			return
		}
		w.ev.wait()
		w.idle.Store(false)
	}
}

// nextJob finds runnable work: own deque first, then the shared queue, then
// a steal.
func (w *worker) nextJob() (func(), bool) {
	if job, ok := w.dq.popBack(); ok {
		return job, true
	}
	if job, ok := w.pool.popGlobal(); ok {
		return job, true
	}
	return w.pool.steal(w)
}

func (w *worker) run(job func()) {
	defer func() {
		if v := recover(); v != nil {
			// Task jobs recover their own panics; this guards raw callables
			// submitted straight to the pool, so one bad job cannot take a
			// worker down.
			w.pool.logger.Err().Int("worker", w.id).Err(newPanicError(v)).Log("job panicked")
		}
	}()
	w.pool.executed.Add(1)
	job()
}

// waitFor implements the worker's cooperative blocking wait: while the task
// is unfinished the worker executes queued jobs, and only parks when none
// are runnable. The waiter continuation signals the worker's own event, so
// the park ends on either new work or the join target finishing.
func (w *worker) waitFor(t waitable) {
	t.addWaiter(w.ev)
	for !t.ready() {
		if job, ok := w.nextJob(); ok {
			w.run(job)
			continue
		}
		// Park as idle, with the same re-check as loop, so that work
		// submitted elsewhere while this worker joins wakes it.
		w.idle.Store(true)
		if job, ok := w.nextJob(); ok {
			w.idle.Store(false)
			w.run(job)
			continue
		}
		w.ev.wait()
		w.idle.Store(false)
	}
}
