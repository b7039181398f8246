package asynctask

import (
	"sync"
)

// deque is a per-worker job queue: the owning worker pushes and pops at the
// back (LIFO, keeps split halves cache-warm), thieves steal from the front
// (FIFO, takes the largest remaining split). Guarded by a small mutex; the
// owner and thieves touch opposite ends so contention stays negligible.
type deque struct {
	mu   sync.Mutex
	jobs []func()
	head int
}

// pushBack appends a job at the owner's end.
func (d *deque) pushBack(job func()) {
	d.mu.Lock()
	d.jobs = append(d.jobs, job)
	d.mu.Unlock()
}

// popBack removes the most recently pushed job. Owner only.
func (d *deque) popBack() (func(), bool) {
	d.mu.Lock()
	if d.head >= len(d.jobs) {
		d.reset()
		d.mu.Unlock()
		return nil, false
	}
	i := len(d.jobs) - 1
	job := d.jobs[i]
	d.jobs[i] = nil
	d.jobs = d.jobs[:i]
	if d.head >= len(d.jobs) {
		d.reset()
	}
	d.mu.Unlock()
	return job, true
}

// popFront removes the oldest job. Thieves only.
func (d *deque) popFront() (func(), bool) {
	d.mu.Lock()
	if d.head >= len(d.jobs) {
		d.reset()
		d.mu.Unlock()
		return nil, false
	}
	job := d.jobs[d.head]
	d.jobs[d.head] = nil
	d.head++
	if d.head >= len(d.jobs) {
		d.reset()
	}
	d.mu.Unlock()
	return job, true
}

// reset reclaims the consumed prefix. Must be called with mu held.
func (d *deque) reset() {
	d.jobs = d.jobs[:0]
	d.head = 0
}

// size returns the number of queued jobs.
func (d *deque) size() int {
	d.mu.Lock()
	n := len(d.jobs) - d.head
	d.mu.Unlock()
	return n
}
