package core

import (
	"runtime"
	"sync/atomic"
)

// Task is a unit of work submitted to an Executor.
type Task func()

// Executor is a fixed pool of worker goroutines, each draining its own
// task queue and stealing from its siblings when idle, grounded on the
// teacher's work-stealing
// core/pools/worker_pool.go. It is used to run the Dispatch step of a
// connection (the middleware chain plus route handler) and OpcodeServer
// message handlers off the goroutine that is blocked reading a socket —
// see DESIGN.md's "Reactor mapping" note for why connection I/O itself is
// not routed through the Executor.
type Executor struct {
	numWorkers int
	queues     []chan Task
	closed     atomic.Bool
	stopCh     chan struct{}

	submitted atomic.Uint64
	completed atomic.Uint64
}

// NewExecutor creates an Executor with numWorkers workers. A numWorkers
// value <= 0 defaults to the detected hardware parallelism, with a floor
// of 1, matching spec.md §4.A.
func NewExecutor(numWorkers int) *Executor {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers < 1 {
		numWorkers = 1
	}

	e := &Executor{
		numWorkers: numWorkers,
		queues:     make([]chan Task, numWorkers),
		stopCh:     make(chan struct{}),
	}
	for i := range e.queues {
		e.queues[i] = make(chan Task, 256)
	}
	for i := 0; i < numWorkers; i++ {
		go e.runWorker(i)
	}
	return e
}

// Submit enqueues task for any worker; ordering across submitters is not
// guaranteed. Operations submitted after Stop are silently dropped,
// matching spec.md §4.A. If the chosen worker's queue and its neighbor are
// both full, the task runs inline on the submitting goroutine rather than
// blocking the caller.
func (e *Executor) Submit(task Task) {
	if e.closed.Load() {
		return
	}
	idx := int(e.submitted.Add(1)) % e.numWorkers

	select {
	case e.queues[idx] <- task:
		return
	default:
	}

	next := (idx + 1) % e.numWorkers
	select {
	case e.queues[next] <- task:
		return
	default:
	}

	task()
	e.completed.Add(1)
}

// runWorker drains this worker's queue, stealing from siblings when idle,
// until Stop closes stopCh.
func (e *Executor) runWorker(id int) {
	own := e.queues[id]
	for {
		select {
		case task, ok := <-own:
			if !ok {
				return
			}
			task()
			e.completed.Add(1)
		case <-e.stopCh:
			e.drain(own)
			return
		default:
			if task := e.steal(id); task != nil {
				task()
				e.completed.Add(1)
				continue
			}
			select {
			case task, ok := <-own:
				if !ok {
					return
				}
				task()
				e.completed.Add(1)
			case <-e.stopCh:
				e.drain(own)
				return
			}
		}
	}
}

func (e *Executor) drain(own chan Task) {
	for {
		select {
		case task, ok := <-own:
			if !ok {
				return
			}
			task()
			e.completed.Add(1)
		default:
			return
		}
	}
}

func (e *Executor) steal(id int) Task {
	for i := 1; i < e.numWorkers; i++ {
		victim := (id + i) % e.numWorkers
		select {
		case task := <-e.queues[victim]:
			return task
		default:
		}
	}
	return nil
}

// Stop signals every worker to run the tasks left in its own queue and
// exit. It returns at once and does not wait for the workers to finish.
// A stopped Executor is not restarted; a new one comes from NewExecutor.
func (e *Executor) Stop() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	close(e.stopCh)
}

// Stats reports submission/completion counters for observability.
type Stats struct {
	NumWorkers int
	Submitted  uint64
	Completed  uint64
}

// Stats returns a snapshot of the executor's counters.
func (e *Executor) Stats() Stats {
	return Stats{
		NumWorkers: e.numWorkers,
		Submitted:  e.submitted.Load(),
		Completed:  e.completed.Load(),
	}
}
