package difftest

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
)

// Failure is one program that broke a check.
type Failure struct {
	Program int    // index of the generated program
	Variant int    // 0 for the program itself, n for its n-th mutation
	Check   string // "repeat", "checkpoint" or "disasm"
	Err     error
	Code    []byte
}

// Report collects failures from concurrent workers.
type Report struct {
	mu       sync.Mutex
	failures []Failure
	Checked  int64
}

// Add records a failure.
func (r *Report) Add(f Failure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
}

// Failures returns a copy of all failures, ordered by program and variant.
func (r *Report) Failures() []Failure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Failure, len(r.failures))
	copy(out, r.failures)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Program != out[j].Program {
			return out[i].Program < out[j].Program
		}
		return out[i].Variant < out[j].Variant
	})
	return out
}

// Len returns the number of failures.
func (r *Report) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures)
}

// Task is one unit of work: generate program Index and check it.
type Task struct {
	Index int
}

// WorkerPool runs tasks in parallel.
type WorkerPool struct {
	NumWorkers int
	checked    atomic.Int64
	failed     atomic.Int64
}

// NewWorkerPool creates a pool with the given number of workers.
func NewWorkerPool(numWorkers int) *WorkerPool {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &WorkerPool{NumWorkers: numWorkers}
}

// Stats returns the number of programs checked and failed so far.
func (wp *WorkerPool) Stats() (checked, failed int64) {
	return wp.checked.Load(), wp.failed.Load()
}

// RunTasks distributes tasks across workers and calls fn for each. fn
// returns the number of failures it found.
func (wp *WorkerPool) RunTasks(tasks []Task, fn func(Task) int) {
	ch := make(chan Task, len(tasks))
	for _, t := range tasks {
		ch <- t
	}
	close(ch)

	var wg sync.WaitGroup
	for i := 0; i < wp.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range ch {
				n := fn(task)
				wp.checked.Add(1)
				wp.failed.Add(int64(n))
			}
		}()
	}
	wg.Wait()
}
