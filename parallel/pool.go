// Package parallel dispatches data-parallel passes over index ranges on a
// persistent worker pool. Each call blocks until every batch has finished,
// so consecutive calls form full barriers.
package parallel

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// Batch sizes used to size dispatches. They are tuning constants only.
const (
	ParticleThreads = 128 // particle-indexed passes
	VolumeThreads   = 8   // per axis, voxel-indexed passes
)

// parallelThreshold is the minimum group count worth handing to workers.
// Below this, running inline is faster than the channel round trips.
const parallelThreshold = 2

// ErrPanic is returned when a batch function panics.
var ErrPanic = errors.New("parallel batch panicked")

// Groups returns ceil(n/threads), the number of batches covering n items.
func Groups(n, threads int) int {
	if n <= 0 {
		return 0
	}
	if threads < 1 {
		threads = 1
	}
	return (n + threads - 1) / threads
}

// pass tracks one dispatch: outstanding batches and the first failure.
type pass struct {
	wg   sync.WaitGroup
	once sync.Once
	err  error
}

func (ps *pass) fail(err error) {
	ps.once.Do(func() { ps.err = err })
}

// workItem is a single group handed to a worker.
type workItem struct {
	group int
	fn    func(group int)
	pass  *pass
}

// Pool is a fixed set of worker goroutines. A nil *Pool is valid and runs
// everything on the calling goroutine. Dispatch methods must not be called
// concurrently on the same pool.
type Pool struct {
	numWorkers int

	workChan chan workItem  // sends groups to workers
	stopChan chan struct{}  // signals workers to exit
	wg       sync.WaitGroup // tracks active workers
	running  bool
}

// NewPool starts a pool with the given number of workers.
// workers <= 0 uses GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := &Pool{numWorkers: workers}
	p.start()
	return p
}

// Workers returns the worker count (1 for a nil pool).
func (p *Pool) Workers() int {
	if p == nil {
		return 1
	}
	return p.numWorkers
}

func (p *Pool) start() {
	if p.running {
		return
	}

	p.workChan = make(chan workItem, p.numWorkers*4)
	p.stopChan = make(chan struct{})
	p.running = true

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker runs in a goroutine, processing groups until stopped.
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case item := <-p.workChan:
			runGroup(item)
		}
	}
}

func runGroup(item workItem) {
	defer item.pass.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			item.pass.fail(fmt.Errorf("group %d: %v: %w", item.group, r, ErrPanic))
		}
	}()
	item.fn(item.group)
}

// Run calls fn once for every group index in [0, groups) and waits for all
// of them. The first panic is recovered and returned as an error wrapping
// ErrPanic; remaining groups still run to completion.
func (p *Pool) Run(groups int, fn func(group int)) error {
	if groups <= 0 {
		return nil
	}

	ps := &pass{}
	ps.wg.Add(groups)

	if p == nil || !p.running || groups < parallelThreshold || p.numWorkers == 1 {
		for g := 0; g < groups; g++ {
			runGroup(workItem{group: g, fn: fn, pass: ps})
		}
		return ps.err
	}

	for g := 0; g < groups; g++ {
		p.workChan <- workItem{group: g, fn: fn, pass: ps}
	}
	ps.wg.Wait()
	return ps.err
}

// For splits [0, n) into batches of threads items and calls fn(start, end)
// for each batch. It returns once every batch has completed.
func (p *Pool) For(n, threads int, fn func(start, end int)) error {
	if threads < 1 {
		threads = 1
	}
	return p.Run(Groups(n, threads), func(g int) {
		start := g * threads
		end := start + threads
		if end > n {
			end = n
		}
		fn(start, end)
	})
}

// Close stops all workers. It is safe to call more than once.
func (p *Pool) Close() {
	if p == nil || !p.running {
		return
	}

	close(p.stopChan)
	p.wg.Wait()
	p.running = false
}
