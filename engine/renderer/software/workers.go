package software

import (
	"fmt"
	"sync"
)

// Rows calls fn once for every row in [0, height) and returns when all
// calls are done. Kernels only write the row they are given.
type Rows func(height uint32, fn func(y uint32))

func serialRows(height uint32, fn func(y uint32)) {
	for y := uint32(0); y < height; y++ {
		fn(y)
	}
}

type rowJob struct {
	from, to uint32
	fn       func(y uint32)
	done     *sync.WaitGroup
}

// WorkerPool spreads kernel rows over a fixed set of goroutines.
type WorkerPool struct {
	numWorkers int
	jobQueue   chan rowJob
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

var ErrNoWorkers = fmt.Errorf("attempting to create worker pool with less than 1 worker")
var ErrNegativeQueueSize = fmt.Errorf("attempting to create worker pool with a negative queue size")

func NewWorkerPool(numWorkers int, queueSize int) (*WorkerPool, error) {
	if numWorkers <= 0 {
		return nil, ErrNoWorkers
	}
	if queueSize < 0 {
		return nil, ErrNegativeQueueSize
	}
	wp := &WorkerPool{
		numWorkers: numWorkers,
		jobQueue:   make(chan rowJob, queueSize),
	}
	wp.start()
	return wp, nil
}

func (wp *WorkerPool) start() {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go func() {
			defer wp.wg.Done()
			for job := range wp.jobQueue {
				for y := job.from; y < job.to; y++ {
					job.fn(y)
				}
				job.done.Done()
			}
		}()
	}
}

// Workers is the number of goroutines serving the pool.
func (wp *WorkerPool) Workers() int {
	return wp.numWorkers
}

// Rows splits [0, height) into one band per worker. It must not be called
// after Shutdown.
func (wp *WorkerPool) Rows(height uint32, fn func(y uint32)) {
	if height == 0 {
		return
	}
	bands := uint32(wp.numWorkers)
	if bands > height {
		bands = height
	}
	step := (height + bands - 1) / bands
	var done sync.WaitGroup
	for from := uint32(0); from < height; from += step {
		to := from + step
		if to > height {
			to = height
		}
		done.Add(1)
		wp.jobQueue <- rowJob{from: from, to: to, fn: fn, done: &done}
	}
	done.Wait()
}

// Shutdown stops the workers once queued bands have run.
func (wp *WorkerPool) Shutdown() {
	wp.closeOnce.Do(func() {
		close(wp.jobQueue)
	})
	wp.wg.Wait()
}
