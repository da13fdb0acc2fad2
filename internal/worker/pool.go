package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// task is a job tagged with its submission order
type task struct {
	seq int
	job Job
}

type taskResult struct {
	seq    int
	result Result
}

// Pool runs jobs on a fixed number of workers. Wait returns results in
// submission order regardless of completion order.
type Pool struct {
	workers     int
	jobQueue    chan task
	results     chan taskResult
	submitted   int
	collected   map[int]Result
	collectDone chan struct{}
	wg          sync.WaitGroup
	ctx         context.Context
	cancelFunc  context.CancelFunc
	closeOnce   sync.Once
}

// NewPool creates a pool bound to ctx. Cancelling ctx stops the workers.
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:     workers,
		jobQueue:    make(chan task, workers*2),
		results:     make(chan taskResult, workers*2),
		collected:   make(map[int]Result),
		collectDone: make(chan struct{}),
		ctx:         ctx,
		cancelFunc:  cancel,
	}
}

// Start starts the workers and the result collector. It must be called
// before Wait.
func (p *Pool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}

	// Drain results while jobs are still being submitted so Submit never
	// waits on a full results channel
	go func() {
		defer close(p.collectDone)
		for r := range p.results {
			p.collected[r.seq] = r.result
		}
	}()
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := t.job.Execute(p.ctx)
			select {
			case p.results <- taskResult{seq: t.seq, result: result}:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit queues a job. It must not be called concurrently with itself or
// after Wait. Jobs submitted after shutdown are dropped.
func (p *Pool) Submit(job Job) {
	t := task{seq: p.submitted, job: job}
	p.submitted++
	select {
	case <-p.ctx.Done():
		return
	case p.jobQueue <- t:
	}
}

// Wait waits for all submitted jobs and returns one result per Submit call,
// in submission order. Slots of jobs that never ran (after cancellation) are nil.
func (p *Pool) Wait() []Result {
	close(p.jobQueue)
	p.wg.Wait()
	p.closeResults()
	<-p.collectDone

	ordered := make([]Result, p.submitted)
	for seq, r := range p.collected {
		ordered[seq] = r
	}

	return ordered
}

// Shutdown stops the pool immediately
func (p *Pool) Shutdown() {
	p.cancelFunc()
	p.wg.Wait()
	p.closeResults()
}

func (p *Pool) closeResults() {
	p.closeOnce.Do(func() {
		close(p.results)
	})
}
