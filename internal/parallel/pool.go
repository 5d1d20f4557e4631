// Package parallel runs command recording jobs on a fixed set of goroutines.
package parallel

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("parallel: pool is closed")

// Job is one unit of recording work.
type Job func() error

// Pool is a pool of goroutines for parallel command recording.
//
// Each worker has its own queue and steals from the others when its queue
// is empty, so one slow command list does not leave idle workers behind.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	workers int
	queues  []chan func()

	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// New creates a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	queueSize := max(workers*4, 8)

	p := &Pool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), queueSize)
	}

	p.running.Store(true)
	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case fn := <-own:
			fn()
		default:
			if fn := p.steal(id); fn != nil {
				fn()
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case fn := <-own:
				fn()
			}
		}
	}
}

func (p *Pool) drain(queue chan func()) {
	for {
		select {
		case fn := <-queue:
			fn()
		default:
			return
		}
	}
}

// steal takes one queued item from another worker, or returns nil.
func (p *Pool) steal(self int) func() {
	for i := range p.workers {
		if i == self {
			continue
		}
		select {
		case fn := <-p.queues[i]:
			return fn
		default:
		}
	}
	return nil
}

// Run distributes jobs round-robin across workers and waits for all of them.
// The returned error joins every job error in job order. A panicking job is
// reported as an error instead of killing the worker.
func (p *Pool) Run(jobs []Job) error {
	if len(jobs) == 0 {
		return nil
	}
	if !p.running.Load() {
		return ErrClosed
	}

	errs := make([]error, len(jobs))
	var pending sync.WaitGroup
	pending.Add(len(jobs))

	for i, job := range jobs {
		wrapped := func() {
			defer pending.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = &PanicError{Job: i, Value: r}
				}
			}()
			errs[i] = job()
		}

		select {
		case p.queues[i%p.workers] <- wrapped:
		case <-p.done:
			errs[i] = ErrClosed
			pending.Done()
		}
	}

	pending.Wait()
	return errors.Join(errs...)
}

// Close stops accepting work, finishes everything queued and stops the
// workers. Close is safe to call multiple times.
func (p *Pool) Close() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	close(p.done)
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *Pool) Workers() int { return p.workers }

// IsRunning reports whether the pool still accepts work.
func (p *Pool) IsRunning() bool { return p.running.Load() }
