// MIT License

// Copyright (c) 2023 wetrycode

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package ripext

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
	queue "github.com/yireyun/go-queue"
)

var poolLog *logrus.Entry = GetLogger("pool")

// WorkerPool runs submitted tasks independently of the caller
type WorkerPool interface {
	// Submit schedules task without blocking the caller
	Submit(task func()) error
	// Stop finishes pending tasks and waits for them
	Stop()
}

// DefaultWorkerPool pending tasks are buffered in a lock free queue and
// a dispatcher hands them to a bounded goroutine pool
type DefaultWorkerPool struct {
	pending *queue.EsQueue
	// waiting submitted tasks that have not started, bounded by limit
	waiting atomic.Int64
	limit   int64
	workers *pool.Pool
	notify  chan struct{}
	done    chan struct{}
	// mu guards stopped so no task lands after the final drain
	mu      sync.RWMutex
	stopped bool
	once    sync.Once
	wg      sync.WaitGroup
}

// NewDefaultWorkerPool at most workers tasks run at once, at most pending wait
func NewDefaultWorkerPool(workers int, pending int) *DefaultWorkerPool {
	if workers <= 0 {
		workers = 1
	}
	if pending <= 0 {
		pending = 1
	}
	p := &DefaultWorkerPool{
		// EsQueue rounds its capacity up and keeps one slot free, limit is the real bound
		pending: queue.NewQueue(uint32(pending + 1)),
		limit:   int64(pending),
		workers: pool.New().WithMaxGoroutines(workers),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.scheduler()
	return p
}

func (p *DefaultWorkerPool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolStopped
	}
	if p.waiting.Add(1) > p.limit {
		p.waiting.Add(-1)
		return ErrPoolFull
	}
	ok, _ := p.pending.Put(task)
	if !ok {
		p.waiting.Add(-1)
		return ErrPoolFull
	}
	select {
	case p.notify <- struct{}{}:
	default:
	}
	return nil
}

// Pending tasks submitted but not started yet
func (p *DefaultWorkerPool) Pending() uint32 {
	return uint32(p.waiting.Load())
}

// scheduler moves buffered tasks to the goroutine pool
func (p *DefaultWorkerPool) scheduler() {
	defer p.wg.Done()
	for {
		p.drainPending()
		select {
		case <-p.notify:
		case <-p.done:
			p.drainPending()
			return
		}
	}
}

func (p *DefaultWorkerPool) drainPending() {
	for {
		val, ok, _ := p.pending.Get()
		if !ok {
			return
		}
		task := val.(func())
		p.workers.Go(func() {
			p.waiting.Add(-1)
			var catcher panics.Catcher
			catcher.Try(task)
			if r := catcher.Recovered(); r != nil {
				poolLog.Errorf("worker task panic %v", r.Value)
			}
		})
	}
}

func (p *DefaultWorkerPool) Stop() {
	p.once.Do(func() {
		p.mu.Lock()
		p.stopped = true
		p.mu.Unlock()
		close(p.done)
		p.wg.Wait()
		p.workers.Wait()
	})
}
