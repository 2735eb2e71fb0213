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
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var extLog *logrus.Entry = GetLogger("extension")

// Extension runs requests on worker goroutines and delivers their results
// to the host loop through a completion queue
type Extension struct {
	engine    *TransferEngine
	builder   Builder
	pool      WorkerPool
	queue     *CompletionQueue
	statistic StatisticInterface
	ctx       context.Context
	closed    atomic.Bool
	// inflight submitted requests whose forward is not released yet
	inflight int64
}

// NewExtension build an extension configured from settings
func NewExtension(opts ...ExtensionOption) *Extension {
	e := &Extension{
		queue:     NewCompletionQueue(),
		statistic: NewDefaultStatistic(),
		ctx:       context.Background(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.engine == nil {
		e.engine = NewTransferEngine()
	}
	if e.builder == nil {
		e.builder = NewClient()
	}
	if e.pool == nil {
		e.pool = NewDefaultWorkerPool(Config.GetInt(WorkersKey), Config.GetInt(PendingKey))
	}
	return e
}

// Execute schedules request on a worker. handler fires once on the host
// loop if the transfer succeeds and never if it fails.
func (e *Extension) Execute(request *Request, handler CompletionHandler, value interface{}) error {
	if e.closed.Load() {
		return ErrExtensionClosed
	}
	forward, err := NewForward(handler, ForwardWithReleaseHook(func(_ *Forward) {
		atomic.AddInt64(&e.inflight, -1)
	}))
	if err != nil {
		return err
	}
	atomic.AddInt64(&e.inflight, 1)
	task := NewRequestTask(request, forward, value, e.engine, e.builder, e.queue, e.statistic)
	err = e.pool.Submit(func() {
		task.Run(e.ctx)
	})
	if err != nil {
		request.Release()
		forward.Release()
		extLog.WithField("request_id", request.ID).Errorf("submit request error %s", err.Error())
		return err
	}
	return nil
}

// OnGameFrame host tick, dispatches every finished request
func (e *Extension) OnGameFrame() int {
	n := e.queue.DrainAndDispatch()
	if n > 0 {
		e.statistic.Add(DispatchedStats, uint64(n))
	}
	return n
}

// Pending finished requests waiting for the next tick
func (e *Extension) Pending() int {
	return e.queue.Len()
}

// InFlight requests submitted but not yet dispatched or dropped
func (e *Extension) InFlight() int64 {
	return atomic.LoadInt64(&e.inflight)
}

// Closed reports whether Close has been called
func (e *Extension) Closed() bool {
	return e.closed.Load()
}

// GetStatistic statistic component
func (e *Extension) GetStatistic() StatisticInterface {
	return e.statistic
}

// GetEngine transfer engine
func (e *Extension) GetEngine() *TransferEngine {
	return e.engine
}

// Close stops accepting requests and waits for running transfers.
// Results still queued are released without running their handlers.
func (e *Extension) Close() {
	if !e.closed.CompareAndSwap(false, true) {
		return
	}
	e.pool.Stop()
	if n := e.queue.Discard(); n > 0 {
		e.statistic.Add(DiscardedStats, uint64(n))
		extLog.Warnf("extension closed, %d results discarded", n)
	}
	extLog.Info(Map2String(e.statistic.GetAllStats()))
}
