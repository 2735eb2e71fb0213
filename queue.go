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
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var queueLog *logrus.Entry = GetLogger("queue")

// CompletionItem finished transfer waiting for delivery
type CompletionItem struct {
	forward  *Forward
	response *Response
	value    interface{}
}

// NewCompletionItem takes ownership of forward and response
func NewCompletionItem(forward *Forward, response *Response, value interface{}) *CompletionItem {
	return &CompletionItem{
		forward:  forward,
		response: response,
		value:    value,
	}
}

// Response the finished response carried by the item
func (c *CompletionItem) Response() *Response {
	return c.response
}

// Value opaque value supplied with the request
func (c *CompletionItem) Value() interface{} {
	return c.value
}

// CompletionQueue unbounded FIFO handing finished transfers from worker
// goroutines to the single consumer that drains it once per tick
type CompletionQueue struct {
	mu       sync.Mutex
	items    []*CompletionItem
	draining atomic.Bool
}

// NewCompletionQueue create an empty queue
func NewCompletionQueue() *CompletionQueue {
	return &CompletionQueue{
		items: make([]*CompletionItem, 0),
	}
}

// Enqueue appends item, safe for concurrent producers
func (q *CompletionQueue) Enqueue(item *CompletionItem) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// Len items waiting for the next drain
func (q *CompletionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// swap takes every queued item, leaving the queue empty
func (q *CompletionQueue) swap() []*CompletionItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	items := q.items
	q.items = make([]*CompletionItem, 0, len(items))
	return items
}

// DrainAndDispatch delivers every queued item in enqueue order and
// returns how many were dispatched. It must only be called from the
// consumer, a concurrent call dispatches nothing.
func (q *CompletionQueue) DrainAndDispatch() int {
	if !q.draining.CompareAndSwap(false, true) {
		queueLog.Warnf("%s", ErrConcurrentDispatch.Error())
		return 0
	}
	defer q.draining.Store(false)

	items := q.swap()
	for _, item := range items {
		q.dispatch(item)
	}
	return len(items)
}

// Discard releases every queued item without invoking its handler and
// returns how many were dropped
func (q *CompletionQueue) Discard() int {
	items := q.swap()
	for _, item := range items {
		item.forward.Release()
		if item.response != nil {
			item.response.release()
		}
	}
	return len(items)
}

// dispatch invokes one handler then releases what the item owns
func (q *CompletionQueue) dispatch(item *CompletionItem) {
	defer func() {
		if p := recover(); p != nil {
			queueLog.WithField("forward_id", item.forward.ID).Errorf("completion handler panic %v\n%s", p, debug.Stack())
		}
		item.forward.Release()
		if item.response != nil {
			item.response.release()
		}
	}()
	if err := item.forward.Invoke(item.response, item.value); err != nil {
		queueLog.WithField("forward_id", item.forward.ID).Errorf("dispatch completion error %s", err.Error())
	}
}
