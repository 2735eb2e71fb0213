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
	"errors"

	"github.com/sirupsen/logrus"
)

var taskLog *logrus.Entry = GetLogger("task")

// RequestTask worker execution unit of one request
type RequestTask struct {
	request   *Request
	forward   *Forward
	value     interface{}
	engine    *TransferEngine
	builder   Builder
	queue     *CompletionQueue
	statistic StatisticInterface
}

// NewRequestTask the task takes ownership of request and forward
func NewRequestTask(request *Request, forward *Forward, value interface{}, engine *TransferEngine, builder Builder, queue *CompletionQueue, statistic StatisticInterface) *RequestTask {
	return &RequestTask{
		request:   request,
		forward:   forward,
		value:     value,
		engine:    engine,
		builder:   builder,
		queue:     queue,
		statistic: statistic,
	}
}

// Run performs the transfer and queues the result.
// Failures are logged and the forward is released without being invoked.
func (t *RequestTask) Run(ctx context.Context) {
	log := taskLog.WithField("request_id", t.request.ID)
	handedOff := false
	defer func() {
		if !handedOff {
			t.request.Release()
			t.forward.Release()
		}
	}()
	t.statistic.Incr(RequestStats)

	session, err := t.engine.Open()
	if err != nil {
		t.statistic.Incr(SessionFailStats)
		log.Errorf("Could not initialize HTTP session. %s", err.Error())
		return
	}
	defer session.Close()

	url, headers, err := t.builder.Build(t.request)
	if err != nil {
		t.statistic.Incr(TransferFailStats)
		log.Errorf("HTTP request failed: %s", err.Error())
		return
	}
	log.Debugf("%s %s is ready to transfer", t.request.Method, url)

	response, err := t.engine.Perform(ctx, session, t.request, url, headers)
	if err != nil {
		t.statistic.Incr(TransferFailStats)
		var transferErr *TransferError
		if errors.As(err, &transferErr) {
			err = transferErr.Err
		}
		log.Errorf("HTTP request failed: %s", err.Error())
		return
	}
	t.statistic.Observe(response.Elapsed)
	t.statistic.Incr(StatusMetric(response.Status))
	if response.Data == nil {
		t.statistic.Incr(NoDocumentStats)
	}

	t.queue.Enqueue(NewCompletionItem(t.forward, response, t.value))
	handedOff = true
	t.statistic.Incr(CompletionStats)
}
