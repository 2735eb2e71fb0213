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
	"sync/atomic"
)

// CompletionHandler application callback receiving a finished response
type CompletionHandler func(response *Response, value interface{})

// Forward owned reference to a completion handler.
// It is released exactly once: after dispatch, or unused when the transfer fails.
type Forward struct {
	ID       string
	handler  CompletionHandler
	released atomic.Bool
	onRelease func(f *Forward)
}

// ForwardOption Forward可选参数
type ForwardOption func(f *Forward)

// ForwardWithReleaseHook call hook once when the forward is released
func ForwardWithReleaseHook(hook func(f *Forward)) ForwardOption {
	return func(f *Forward) {
		f.onRelease = hook
	}
}

// NewForward wrap handler in an owned reference
func NewForward(handler CompletionHandler, opts ...ForwardOption) (*Forward, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}
	f := &Forward{
		ID:      GetUUID(),
		handler: handler,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Invoke calls the handler, a released forward is never invoked
func (f *Forward) Invoke(response *Response, value interface{}) error {
	if f.released.Load() {
		return ErrForwardReleased
	}
	f.handler(response, value)
	return nil
}

// Release drops the handler reference, only the first call has effect
func (f *Forward) Release() bool {
	if !f.released.CompareAndSwap(false, true) {
		return false
	}
	f.handler = nil
	if f.onRelease != nil {
		f.onRelease(f)
	}
	return true
}

// Released reports whether the forward has been released
func (f *Forward) Released() bool {
	return f.released.Load()
}
