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
	"errors"
	"fmt"
)

var (
	ErrSessionInit        error = errors.New("could not initialize HTTP session")
	ErrTransferFailed     error = errors.New("HTTP request failed")
	ErrResponseTooLarge   error = errors.New("response body exceeds the configured limit")
	ErrUnsupportedMethod  error = errors.New("unsupported request method")
	ErrEmptyEndpoint      error = errors.New("request endpoint is empty")
	ErrForwardReleased    error = errors.New("completion handler already released")
	ErrNilHandler         error = errors.New("completion handler cannot be nil")
	ErrPoolFull           error = errors.New("worker pool pending buffer is full")
	ErrPoolStopped        error = errors.New("worker pool is stopped")
	ErrCABundle           error = errors.New("error setting certificate verify locations")
	ErrExtensionClosed    error = errors.New("extension is closed")
	ErrConcurrentDispatch error = errors.New("completion queue is already being drained")
)

// TransferError transport level failure of one exchange
type TransferError struct {
	URL string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s: %s", ErrTransferFailed.Error(), e.Err.Error())
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransferFailed so callers need not know the concrete cause
func (e *TransferError) Is(target error) bool {
	return target == ErrTransferFailed
}

// NewTransferError wrap a transport error for url
func NewTransferError(url string, err error) *TransferError {
	return &TransferError{URL: url, Err: err}
}
