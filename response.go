package ripext

import (
	"time"
)

// Response the result of one transfer
type Response struct {
	// Status http status code, valid only after a successful transfer
	Status int
	// Headers header lines received during the transfer
	Headers *HeaderTable
	// Data parsed json document, nil when the body is not a json object or array
	Data *Document
	// Elapsed time spent in the exchange
	Elapsed time.Duration
	// URL the request url
	URL string

	// buf body bytes followed by a NUL terminator
	buf []byte
	// size body bytes written so far
	size int
	// maxSize body limit, 0 means unlimited
	maxSize int
}

// NewResponse create an empty response accepting at most maxSize body bytes
func NewResponse(maxSize int) *Response {
	return &Response{
		Status:  0,
		Headers: NewHeaderTable(),
		buf:     []byte{0},
		maxSize: maxSize,
	}
}

// Write appends a body chunk and keeps the buffer NUL terminated.
// A chunk that would exceed the body limit is refused with a short count.
func (r *Response) Write(p []byte) (int, error) {
	if r.maxSize > 0 && r.size+len(p) > r.maxSize {
		return 0, ErrResponseTooLarge
	}
	r.buf = append(r.buf[:r.size], p...)
	r.buf = append(r.buf, 0)
	r.size += len(p)
	return len(p), nil
}

// ReceiveHeader header callback, one raw line per call
func (r *Response) ReceiveHeader(line string) {
	r.Headers.ReceiveLine(line)
}

// Bytes body bytes without the terminator
func (r *Response) Bytes() []byte {
	return r.buf[:r.size]
}

// String get response text from response body
func (r *Response) String() string {
	return string(r.buf[:r.size])
}

// Size body bytes written so far
func (r *Response) Size() int {
	return r.size
}

// Json parsed document, nil when absent
func (r *Response) Json() *Document {
	return r.Data
}

// IsSuccess status code is 2xx
func (r *Response) IsSuccess() bool {
	return r.Status >= 200 && r.Status < 300
}

// release drops the owned body after dispatch
func (r *Response) release() {
	r.buf = nil
	r.size = 0
	r.Data = nil
}
