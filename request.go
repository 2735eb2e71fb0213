package ripext

import (
	"fmt"
	"io"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"github.com/wxnacy/wgo/arrays"
)

// Request an outbound REST call
type Request struct {
	// ID identifies the request in log lines
	ID string
	// Method 请求方式,空值等同于GET
	Method RequestMethod
	// Endpoint base address handed to the url builder
	Endpoint string
	// Path resource path joined to Endpoint by the url builder
	Path string
	// Headers caller supplied headers, passed to the builder verbatim
	Headers *HeaderTable

	// mu guards the body against a transport goroutine still reading it
	mu sync.Mutex
	// body owned request body, immutable for the life of one transfer
	body []byte
	// size len(body) when the request was built
	size int
	// pos read cursor advanced by Read
	pos int
	// buildErr first error raised by an option
	buildErr error
}

// RequestOption NewRequest 可选参数
type RequestOption func(r *Request)

// reqLog request logger
var reqLog *logrus.Entry = GetLogger("request")

// RequestWithBody 使用bytes作为请求体
func RequestWithBody(body []byte) RequestOption {
	return func(r *Request) {
		r.body = body
		r.size = len(body)
	}
}

// RequestWithJSONBody 将body序列化为json作为请求体
func RequestWithJSONBody(body interface{}) RequestOption {
	return func(r *Request) {
		data, err := jsoniter.Marshal(body)
		if err != nil {
			reqLog.Errorf("set request body err %s", err.Error())
			r.buildErr = fmt.Errorf("set request body err %w", err)
			return
		}
		r.body = data
		r.size = len(data)
	}
}

// RequestWithHeader 设置请求头,同名请求头后者覆盖前者
func RequestWithHeader(name string, value string) RequestOption {
	return func(r *Request) {
		r.Headers.Replace(name, value)
	}
}

// RequestWithHeaders 批量设置请求头
func RequestWithHeaders(headers *HeaderTable) RequestOption {
	return func(r *Request) {
		headers.Range(func(name, value string) bool {
			r.Headers.Replace(name, value)
			return true
		})
	}
}

// NewRequest build a request against endpoint/path
func NewRequest(method RequestMethod, endpoint string, path string, opts ...RequestOption) (*Request, error) {
	if method == "" {
		method = GET
	}
	method = RequestMethod(strings.ToUpper(string(method)))
	if arrays.ContainsString(SupportedMethods, string(method)) == -1 {
		return nil, fmt.Errorf("%w %s", ErrUnsupportedMethod, method)
	}
	if endpoint == "" {
		return nil, ErrEmptyEndpoint
	}
	request := &Request{
		ID:       GetUUID(),
		Method:   method,
		Endpoint: endpoint,
		Path:     path,
		Headers:  NewHeaderTable(),
	}
	for _, o := range opts {
		o(request)
	}
	if request.buildErr != nil {
		return nil, request.buildErr
	}
	return request, nil
}

// Read copies the unread part of the body into p.
// It never rewinds, a drained or released body reads 0, io.EOF.
func (r *Request) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	remaining := r.size - r.pos
	if remaining <= 0 {
		return 0, io.EOF
	}
	toCopy := len(p)
	if remaining < toCopy {
		toCopy = remaining
	}
	copy(p, r.body[r.pos:r.pos+toCopy])
	r.pos += toCopy
	return toCopy, nil
}

// Size body length in bytes
func (r *Request) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Pos bytes already handed to the transport
func (r *Request) Pos() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

// Body read only view of the owned body
func (r *Request) Body() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.body
}

// Release drops the owned body once the transfer is over.
// A Read racing with Release sees either the old body or io.EOF.
func (r *Request) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.body = nil
	r.size = 0
	r.pos = 0
}
