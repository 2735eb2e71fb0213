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
	"fmt"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/sirupsen/logrus"
)

var engineLog *logrus.Entry = GetLogger("engine")

// TransferEngine drives one blocking exchange per call
type TransferEngine struct {
	transport Transport
	// dataDir root the trust bundle path is resolved against
	dataDir string
	// caBundle trust bundle path relative to dataDir
	caBundle string
	// maxBodySize response body limit, 0 means unlimited
	maxBodySize int
}

// TransferEngineOption TransferEngine可选参数
type TransferEngineOption func(e *TransferEngine)

// EngineWithTransport replace the net/http transport
func EngineWithTransport(transport Transport) TransferEngineOption {
	return func(e *TransferEngine) {
		e.transport = transport
	}
}

// EngineWithDataDir root directory of the trust bundle
func EngineWithDataDir(dir string) TransferEngineOption {
	return func(e *TransferEngine) {
		e.dataDir = dir
	}
}

// EngineWithCABundle trust bundle path relative to the data directory
func EngineWithCABundle(path string) TransferEngineOption {
	return func(e *TransferEngine) {
		e.caBundle = path
	}
}

// EngineWithMaxBodySize refuse response bodies larger than size bytes
func EngineWithMaxBodySize(size int) TransferEngineOption {
	return func(e *TransferEngine) {
		e.maxBodySize = size
	}
}

// NewTransferEngine engine configured from settings
func NewTransferEngine(opts ...TransferEngineOption) *TransferEngine {
	e := &TransferEngine{
		transport:   NewHTTPTransport(),
		dataDir:     Config.GetString(DataDirKey),
		caBundle:    Config.GetString(CABundleKey),
		maxBodySize: Config.GetInt(MaxBodySizeKey),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// CABundlePath trust bundle location, resolved on every call
func (e *TransferEngine) CABundlePath() string {
	return filepath.Join(e.dataDir, e.caBundle)
}

// Open a transport session, wrapping failures in ErrSessionInit
func (e *TransferEngine) Open() (session Session, err error) {
	defer func() {
		if p := recover(); p != nil {
			engineLog.Errorf("open session panic %v\n%s", p, debug.Stack())
			session, err = nil, fmt.Errorf("%w: %v", ErrSessionInit, p)
		}
	}()
	session, err = e.transport.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionInit, err.Error())
	}
	if session == nil {
		return nil, ErrSessionInit
	}
	return session, nil
}

// NewExchange applies the method mapping and the fixed transfer policy
func (e *TransferEngine) NewExchange(request *Request, url string, headers []string, response *Response) *Exchange {
	ex := &Exchange{
		URL:            url,
		Headers:        headers,
		AcceptEncoding: "",
		CAInfo:         e.CABundlePath(),
		ConnectTimeout: ConnectTimeout,
		Timeout:        TransferTimeout,
		FollowLocation: true,
		NoSignal:       true,
		ReadFunc:       request,
		WriteFunc:      response,
		HeaderFunc:     response.ReceiveHeader,
	}
	switch request.Method {
	case POST:
		ex.Post = true
	case PUT:
		ex.Upload = true
	case PATCH:
		ex.CustomRequest = string(PATCH)
		ex.Post = true
	case DELETE:
		ex.CustomRequest = string(DELETE)
	}
	return ex
}

// Perform runs one exchange on session.
// A transport failure returns a *TransferError and no response, the
// request body is released on every path.
func (e *TransferEngine) Perform(ctx context.Context, session Session, request *Request, url string, headers []string) (response *Response, err error) {
	defer request.Release()
	defer func() {
		if p := recover(); p != nil {
			engineLog.WithField("request_id", request.ID).Errorf("transfer panic %v\n%s", p, debug.Stack())
			response, err = nil, NewTransferError(url, fmt.Errorf("%v", p))
		}
	}()
	response = NewResponse(e.maxBodySize)
	response.URL = url
	ex := e.NewExchange(request, url, headers, response)
	start := time.Now()
	status, err := session.Perform(ctx, ex)
	if err != nil {
		return nil, NewTransferError(url, err)
	}
	response.Elapsed = time.Since(start)
	response.Data = ParseDocument(response.Bytes())
	response.Status = status
	return response, nil
}
