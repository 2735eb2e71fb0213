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
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/net/http/httpproxy"
)

// Exchange options and callbacks of one blocking transfer
type Exchange struct {
	// URL absolute target url
	URL string
	// Headers "Name: value" header list, later lines override earlier ones
	Headers []string
	// CustomRequest verb override, empty keeps the verb implied by Post/Upload
	CustomRequest string
	// Post upload the request body like a POST
	Post bool
	// Upload raw upload mode, the body is streamed with unknown length
	Upload bool
	// AcceptEncoding empty negotiates every supported encoding
	AcceptEncoding string
	// CAInfo trust bundle file used to verify https peers
	CAInfo string
	// ConnectTimeout limit for establishing the connection
	ConnectTimeout time.Duration
	// Timeout limit for the whole exchange
	Timeout time.Duration
	// FollowLocation follow redirect responses
	FollowLocation bool
	// NoSignal kept for parity with signal based transports, goroutines never need it
	NoSignal bool
	// ReadFunc pulled for the request body
	ReadFunc io.Reader
	// WriteFunc receives the response body chunk by chunk
	WriteFunc io.Writer
	// HeaderFunc receives every raw response header line
	HeaderFunc func(line string)
}

// Transport creates transfer sessions
type Transport interface {
	// Open a session for exactly one exchange
	Open() (Session, error)
}

// Session performs one blocking exchange
type Session interface {
	// Perform runs the exchange and returns the final status code
	Perform(ctx context.Context, ex *Exchange) (int, error)
	// Close releases the session resources
	Close()
}

// HTTPTransport net/http backed transport, a fresh connection set per session
type HTTPTransport struct {
	// Fs file system the trust bundle is read from
	Fs afero.Fs
	// Proxy resolves the proxy for a request url
	Proxy func(*url.URL) (*url.URL, error)
}

// HTTPTransportOption HTTPTransport可选参数
type HTTPTransportOption func(t *HTTPTransport)

// TransportWithFs read trust bundles from fs
func TransportWithFs(fs afero.Fs) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.Fs = fs
	}
}

// TransportWithProxy override the environment proxy lookup
func TransportWithProxy(proxy func(*url.URL) (*url.URL, error)) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.Proxy = proxy
	}
}

// NewHTTPTransport transport using the os file system and environment proxies
func NewHTTPTransport(opts ...HTTPTransportOption) *HTTPTransport {
	t := &HTTPTransport{
		Fs:    afero.NewOsFs(),
		Proxy: httpproxy.FromEnvironment().ProxyFunc(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

type httpSession struct {
	transport *http.Transport
	dialer    *wireDialer
	recorder  *headRecorder
	fs        afero.Fs
	// tunneled an https request went through a CONNECT proxy, its heads are encrypted on the wire
	tunneled atomic.Bool
}

// Open builds an unshared http.Transport for one exchange.
// Connections are dialed through a recorder so response heads reach the
// header callback line by line in wire order.
func (t *HTTPTransport) Open() (Session, error) {
	if t.Fs == nil {
		return nil, fmt.Errorf("%w: no file system for trust bundles", ErrSessionInit)
	}
	proxy := t.Proxy
	recorder := &headRecorder{}
	session := &httpSession{
		dialer:   &wireDialer{dialer: &net.Dialer{Timeout: ConnectTimeout}, recorder: recorder},
		recorder: recorder,
		fs:       t.Fs,
	}
	session.transport = &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if proxy == nil {
				return nil, nil
			}
			u, err := proxy(req.URL)
			if u != nil && strings.EqualFold(req.URL.Scheme, "https") {
				session.tunneled.Store(true)
			}
			return u, err
		},
		DialContext:         session.dialer.DialContext,
		DialTLSContext:      session.dialer.DialTLSContext,
		TLSHandshakeTimeout: ConnectTimeout,
		DisableKeepAlives:   true,
	}
	return session, nil
}

func (s *httpSession) Close() {
	s.transport.CloseIdleConnections()
}

// loadCABundle builds a cert pool from a PEM bundle
func (s *httpSession) loadCABundle(path string) (*x509.CertPool, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCABundle, err.Error())
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(data) {
		return nil, fmt.Errorf("%w: no certificates in %s", ErrCABundle, path)
	}
	return pool, nil
}

// method verb implied by the exchange options
func (ex *Exchange) method() string {
	switch {
	case ex.CustomRequest != "":
		return ex.CustomRequest
	case ex.Post:
		return http.MethodPost
	case ex.Upload:
		return http.MethodPut
	}
	return http.MethodGet
}

func (s *httpSession) Perform(ctx context.Context, ex *Exchange) (int, error) {
	target, err := url.Parse(ex.URL)
	if err != nil {
		return 0, err
	}
	if ex.ConnectTimeout > 0 {
		s.dialer.dialer.Timeout = ex.ConnectTimeout
	}
	if strings.EqualFold(target.Scheme, "https") && ex.CAInfo != "" {
		pool, err := s.loadCABundle(ex.CAInfo)
		if err != nil {
			return 0, err
		}
		config := &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
		s.dialer.tls = config
		s.transport.TLSClientConfig = config
	}

	var body *trackedBody
	var reqBody io.Reader
	if (ex.Post || ex.Upload) && ex.ReadFunc != nil {
		body = newTrackedBody(ex.ReadFunc)
		reqBody = body
	}
	req, err := http.NewRequestWithContext(ctx, ex.method(), ex.URL, reqBody)
	if err != nil {
		return 0, err
	}
	if ex.Post && body != nil {
		if size, ok := body.Size(); ok {
			req.ContentLength = int64(size)
		}
	}
	for _, line := range ex.Headers {
		name, value, ok := ParseHeaderLine(line)
		if !ok {
			continue
		}
		req.Header.Set(name, value)
	}
	// an explicit encoding turns off transparent gzip decoding
	if ex.AcceptEncoding != "" {
		req.Header.Set("Accept-Encoding", ex.AcceptEncoding)
	}

	hops := make([]*http.Response, 0, 1)
	client := &http.Client{
		Transport: s.transport,
		Timeout:   ex.Timeout,
		CheckRedirect: func(next *http.Request, via []*http.Request) error {
			if !ex.FollowLocation {
				return http.ErrUseLastResponse
			}
			if next.Response != nil {
				hops = append(hops, next.Response)
			}
			if len(via) >= 50 {
				return fmt.Errorf("stopped after %d redirects", len(via))
			}
			return nil
		},
	}
	if body != nil {
		// the transport may still be writing the body after Do returns
		defer s.waitBody(body, ex.Timeout)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	hops = append(hops, resp)
	s.emitHeads(hops, ex.HeaderFunc)
	if ex.WriteFunc != nil {
		if _, err := io.Copy(ex.WriteFunc, resp.Body); err != nil {
			return 0, err
		}
	}
	return resp.StatusCode, nil
}

func (s *httpSession) waitBody(body *trackedBody, timeout time.Duration) {
	if timeout <= 0 {
		timeout = TransferTimeout
	}
	if !body.wait(timeout) {
		GetLogger("transport").Warnf("request body still held by the transport after %s", timeout)
	}
}

// emitHeads feeds every recorded response head to f in arrival order.
// Heads that never crossed the wire in clear text are rebuilt from the
// parsed responses instead.
func (s *httpSession) emitHeads(hops []*http.Response, f func(line string)) {
	if f == nil {
		return
	}
	heads := s.recorder.all()
	final := 0
	for _, head := range heads {
		if !isInterimStatus(head[0]) {
			final++
		}
	}
	if s.tunneled.Load() || final < len(hops) {
		for _, hop := range hops {
			emitHeaderLines(hop, f)
		}
		return
	}
	for _, head := range heads {
		for _, line := range head {
			f(line)
		}
	}
}

// emitHeaderLines feeds the status line, every header value and the blank
// terminator line of resp to f, one physical line per call. Keys come out
// sorted since net/http does not keep their order.
func emitHeaderLines(resp *http.Response, f func(line string)) {
	f(fmt.Sprintf("%s %s\r\n", resp.Proto, resp.Status))
	buf := &bytes.Buffer{}
	if err := resp.Header.Write(buf); err == nil {
		scanner := bufio.NewScanner(buf)
		for scanner.Scan() {
			f(scanner.Text() + "\r\n")
		}
	}
	f("\r\n")
}
