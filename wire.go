package ripext

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net"
	"strings"
	"sync"
	"time"
)

// maxHeadSize stops capturing a response head that never terminates
const maxHeadSize = 1 << 20

var headTerminator = []byte("\r\n\r\n")

// headRecorder collects raw response heads in arrival order
type headRecorder struct {
	mu    sync.Mutex
	heads [][]string
}

func (h *headRecorder) add(lines []string) {
	h.mu.Lock()
	h.heads = append(h.heads, lines)
	h.mu.Unlock()
}

func (h *headRecorder) all() [][]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]string{}, h.heads...)
}

// headConn tees the bytes read from a connection until the final response
// head has been seen. Interim 1xx heads are recorded and capture goes on.
type headConn struct {
	net.Conn
	recorder  *headRecorder
	buf       []byte
	capturing bool
}

func newHeadConn(conn net.Conn, recorder *headRecorder) *headConn {
	return &headConn{Conn: conn, recorder: recorder, capturing: true}
}

func (c *headConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if c.capturing && n > 0 {
		c.capture(p[:n])
	}
	return n, err
}

func (c *headConn) capture(data []byte) {
	c.buf = append(c.buf, data...)
	for c.capturing {
		idx := bytes.Index(c.buf, headTerminator)
		if idx < 0 {
			if len(c.buf) > maxHeadSize {
				c.capturing = false
				c.buf = nil
			}
			return
		}
		head := c.buf[:idx+len(headTerminator)]
		lines := splitHeadLines(head)
		c.recorder.add(lines)
		c.buf = c.buf[idx+len(headTerminator):]
		if !isInterimStatus(lines[0]) {
			c.capturing = false
			c.buf = nil
		}
	}
}

// splitHeadLines one entry per physical line, each keeping its CRLF,
// ending with the blank terminator line
func splitHeadLines(head []byte) []string {
	lines := make([]string, 0, 16)
	for len(head) > 0 {
		idx := bytes.Index(head, []byte("\r\n"))
		if idx < 0 {
			lines = append(lines, string(head))
			break
		}
		lines = append(lines, string(head[:idx+2]))
		head = head[idx+2:]
	}
	return lines
}

// isInterimStatus reports a 1xx status line such as "HTTP/1.1 100 Continue"
func isInterimStatus(statusLine string) bool {
	sp := strings.IndexByte(statusLine, ' ')
	return sp > 0 && sp+1 < len(statusLine) && statusLine[sp+1] == '1'
}

// wireDialer dials plain and TLS connections whose response heads are recorded
type wireDialer struct {
	dialer   *net.Dialer
	tls      *tls.Config
	recorder *headRecorder
}

func (d *wireDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := d.dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	return newHeadConn(conn, d.recorder), nil
}

func (d *wireDialer) DialTLSContext(ctx context.Context, network, addr string) (net.Conn, error) {
	raw, err := d.dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	config := &tls.Config{MinVersion: tls.VersionTLS12}
	if d.tls != nil {
		config = d.tls.Clone()
	}
	if config.ServerName == "" {
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			host = addr
		}
		config.ServerName = host
	}
	conn := tls.Client(raw, config)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, err
	}
	return newHeadConn(conn, d.recorder), nil
}

// trackedBody reports when the transport has closed the request body,
// after which no transport goroutine reads it any more
type trackedBody struct {
	io.Reader
	once   sync.Once
	closed chan struct{}
}

func newTrackedBody(r io.Reader) *trackedBody {
	return &trackedBody{Reader: r, closed: make(chan struct{})}
}

func (b *trackedBody) Close() error {
	b.once.Do(func() {
		close(b.closed)
	})
	return nil
}

// Size forwards the body length used for Content-Length
func (b *trackedBody) Size() (int, bool) {
	sized, ok := b.Reader.(interface{ Size() int })
	if !ok {
		return 0, false
	}
	return sized.Size(), true
}

// wait blocks until the transport closed the body or timeout passes
func (b *trackedBody) wait(timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-b.closed:
		return true
	case <-timer.C:
		return false
	}
}
