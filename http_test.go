package ripext

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

var onceServer sync.Once
var testServer *httptest.Server

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ok", func(c *gin.Context) {
		c.Data(200, "application/json", []byte(`{"ok":true}`))
	})
	router.GET("/text", func(c *gin.Context) {
		c.String(200, "not json")
	})
	router.GET("/empty", func(c *gin.Context) {
		c.Status(204)
	})
	router.GET("/missing", func(c *gin.Context) {
		c.Data(404, "application/json", []byte(`{"error":"not found"}`))
	})
	echo := func(c *gin.Context) {
		data, _ := io.ReadAll(c.Request.Body)
		c.JSON(200, gin.H{
			"method":         c.Request.Method,
			"body":           string(data),
			"content_length": c.Request.ContentLength,
			"chunked":        len(c.Request.TransferEncoding) > 0,
			"content_type":   c.GetHeader("Content-Type"),
			"user_agent":     c.GetHeader("User-Agent"),
			"x_custom":       c.GetHeader("X-Custom"),
		})
	}
	router.POST("/echo", echo)
	router.PUT("/echo", echo)
	router.PATCH("/echo", echo)
	router.DELETE("/echo", echo)
	router.GET("/echo", echo)
	router.GET("/headers", func(c *gin.Context) {
		c.Header("X-Test", "value")
		c.Writer.Header().Add("Set-Cookie", "first=1")
		c.Writer.Header().Add("Set-Cookie", "second=2")
		c.String(200, "headers")
	})
	router.GET("/redirect", func(c *gin.Context) {
		c.Header("X-Hop", "redirect")
		c.Header("X-Only-Redirect", "yes")
		c.Redirect(http.StatusFound, "/landing")
	})
	router.GET("/landing", func(c *gin.Context) {
		c.Header("X-Hop", "landing")
		c.Data(200, "application/json", []byte(`{"landed":true}`))
	})
	router.GET("/gzip", func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.String(200, "plain")
			return
		}
		buf := &bytes.Buffer{}
		w := gzip.NewWriter(buf)
		_, _ = w.Write([]byte(`{"compressed":true}`))
		_ = w.Close()
		c.Header("Content-Encoding", "gzip")
		c.Data(200, "application/json", buf.Bytes())
	})
	router.POST("/early", func(c *gin.Context) {
		c.Header("Connection", "close")
		c.String(200, "early")
	})
	router.GET("/large", func(c *gin.Context) {
		c.String(200, strings.Repeat("x", 64*1024))
	})
	return router
}

// NewTestServer shared plain http server used across the package tests
func NewTestServer() *httptest.Server {
	onceServer.Do(func() {
		testServer = httptest.NewServer(newTestRouter())
	})
	return testServer
}

// unreachableEndpoint an address nobody listens on
func unreachableEndpoint(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error %s", err.Error())
	}
	addr := l.Addr().String()
	l.Close()
	return fmt.Sprintf("http://%s", addr)
}

// newRawServer answers every connection with reply written verbatim,
// used where the reply head must keep an exact byte layout
func newRawServer(t *testing.T, reply string) (string, func()) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error %s", err.Error())
	}
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				reader := bufio.NewReader(conn)
				for {
					line, err := reader.ReadString('\n')
					if err != nil || line == "\r\n" {
						break
					}
				}
				_, _ = io.WriteString(conn, reply)
			}(conn)
		}
	}()
	return fmt.Sprintf("http://%s", l.Addr().String()), func() { l.Close() }
}
