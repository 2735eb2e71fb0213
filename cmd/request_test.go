package cmd

import (
	"bytes"
	"context"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/gin-gonic/gin"
	"github.com/smartystreets/goconvey/convey"
)

func newCmdTestServer() *httptest.Server {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/ok", func(c *gin.Context) {
		c.Header("X-Test", "value")
		c.Data(200, "application/json", []byte(`{"ok":true}`))
	})
	router.POST("/echo", func(c *gin.Context) {
		data, _ := c.GetRawData()
		c.Data(201, "application/json", data)
	})
	router.GET("/text", func(c *gin.Context) {
		c.String(200, "plain")
	})
	return httptest.NewServer(router)
}

func TestRunRequest(t *testing.T) {
	color.NoColor = true
	server := newCmdTestServer()
	defer server.Close()

	convey.Convey("test delivered response is printed", t, func() {
		out := &bytes.Buffer{}
		err := runRequest(context.TODO(), out, &requestOptions{
			method:  "GET",
			url:     server.URL,
			path:    "/ok",
			timeout: 10 * time.Second,
			tick:    5 * time.Millisecond,
		})
		convey.So(err, convey.ShouldBeNil)
		convey.So(out.String(), convey.ShouldStartWith, "200 ")
		convey.So(out.String(), convey.ShouldContainSubstring, "X-Test: value")
		convey.So(out.String(), convey.ShouldContainSubstring, `{"ok":true}`)
	})
	convey.Convey("test json body and headers", t, func() {
		out := &bytes.Buffer{}
		err := runRequest(context.TODO(), out, &requestOptions{
			method:  "post",
			url:     server.URL,
			path:    "echo",
			data:    `{"a":1}`,
			headers: []string{"X-Custom: yes"},
			timeout: 10 * time.Second,
			tick:    5 * time.Millisecond,
		})
		convey.So(err, convey.ShouldBeNil)
		convey.So(out.String(), convey.ShouldStartWith, "201 ")
		convey.So(out.String(), convey.ShouldContainSubstring, `{"a":1}`)
	})
	convey.Convey("test non json body is flagged", t, func() {
		out := &bytes.Buffer{}
		err := runRequest(context.TODO(), out, &requestOptions{
			method:  "GET",
			url:     server.URL,
			path:    "/text",
			timeout: 10 * time.Second,
			tick:    5 * time.Millisecond,
		})
		convey.So(err, convey.ShouldBeNil)
		convey.So(out.String(), convey.ShouldContainSubstring, "body is not a json document")
	})
	convey.Convey("test dropped request", t, func() {
		l, _ := net.Listen("tcp", "127.0.0.1:0")
		addr := l.Addr().String()
		l.Close()
		err := runRequest(context.TODO(), &bytes.Buffer{}, &requestOptions{
			method:  "GET",
			url:     "http://" + addr,
			timeout: 10 * time.Second,
			tick:    5 * time.Millisecond,
		})
		convey.So(err, convey.ShouldEqual, ErrNoResponse)
	})
	convey.Convey("test invalid arguments", t, func() {
		err := runRequest(context.TODO(), &bytes.Buffer{}, &requestOptions{method: "TRACE", url: server.URL})
		convey.So(err, convey.ShouldNotBeNil)
		err = runRequest(context.TODO(), &bytes.Buffer{}, &requestOptions{method: "GET", url: server.URL, headers: []string{"broken"}})
		convey.So(err, convey.ShouldNotBeNil)
	})
	convey.Convey("test command wiring", t, func() {
		out := &bytes.Buffer{}
		RootCmd.SetOut(out)
		RootCmd.SetArgs([]string{"request", "GET", server.URL, "--path", "/ok", "--tick", "5ms"})
		err := RootCmd.Execute()
		convey.So(err, convey.ShouldBeNil)
		convey.So(out.String(), convey.ShouldContainSubstring, `{"ok":true}`)
	})
}
