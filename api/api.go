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

package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/wetrycode/ripext"
)

var apiLog *logrus.Entry = ripext.GetLogger("api")

// maxResults delivered results kept for GET /results
const maxResults = 100

// RipextAPI http view of a running extension, requests submitted through
// it are delivered on the host tick into a bounded result log
type RipextAPI struct {
	G *gin.Engine
	E *ripext.Extension

	mu      sync.Mutex
	results []resultResp
}

type submitReq struct {
	Method  string            `json:"method"`
	URL     string            `json:"url" binding:"required"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
}

type resultResp struct {
	RequestId string            `json:"request_id"`
	URL       string            `json:"url"`
	Status    int               `json:"status"`
	ElapsedMs int64             `json:"elapsed_ms"`
	Headers   map[string]string `json:"headers"`
	Body      string            `json:"body"`
}

type statusResp struct {
	InFlight  int64  `json:"inflight"`
	Pending   int    `json:"pending"`
	Status    string `json:"status"`
	ProcessId string `json:"process_id"`
}

type statsResp struct {
	Counters map[string]uint64     `json:"counters"`
	Latency  *ripext.LatencySummary `json:"latency,omitempty"`
}

func (t *RipextAPI) status(ctx *gin.Context) {
	status := "running"
	if t.E.Closed() {
		status = "closed"
	}
	rsp := statusResp{
		InFlight:  t.E.InFlight(),
		Pending:   t.E.Pending(),
		Status:    status,
		ProcessId: ripext.ProcessId,
	}
	appG := Gin{Ctx: ctx}
	appG.Response(http.StatusOK, SUCCESS, rsp)
}

func (t *RipextAPI) stats(ctx *gin.Context) {
	statistic := t.E.GetStatistic()
	rsp := statsResp{
		Counters: statistic.GetAllStats(),
	}
	if latency, ok := statistic.(interface{ Latency() ripext.LatencySummary }); ok {
		summary := latency.Latency()
		rsp.Latency = &summary
	}
	appG := Gin{Ctx: ctx}
	appG.Response(http.StatusOK, SUCCESS, rsp)
}

func (t *RipextAPI) metric(ctx *gin.Context) {
	name := ctx.Param("name")
	appG := Gin{Ctx: ctx}
	counters := t.E.GetStatistic().GetAllStats()
	value, ok := counters[name]
	if !ok {
		apiLog.Warnf("unknown metric %s", name)
		appG.Response(http.StatusNotFound, NOT_FOUND, nil)
		return
	}
	appG.Response(http.StatusOK, SUCCESS, gin.H{name: value})
}

func (t *RipextAPI) submit(ctx *gin.Context) {
	appG := Gin{Ctx: ctx}
	var req submitReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		apiLog.Warnf("invalid submit body %s", err.Error())
		appG.Response(http.StatusBadRequest, INVALID_PARAMS, nil)
		return
	}
	opts := make([]ripext.RequestOption, 0, len(req.Headers)+1)
	for name, value := range req.Headers {
		opts = append(opts, ripext.RequestWithHeader(name, value))
	}
	if req.Body != "" {
		opts = append(opts, ripext.RequestWithBody([]byte(req.Body)))
	}
	request, err := ripext.NewRequest(ripext.RequestMethod(req.Method), req.URL, req.Path, opts...)
	if err != nil {
		apiLog.Warnf("invalid request %s", err.Error())
		appG.Response(http.StatusBadRequest, INVALID_PARAMS, nil)
		return
	}
	requestId := request.ID
	err = t.E.Execute(request, func(response *ripext.Response, _ interface{}) {
		t.record(requestId, response)
	}, nil)
	if err != nil {
		apiLog.Errorf("submit request error %s", err.Error())
		appG.Response(http.StatusServiceUnavailable, ERROR, nil)
		return
	}
	appG.Response(http.StatusAccepted, SUCCESS, gin.H{"request_id": requestId})
}

// record copies a delivered response, the response is released after the handler returns
func (t *RipextAPI) record(requestId string, response *ripext.Response) {
	result := resultResp{
		RequestId: requestId,
		URL:       response.URL,
		Status:    response.Status,
		ElapsedMs: response.Elapsed.Milliseconds(),
		Headers:   response.Headers.ToMap(),
		Body:      response.String(),
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.results = append(t.results, result)
	if len(t.results) > maxResults {
		t.results = t.results[len(t.results)-maxResults:]
	}
}

func (t *RipextAPI) listResults(ctx *gin.Context) {
	t.mu.Lock()
	results := append([]resultResp{}, t.results...)
	t.mu.Unlock()
	appG := Gin{Ctx: ctx}
	appG.Response(http.StatusOK, SUCCESS, results)
}

// Server serves the api on addr until ctx is done
func (t *RipextAPI) Server(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      t.G,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdown); err != nil {
			apiLog.Errorf("shutdown api error %s", err.Error())
		}
	}()
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// NewAPI routes of the extension api
func NewAPI(extension *ripext.Extension) *RipextAPI {
	API := &RipextAPI{
		E: extension,
	}
	g := SetUp()

	v1Router := g.Group("/api/v1")
	v1Router.GET("/status", API.status)
	v1Router.GET("/stats", API.stats)
	v1Router.GET("/stats/:name", API.metric)
	v1Router.POST("/requests", API.submit)
	v1Router.GET("/results", API.listResults)
	API.G = g
	return API
}
