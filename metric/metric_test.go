package metric

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"github.com/wetrycode/ripext"
)

type writeRecorder struct {
	mu     sync.Mutex
	bodies []string
}

func (w *writeRecorder) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	var reader io.Reader = r.Body
	if r.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(r.Body)
		if err != nil {
			rw.WriteHeader(http.StatusBadRequest)
			return
		}
		defer gz.Close()
		reader = gz
	}
	data, _ := io.ReadAll(reader)
	if strings.HasSuffix(r.URL.Path, "/api/v2/write") {
		w.mu.Lock()
		w.bodies = append(w.bodies, string(data))
		w.mu.Unlock()
	}
	rw.WriteHeader(http.StatusNoContent)
}

func (w *writeRecorder) writes() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string{}, w.bodies...)
}

func TestCollector(t *testing.T) {
	convey.Convey("test collect writes one point", t, func() {
		recorder := &writeRecorder{}
		server := httptest.NewServer(recorder)
		defer server.Close()
		stats := ripext.NewDefaultStatistic()
		stats.Add(ripext.RequestStats, 3)
		c := NewCollector(server.URL, "token", "bucket", "org", stats, CollectorWithMeasurement("game"))
		defer c.Close()
		err := c.Collect(context.TODO())
		convey.So(err, convey.ShouldBeNil)
		writes := recorder.writes()
		convey.So(len(writes), convey.ShouldEqual, 1)
		convey.So(writes[0], convey.ShouldStartWith, "game,process=")
		convey.So(writes[0], convey.ShouldContainSubstring, "requests=3")
	})
	convey.Convey("test start pushes a final snapshot", t, func() {
		recorder := &writeRecorder{}
		server := httptest.NewServer(recorder)
		defer server.Close()
		stats := ripext.NewDefaultStatistic()
		c := NewCollector(server.URL, "token", "bucket", "org", stats, CollectorWithInterval(10*time.Millisecond))
		defer c.Close()
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			c.Start(ctx)
			close(done)
		}()
		time.Sleep(50 * time.Millisecond)
		cancel()
		<-done
		convey.So(len(recorder.writes()), convey.ShouldBeGreaterThanOrEqualTo, 1)
	})
	convey.Convey("test server error is returned", t, func() {
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			rw.WriteHeader(http.StatusBadRequest)
			_, _ = rw.Write([]byte(`{"code":"invalid","message":"bad point"}`))
		}))
		defer server.Close()
		stats := ripext.NewDefaultStatistic()
		c := NewCollector(server.URL, "token", "bucket", "org", stats)
		defer c.Close()
		convey.So(c.Collect(context.TODO()), convey.ShouldNotBeNil)
	})
}
