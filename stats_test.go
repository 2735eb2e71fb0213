package ripext

import (
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

func TestDefaultStatistic(t *testing.T) {
	convey.Convey("test counters", t, func() {
		stats := NewDefaultStatistic()
		convey.So(stats.GetAllStats(), convey.ShouldContainKey, RequestStats)
		wg := &sync.WaitGroup{}
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				stats.Incr(RequestStats)
				stats.Incr(StatusMetric(200))
			}()
		}
		wg.Wait()
		stats.Add(DispatchedStats, 5)
		convey.So(stats.Get(RequestStats), convey.ShouldEqual, 50)
		convey.So(stats.Get("status_200"), convey.ShouldEqual, 50)
		convey.So(stats.Get(DispatchedStats), convey.ShouldEqual, 5)
		convey.So(stats.Get("unknown"), convey.ShouldEqual, 0)
	})
	convey.Convey("test latency summary", t, func() {
		stats := NewDefaultStatistic()
		convey.So(stats.Latency().Count, convey.ShouldEqual, 0)
		stats.Observe(10 * time.Millisecond)
		stats.Observe(20 * time.Millisecond)
		stats.Observe(0)
		summary := stats.Latency()
		convey.So(summary.Count, convey.ShouldEqual, 3)
		convey.So(summary.Max, convey.ShouldAlmostEqual, 20.0, 0.05)
		convey.So(summary.P50, convey.ShouldAlmostEqual, 10.0, 0.05)
	})
}
