package ripext

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

func TestDefaultWorkerPool(t *testing.T) {
	convey.Convey("test every submitted task runs", t, func() {
		p := NewDefaultWorkerPool(4, 128)
		var count int32
		wg := &sync.WaitGroup{}
		for i := 0; i < 100; i++ {
			wg.Add(1)
			err := p.Submit(func() {
				defer wg.Done()
				atomic.AddInt32(&count, 1)
			})
			convey.So(err, convey.ShouldBeNil)
		}
		wg.Wait()
		p.Stop()
		convey.So(atomic.LoadInt32(&count), convey.ShouldEqual, 100)
	})
	convey.Convey("test concurrency is bounded", t, func() {
		p := NewDefaultWorkerPool(2, 64)
		var running, peak int32
		for i := 0; i < 20; i++ {
			_ = p.Submit(func() {
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				atomic.AddInt32(&running, -1)
			})
		}
		p.Stop()
		convey.So(atomic.LoadInt32(&peak), convey.ShouldBeLessThanOrEqualTo, 2)
	})
	convey.Convey("test pending buffer holds exactly its limit", t, func() {
		p := NewDefaultWorkerPool(1, 4)
		release := make(chan struct{})
		started := make(chan struct{})
		_ = p.Submit(func() {
			close(started)
			<-release
		})
		<-started
		accepted := 0
		var err error
		for i := 0; i < 10; i++ {
			if err = p.Submit(func() {}); err != nil {
				break
			}
			accepted++
		}
		convey.So(accepted, convey.ShouldEqual, 4)
		convey.So(err, convey.ShouldEqual, ErrPoolFull)
		convey.So(p.Pending(), convey.ShouldEqual, uint32(4))
		close(release)
		p.Stop()
		convey.So(p.Pending(), convey.ShouldEqual, uint32(0))
	})
	convey.Convey("test panicking task does not kill the pool", t, func() {
		p := NewDefaultWorkerPool(1, 8)
		done := make(chan struct{})
		_ = p.Submit(func() {
			panic("task failure")
		})
		_ = p.Submit(func() {
			close(done)
		})
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("task after panic never ran")
		}
		p.Stop()
	})
	convey.Convey("test submit after stop", t, func() {
		p := NewDefaultWorkerPool(1, 8)
		p.Stop()
		p.Stop()
		convey.So(p.Submit(func() {}), convey.ShouldEqual, ErrPoolStopped)
	})
}
