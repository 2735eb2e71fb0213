package ripext

import (
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/smartystreets/goconvey/convey"
)

func newTestItem(t *testing.T, handler CompletionHandler, value interface{}) (*CompletionItem, *Forward) {
	forward, err := NewForward(handler)
	if err != nil {
		t.Fatalf("new forward error %s", err.Error())
	}
	response := NewResponse(0)
	response.Status = 200
	return NewCompletionItem(forward, response, value), forward
}

func TestCompletionQueue(t *testing.T) {
	convey.Convey("test items are dispatched in enqueue order", t, func() {
		q := NewCompletionQueue()
		order := make([]int, 0)
		for i := 0; i < 10; i++ {
			item, _ := newTestItem(t, func(response *Response, value interface{}) {
				order = append(order, value.(int))
			}, i)
			q.Enqueue(item)
		}
		convey.So(q.Len(), convey.ShouldEqual, 10)
		convey.So(q.DrainAndDispatch(), convey.ShouldEqual, 10)
		convey.So(order, convey.ShouldResemble, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
		convey.So(q.Len(), convey.ShouldEqual, 0)
	})
	convey.Convey("test each item is dispatched exactly once", t, func() {
		q := NewCompletionQueue()
		calls := 0
		item, forward := newTestItem(t, func(*Response, interface{}) {
			calls++
		}, nil)
		q.Enqueue(item)
		convey.So(q.DrainAndDispatch(), convey.ShouldEqual, 1)
		convey.So(q.DrainAndDispatch(), convey.ShouldEqual, 0)
		convey.So(calls, convey.ShouldEqual, 1)
		convey.So(forward.Released(), convey.ShouldBeTrue)
		convey.So(item.Response().Size(), convey.ShouldEqual, 0)
	})
	convey.Convey("test discard releases without dispatching", t, func() {
		q := NewCompletionQueue()
		calls := 0
		item, forward := newTestItem(t, func(*Response, interface{}) {
			calls++
		}, nil)
		_, _ = item.Response().Write([]byte("{}"))
		q.Enqueue(item)
		convey.So(q.Discard(), convey.ShouldEqual, 1)
		convey.So(calls, convey.ShouldEqual, 0)
		convey.So(forward.Released(), convey.ShouldBeTrue)
		convey.So(item.Response().Size(), convey.ShouldEqual, 0)
		convey.So(q.DrainAndDispatch(), convey.ShouldEqual, 0)
	})
	convey.Convey("test draining an empty queue is a no-op", t, func() {
		q := NewCompletionQueue()
		convey.So(q.DrainAndDispatch(), convey.ShouldEqual, 0)
		convey.So(q.DrainAndDispatch(), convey.ShouldEqual, 0)
	})
	convey.Convey("test handler panic does not stop the drain", t, func() {
		hook := test.NewLocal(logger)
		defer hook.Reset()
		q := NewCompletionQueue()
		delivered := make([]int, 0)
		for i := 0; i < 3; i++ {
			item, _ := newTestItem(t, func(response *Response, value interface{}) {
				if value.(int) == 1 {
					panic("handler failure")
				}
				delivered = append(delivered, value.(int))
			}, i)
			q.Enqueue(item)
		}
		convey.So(q.DrainAndDispatch(), convey.ShouldEqual, 3)
		convey.So(delivered, convey.ShouldResemble, []int{0, 2})
		convey.So(hook.LastEntry(), convey.ShouldNotBeNil)
	})
	convey.Convey("test items enqueued during a drain wait for the next one", t, func() {
		q := NewCompletionQueue()
		late, _ := newTestItem(t, func(*Response, interface{}) {}, nil)
		first, _ := newTestItem(t, func(*Response, interface{}) {
			q.Enqueue(late)
		}, nil)
		q.Enqueue(first)
		convey.So(q.DrainAndDispatch(), convey.ShouldEqual, 1)
		convey.So(q.Len(), convey.ShouldEqual, 1)
		convey.So(q.DrainAndDispatch(), convey.ShouldEqual, 1)
	})
	convey.Convey("test concurrent producers", t, func() {
		q := NewCompletionQueue()
		seen := make(map[int]int)
		wg := &sync.WaitGroup{}
		for p := 0; p < 8; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					item, _ := newTestItem(t, func(response *Response, value interface{}) {
						seen[value.(int)]++
					}, p*100+i)
					q.Enqueue(item)
				}
			}(p)
		}
		wg.Wait()
		convey.So(q.DrainAndDispatch(), convey.ShouldEqual, 800)
		convey.So(len(seen), convey.ShouldEqual, 800)
		for _, n := range seen {
			convey.So(n, convey.ShouldEqual, 1)
		}
	})
	convey.Convey("test concurrent drain is refused", t, func() {
		q := NewCompletionQueue()
		entered := make(chan struct{})
		leave := make(chan struct{})
		item, _ := newTestItem(t, func(*Response, interface{}) {
			close(entered)
			<-leave
		}, nil)
		q.Enqueue(item)
		done := make(chan int)
		go func() {
			done <- q.DrainAndDispatch()
		}()
		<-entered
		convey.So(q.DrainAndDispatch(), convey.ShouldEqual, 0)
		close(leave)
		select {
		case n := <-done:
			convey.So(n, convey.ShouldEqual, 1)
		case <-time.After(5 * time.Second):
			t.Fatal("drain did not finish")
		}
	})
}
