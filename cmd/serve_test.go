package cmd

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/smartystreets/goconvey/convey"
	"github.com/wetrycode/ripext"
	"github.com/wetrycode/ripext/rdb"
)

func TestNewStatistic(t *testing.T) {
	convey.Convey("test in process counters without redis", t, func() {
		_, ok := newStatistic().(*ripext.DefaultStatistic)
		convey.So(ok, convey.ShouldBeTrue)
	})
	convey.Convey("test redis counters when configured", t, func() {
		mockRedis := miniredis.RunT(t)
		ripext.Config.Set(rdb.AddrKey, mockRedis.Addr())
		defer ripext.Config.Set(rdb.AddrKey, "")
		_, ok := newStatistic().(*rdb.RedisStatistic)
		convey.So(ok, convey.ShouldBeTrue)
	})
}

func TestServe(t *testing.T) {
	convey.Convey("test serve stops with its context", t, func() {
		l, _ := net.Listen("tcp", "127.0.0.1:0")
		addr := l.Addr().String()
		l.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		convey.So(serve(ctx, addr, 5*time.Millisecond), convey.ShouldBeNil)
	})
}
