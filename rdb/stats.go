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

package rdb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/wetrycode/ripext"
)

var statsLog *logrus.Entry = ripext.GetLogger("rdb")

const (
	// LatencyTotalStats 传输耗时总和,单位微秒
	LatencyTotalStats string = "latency_us_total"
	// LatencyCountStats 记录过耗时的传输数量
	LatencyCountStats string = "latency_count"
)

// RedisStatistic counters kept in one redis hash so that every process
// sharing the key reports into the same totals
type RedisStatistic struct {
	rdb redis.Cmdable
	key string
	// timeout limit of a single redis command
	timeout time.Duration
}

// RedisStatisticOption RedisStatistic可选参数
type RedisStatisticOption func(s *RedisStatistic)

// StatisticWithKey hash key holding the counters
func StatisticWithKey(key string) RedisStatisticOption {
	return func(s *RedisStatistic) {
		s.key = key
	}
}

// StatisticWithTimeout limit of a single redis command
func StatisticWithTimeout(timeout time.Duration) RedisStatisticOption {
	return func(s *RedisStatistic) {
		s.timeout = timeout
	}
}

// NewRedisStatistic counters stored under "ripext:v1:stats:{process id}" by default
func NewRedisStatistic(rdb redis.Cmdable, opts ...RedisStatisticOption) *RedisStatistic {
	s := &RedisStatistic{
		rdb:     rdb,
		key:     fmt.Sprintf("ripext:v1:stats:%s", ripext.ProcessId),
		timeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatistic) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Key hash key holding the counters
func (s *RedisStatistic) Key() string {
	return s.key
}

func (s *RedisStatistic) Incr(metric string) {
	s.Add(metric, 1)
}

func (s *RedisStatistic) Add(metric string, delta uint64) {
	ctx, cancel := s.context()
	defer cancel()
	if err := s.rdb.HIncrBy(ctx, s.key, metric, int64(delta)).Err(); err != nil {
		statsLog.Errorf("incr %s error %s", metric, err.Error())
	}
}

func (s *RedisStatistic) Get(metric string) uint64 {
	ctx, cancel := s.context()
	defer cancel()
	val, err := s.rdb.HGet(ctx, s.key, metric).Uint64()
	if err != nil {
		if err != redis.Nil {
			statsLog.Errorf("get %s error %s", metric, err.Error())
		}
		return 0
	}
	return val
}

func (s *RedisStatistic) GetAllStats() map[string]uint64 {
	ctx, cancel := s.context()
	defer cancel()
	result := make(map[string]uint64)
	values, err := s.rdb.HGetAll(ctx, s.key).Result()
	if err != nil {
		statsLog.Errorf("get all stats error %s", err.Error())
		return result
	}
	for field, value := range values {
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			continue
		}
		result[field] = v
	}
	return result
}

// Observe adds elapsed to the latency total in one round trip
func (s *RedisStatistic) Observe(elapsed time.Duration) {
	ctx, cancel := s.context()
	defer cancel()
	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.key, LatencyTotalStats, elapsed.Microseconds())
	pipe.HIncrBy(ctx, s.key, LatencyCountStats, 1)
	if _, err := pipe.Exec(ctx); err != nil {
		statsLog.Errorf("observe latency error %s", err.Error())
	}
}

// Reset drops every counter
func (s *RedisStatistic) Reset() error {
	ctx, cancel := s.context()
	defer cancel()
	return s.rdb.Del(ctx, s.key).Err()
}

var _ ripext.StatisticInterface = (*RedisStatistic)(nil)
