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

package metric

import (
	"context"
	"runtime/debug"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"
	"github.com/wetrycode/ripext"
)

var metricLog *logrus.Entry = ripext.GetLogger("metric")

const (
	// ServerKey influxdb 服务地址
	ServerKey string = "influxdb.server"
	// TokenKey influxdb api token
	TokenKey string = "influxdb.token"
	// BucketKey influxdb bucket 名称
	BucketKey string = "influxdb.bucket"
	// OrgKey influxdb org 名称
	OrgKey string = "influxdb.org"
	// IntervalKey 采集周期,单位秒
	IntervalKey string = "influxdb.interval"
)

// NewInfluxdb 构建influxdb 客户端
func NewInfluxdb(serverURL string, token string, bucket string, org string) (influxdb2.Client, api.WriteAPIBlocking) {
	client := influxdb2.NewClientWithOptions(serverURL, token, influxdb2.DefaultOptions().SetUseGZip(true).SetMaxRetries(3))
	return client, client.WriteAPIBlocking(org, bucket)
}

// Collector pushes a snapshot of the extension counters to influxdb
type Collector struct {
	client      influxdb2.Client
	write       api.WriteAPIBlocking
	statistic   ripext.StatisticInterface
	measurement string
	interval    time.Duration
}

// CollectorOption Collector可选参数
type CollectorOption func(c *Collector)

// CollectorWithMeasurement measurement the points are written to
func CollectorWithMeasurement(measurement string) CollectorOption {
	return func(c *Collector) {
		c.measurement = measurement
	}
}

// CollectorWithInterval period between two snapshots
func CollectorWithInterval(interval time.Duration) CollectorOption {
	return func(c *Collector) {
		c.interval = interval
	}
}

// NewCollector 构建采集器
func NewCollector(serverURL string, token string, bucket string, org string, statistic ripext.StatisticInterface, opts ...CollectorOption) *Collector {
	client, write := NewInfluxdb(serverURL, token, bucket, org)
	c := &Collector{
		client:      client,
		write:       write,
		statistic:   statistic,
		measurement: "ripext",
		interval:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewCollectorFromSettings collector configured by the influxdb section of settings.yaml
func NewCollectorFromSettings(statistic ripext.StatisticInterface, opts ...CollectorOption) *Collector {
	config := ripext.Config
	if seconds := config.GetInt(IntervalKey); seconds > 0 {
		opts = append([]CollectorOption{CollectorWithInterval(time.Duration(seconds) * time.Second)}, opts...)
	}
	return NewCollector(config.GetString(ServerKey), config.GetString(TokenKey), config.GetString(BucketKey), config.GetString(OrgKey), statistic, opts...)
}

// Collect writes every counter as one point
func (c *Collector) Collect(ctx context.Context) (err error) {
	defer func() {
		if p := recover(); p != nil {
			metricLog.Errorf("collect metrics panic %v\n%s", p, debug.Stack())
		}
	}()
	stats := c.statistic.GetAllStats()
	if len(stats) == 0 {
		return nil
	}
	p := influxdb2.NewPointWithMeasurement(c.measurement).
		AddTag("process", ripext.ProcessId).
		SetTime(time.Now())
	for key, value := range stats {
		p.AddField(key, value)
	}
	metricLog.Debugf("collected %d metrics", len(stats))
	return c.write.WritePoint(ctx, p)
}

// Start collects every interval until ctx is done, then pushes a final snapshot
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.Collect(ctx); err != nil {
				metricLog.Errorf("write metrics error %s", err.Error())
			}
		case <-ctx.Done():
			if err := c.Collect(context.Background()); err != nil {
				metricLog.Errorf("write metrics error %s", err.Error())
			}
			return
		}
	}
}

// Close releases the influxdb client
func (c *Collector) Close() {
	c.client.Close()
}
