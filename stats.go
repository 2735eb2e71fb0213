package ripext

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/shopspring/decimal"
)

const (
	// RequestStats 提交的请求总数
	RequestStats string = "requests"
	// SessionFailStats 会话创建失败总数
	SessionFailStats string = "session_fail"
	// TransferFailStats 传输失败总数
	TransferFailStats string = "transfer_fail"
	// CompletionStats 进入完成队列的结果总数
	CompletionStats string = "completions"
	// DispatchedStats 已经回调的结果总数
	DispatchedStats string = "dispatched"
	// NoDocumentStats 响应体不是json的结果总数
	NoDocumentStats string = "no_document"
	// DiscardedStats 关闭时未回调就丢弃的结果总数
	DiscardedStats string = "discarded"
)

// StatisticInterface 数据统计组件接口
type StatisticInterface interface {
	// Incr 新增一个指标值
	Incr(metric string)
	// Add 指标增加delta
	Add(metric string, delta uint64)
	// Get 获取某个指标的数值
	Get(metric string) uint64
	// GetAllStats 所有已经出现过的指标
	GetAllStats() map[string]uint64
	// Observe 记录一次传输耗时
	Observe(elapsed time.Duration)
}

// LatencySummary transfer latency percentiles in milliseconds
type LatencySummary struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P99   float64 `json:"p99"`
	Max   float64 `json:"max"`
}

// DefaultStatistic in process counters
type DefaultStatistic struct {
	metrics sync.Map
	mu      sync.Mutex
	latency *hdrhistogram.Histogram
}

// NewDefaultStatistic 默认统计数据组件构造函数
func NewDefaultStatistic() *DefaultStatistic {
	s := &DefaultStatistic{
		// 1 microsecond .. 1 hour, 3 significant figures
		latency: hdrhistogram.New(1, int64(time.Hour/time.Microsecond), 3),
	}
	for _, metric := range []string{RequestStats, SessionFailStats, TransferFailStats, CompletionStats, DispatchedStats, NoDocumentStats, DiscardedStats} {
		s.metrics.Store(metric, new(uint64))
	}
	return s
}

func (s *DefaultStatistic) counter(metric string) *uint64 {
	v, _ := s.metrics.LoadOrStore(metric, new(uint64))
	return v.(*uint64)
}

func (s *DefaultStatistic) Incr(metric string) {
	s.Add(metric, 1)
}

func (s *DefaultStatistic) Add(metric string, delta uint64) {
	atomic.AddUint64(s.counter(metric), delta)
}

func (s *DefaultStatistic) Get(metric string) uint64 {
	v, ok := s.metrics.Load(metric)
	if !ok {
		return 0
	}
	return atomic.LoadUint64(v.(*uint64))
}

func (s *DefaultStatistic) GetAllStats() map[string]uint64 {
	result := make(map[string]uint64)
	s.metrics.Range(func(key, value any) bool {
		result[key.(string)] = atomic.LoadUint64(value.(*uint64))
		return true
	})
	return result
}

func (s *DefaultStatistic) Observe(elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	us := elapsed.Microseconds()
	if us < 1 {
		us = 1
	}
	_ = s.latency.RecordValue(us)
}

// Latency percentiles of the observed transfers
func (s *DefaultStatistic) Latency() LatencySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return LatencySummary{
		Count: s.latency.TotalCount(),
		Mean:  microsToMillis(s.latency.Mean()),
		P50:   microsToMillis(float64(s.latency.ValueAtQuantile(50))),
		P99:   microsToMillis(float64(s.latency.ValueAtQuantile(99))),
		Max:   microsToMillis(float64(s.latency.Max())),
	}
}

func microsToMillis(us float64) float64 {
	return decimal.NewFromFloat(us).Div(decimal.NewFromInt(1000)).Round(2).InexactFloat64()
}

// StatusMetric metric name counting responses with code
func StatusMetric(code int) string {
	return "status_" + strconv.Itoa(code)
}
