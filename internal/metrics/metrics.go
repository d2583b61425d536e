// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス収集のインターフェース。
// 外部APIクライアント、集約サービス、トークンキャッシュから利用する。
type Recorder interface {
	RecordUpstreamCall(api string, statusCode int, err error)
	RecordUpstreamLatency(api string, duration time.Duration)
	RecordSectionFallback(section string)
	RecordTokenRefresh(api string, ok bool)
	RecordBreakerState(api string, state int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	upstreamCalls   *prometheus.CounterVec
	upstreamStatus  *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	sectionFallback *prometheus.CounterVec
	tokenRefresh    *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		upstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enthub_upstream_calls_total",
			Help: "外部API呼び出しの合計数（結果別）",
		}, []string{"api", "outcome"}),
		upstreamStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enthub_upstream_http_status_total",
			Help: "外部APIのHTTPステータスコード別レスポンス数",
		}, []string{"api", "status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "enthub_upstream_latency_seconds",
			Help:    "外部API呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"api"}),
		sectionFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enthub_section_fallback_total",
			Help: "集約レスポンスで既定値に置き換えたセクション数",
		}, []string{"section"}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "enthub_token_refresh_total",
			Help: "アクセストークン再取得の合計数",
		}, []string{"api", "outcome"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "enthub_upstream_breaker_state",
			Help: "サーキットブレーカーの状態（0=closed, 1=half-open, 2=open）",
		}, []string{"api"}),
	}

	reg.MustRegister(
		c.upstreamCalls,
		c.upstreamStatus,
		c.upstreamLatency,
		c.sectionFallback,
		c.tokenRefresh,
		c.breakerState,
	)

	return c
}

// RecordUpstreamCall は外部API呼び出しの結果を記録する。
// statusCode が0の場合（トランスポートエラー等）はステータス別カウンタを更新しない。
func (c *Collector) RecordUpstreamCall(api string, statusCode int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	c.upstreamCalls.WithLabelValues(api, outcome).Inc()
	if statusCode > 0 {
		c.upstreamStatus.WithLabelValues(api, strconv.Itoa(statusCode)).Inc()
	}
}

// RecordUpstreamLatency は外部API呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(api string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(api).Observe(duration.Seconds())
}

// RecordSectionFallback はセクションのフォールバックを記録する。
func (c *Collector) RecordSectionFallback(section string) {
	c.sectionFallback.WithLabelValues(section).Inc()
}

// RecordTokenRefresh はトークン再取得を記録する。
func (c *Collector) RecordTokenRefresh(api string, ok bool) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	c.tokenRefresh.WithLabelValues(api, outcome).Inc()
}

// RecordBreakerState はサーキットブレーカーの状態を記録する。
func (c *Collector) RecordBreakerState(api string, state int) {
	c.breakerState.WithLabelValues(api).Set(float64(state))
}

// Nop は何も記録しないRecorder。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordUpstreamCall(string, int, error)        {}
func (Nop) RecordUpstreamLatency(string, time.Duration) {}
func (Nop) RecordSectionFallback(string)                {}
func (Nop) RecordTokenRefresh(string, bool)             {}
func (Nop) RecordBreakerState(string, int)              {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

var (
	_ Recorder = (*Collector)(nil)
	_ Recorder = Nop{}
)
