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
// サービス層とミドルウェアから利用する。
type Recorder interface {
	RecordProviderCall(operation string, success bool)
	RecordSynthesisLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	providerCalls    *prometheus.CounterVec
	synthesisLatency prometheus.Histogram
	httpStatus       *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceman_provider_call_total",
			Help: "外部プロバイダ呼び出しの合計数（操作・成否別）",
		}, []string{"operation", "success"}),
		synthesisLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "voiceman_synthesis_latency_seconds",
			Help:    "音声合成のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voiceman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.providerCalls,
		c.synthesisLatency,
		c.httpStatus,
	)

	return c
}

// RecordProviderCall はプロバイダ呼び出しを記録する。
func (c *Collector) RecordProviderCall(operation string, success bool) {
	c.providerCalls.WithLabelValues(operation, strconv.FormatBool(success)).Inc()
}

// RecordSynthesisLatency は音声合成のレイテンシを記録する。
func (c *Collector) RecordSynthesisLatency(duration time.Duration) {
	c.synthesisLatency.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ Recorder = (*Collector)(nil)
