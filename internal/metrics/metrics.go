// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	// RecordVerification はIDトークン検証の結果を記録する。
	// resultは "ok" またはエラーコード。
	RecordVerification(provider, result string)
	// RecordUpsert はプロフィールUPSERTの結果を記録する。
	RecordUpsert(result string)
	RecordUpsertLatency(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	verifications *prometheus.CounterVec
	upserts       *prometheus.CounterVec
	upsertLatency prometheus.Histogram
	httpStatus    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safeai_token_verifications_total",
			Help: "プロバイダ・結果別のIDトークン検証数",
		}, []string{"provider", "result"}),
		upserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safeai_profile_upserts_total",
			Help: "結果別のプロフィールUPSERT数",
		}, []string{"result"}),
		upsertLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "safeai_profile_upsert_latency_seconds",
			Help:    "検証からストア書き込みまでのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safeai_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.verifications,
		c.upserts,
		c.upsertLatency,
		c.httpStatus,
	)

	return c
}

// RecordVerification はIDトークン検証の結果を記録する。
func (c *Collector) RecordVerification(provider, result string) {
	c.verifications.WithLabelValues(provider, result).Inc()
}

// RecordUpsert はプロフィールUPSERTの結果を記録する。
func (c *Collector) RecordUpsert(result string) {
	c.upserts.WithLabelValues(result).Inc()
}

// RecordUpsertLatency はUPSERT処理全体のレイテンシを記録する。
func (c *Collector) RecordUpsertLatency(duration time.Duration) {
	c.upsertLatency.Observe(duration.Seconds())
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
var _ MetricsCollector = (*Collector)(nil)
