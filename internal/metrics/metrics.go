// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 結果ラベルの値。
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層、ワーカー、ミドルウェアから利用する。
type MetricsCollector interface {
	RecordBookingCreated()
	RecordNotification(result string)
	RecordNotificationLatency(duration time.Duration)
	RecordPaymentIntent(result string)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	bookingsCreated     prometheus.Counter
	notifications       *prometheus.CounterVec
	notificationLatency prometheus.Histogram
	paymentIntents      *prometheus.CounterVec
	httpStatus          *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		bookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "aircnc_bookings_created_total",
			Help: "作成された予約の合計数",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aircnc_notifications_total",
			Help: "予約通知メールの送信結果別の合計数",
		}, []string{"result"}),
		notificationLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "aircnc_notification_latency_seconds",
			Help:    "予約通知メール送信のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		paymentIntents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aircnc_payment_intents_total",
			Help: "決済承認リクエストの結果別の合計数",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "aircnc_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.bookingsCreated,
		c.notifications,
		c.notificationLatency,
		c.paymentIntents,
		c.httpStatus,
	)

	return c
}

// RecordBookingCreated は予約作成を記録する。
func (c *Collector) RecordBookingCreated() {
	c.bookingsCreated.Inc()
}

// RecordNotification は通知送信の結果を記録する。
func (c *Collector) RecordNotification(result string) {
	c.notifications.WithLabelValues(result).Inc()
}

// RecordNotificationLatency は通知送信のレイテンシを記録する。
func (c *Collector) RecordNotificationLatency(duration time.Duration) {
	c.notificationLatency.Observe(duration.Seconds())
}

// RecordPaymentIntent は決済承認リクエストの結果を記録する。
func (c *Collector) RecordPaymentIntent(result string) {
	c.paymentIntents.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。メトリクス不要なテストや構成で使う。
type Nop struct{}

func (Nop) RecordBookingCreated()                   {}
func (Nop) RecordNotification(string)               {}
func (Nop) RecordNotificationLatency(time.Duration) {}
func (Nop) RecordPaymentIntent(string)              {}
func (Nop) RecordHTTPStatus(int)                    {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
