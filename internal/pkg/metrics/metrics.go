package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約状態遷移の総数（transition: create_hold/accept/reject/cancel/expire, outcome）
	BookingTransitionsTotal *prometheus.CounterVec

	// シリアライゼーション競合によるトランザクション再試行回数
	TxSerializationRetriesTotal prometheus.Counter

	// スイーパーが期限切れにしたホールド数
	HoldsExpiredTotal prometheus.Counter

	// 冪等性コーディネーターの処理結果（result: executed/replayed/conflict/in_progress）
	IdempotencyRequestsTotal *prometheus.CounterVec

	// 現在アクティブなホールド数
	ActiveHolds prometheus.Gauge
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_transitions_total",
				Help: "Total number of booking state transitions",
			},
			[]string{"transition", "outcome"},
		),
		TxSerializationRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "tx_serialization_retries_total",
				Help: "Total number of transaction retries caused by serialization failures",
			},
		),
		HoldsExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "holds_expired_total",
				Help: "Total number of holds expired by the sweeper",
			},
		),
		IdempotencyRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "idempotency_requests_total",
				Help: "Total number of idempotency coordinator outcomes",
			},
			[]string{"result"},
		),
		ActiveHolds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "active_holds",
				Help: "Current number of pending holds",
			},
		),
	}

	// レジストリに登録
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingTransitionsTotal,
		m.TxSerializationRetriesTotal,
		m.HoldsExpiredTotal,
		m.IdempotencyRequestsTotal,
		m.ActiveHolds,
	)

	return m
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
