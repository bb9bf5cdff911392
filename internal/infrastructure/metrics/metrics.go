package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Settlement metrics
	DepositsRecorded    *prometheus.CounterVec
	WithdrawalsRecorded *prometheus.CounterVec
	OperationAmount     *prometheus.HistogramVec
	OperationDuration   prometheus.Histogram

	// Bank state metrics
	TotalDeposited    prometheus.Gauge
	RemainingCapacity prometheus.Gauge

	// Oracle metrics
	OracleRequests prometheus.Counter
	OracleFailures *prometheus.CounterVec
	OracleSwaps    prometheus.Counter

	// Custody gateway metrics
	GatewayRequests *prometheus.CounterVec
	GatewayFailures *prometheus.CounterVec

	// Outbox metrics
	EventsPublished prometheus.Counter
	PublishErrors   prometheus.Counter
}

// New creates and registers all Prometheus metrics
func New() *Metrics {
	return &Metrics{
		// Settlement metrics
		DepositsRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenbank_deposits_recorded_total",
				Help: "Total number of recorded deposits by asset",
			},
			[]string{"asset"},
		),
		WithdrawalsRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenbank_withdrawals_recorded_total",
				Help: "Total number of recorded withdrawals by asset",
			},
			[]string{"asset"},
		),
		OperationAmount: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tokenbank_operation_amount",
				Help:    "Operation amounts in base units by asset",
				Buckets: []float64{1e6, 1e9, 1e12, 1e15, 1e18, 1e21},
			},
			[]string{"asset"},
		),
		OperationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tokenbank_operation_duration_seconds",
			Help:    "Duration of settlement transitions",
			Buckets: prometheus.DefBuckets,
		}),

		// Bank state metrics
		TotalDeposited: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tokenbank_total_deposited",
			Help: "Native-equivalent value currently deposited",
		}),
		RemainingCapacity: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tokenbank_remaining_capacity",
			Help: "Native-equivalent value the bank can still accept",
		}),

		// Oracle metrics
		OracleRequests: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenbank_oracle_requests_total",
			Help: "Total price readings requested from the oracle feed",
		}),
		OracleFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenbank_oracle_failures_total",
				Help: "Total rejected price readings by reason",
			},
			[]string{"reason"},
		),
		OracleSwaps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenbank_oracle_swaps_total",
			Help: "Total successful oracle feed replacements",
		}),

		// Custody gateway metrics
		GatewayRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenbank_gateway_requests_total",
				Help: "Total custody gateway calls by operation",
			},
			[]string{"operation"},
		),
		GatewayFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tokenbank_gateway_failures_total",
				Help: "Total failed custody gateway calls by operation",
			},
			[]string{"operation"},
		),

		// Outbox metrics
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenbank_events_published_total",
			Help: "Total outbox events delivered to subscribers",
		}),
		PublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tokenbank_publish_errors_total",
			Help: "Total outbox publish attempts that failed",
		}),
	}
}
