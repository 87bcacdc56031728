package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Settlement metrics
	SettlementsCreated   prometheus.Counter
	SettlementsFinalized prometheus.Counter
	SettlementsVoided    prometheus.Counter
	SharesAdjusted       prometheus.Counter
	SettledAmount        prometheus.Histogram
	SettlementErrors     *prometheus.CounterVec

	// Calculation metrics
	CalculationDuration prometheus.Histogram
	CalculationWarnings *prometheus.CounterVec

	// Meter metrics
	ReadingsRecorded prometheus.Counter
	MeterExchanges   prometheus.Counter

	// Database metrics
	DBRetries *prometheus.CounterVec

	// Outbox metrics
	EventsPublished *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits *prometheus.CounterVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		SettlementsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "rentledger_settlements_created_total",
			Help: "Total number of draft settlements created",
		}),
		SettlementsFinalized: f.NewCounter(prometheus.CounterOpts{
			Name: "rentledger_settlements_finalized_total",
			Help: "Total number of settlements finalized",
		}),
		SettlementsVoided: f.NewCounter(prometheus.CounterOpts{
			Name: "rentledger_settlements_voided_total",
			Help: "Total number of settlements voided",
		}),
		SharesAdjusted: f.NewCounter(prometheus.CounterOpts{
			Name: "rentledger_shares_adjusted_total",
			Help: "Total number of owner share adjustments",
		}),
		SettledAmount: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rentledger_settled_amount",
			Help:    "Total amount of finalized settlements",
			Buckets: []float64{10, 50, 100, 250, 500, 1000, 5000},
		}),
		SettlementErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentledger_settlement_errors_total",
				Help: "Total number of settlement errors by kind",
			},
			[]string{"operation", "kind"},
		),

		CalculationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rentledger_calculation_duration_seconds",
			Help:    "Duration of settlement calculations including input loading",
			Buckets: prometheus.DefBuckets,
		}),
		CalculationWarnings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentledger_calculation_warnings_total",
				Help: "Total calculation warnings by code",
			},
			[]string{"code"},
		),

		ReadingsRecorded: f.NewCounter(prometheus.CounterOpts{
			Name: "rentledger_meter_readings_recorded_total",
			Help: "Total number of meter readings recorded",
		}),
		MeterExchanges: f.NewCounter(prometheus.CounterOpts{
			Name: "rentledger_meter_exchanges_total",
			Help: "Total number of meter exchanges",
		}),

		DBRetries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentledger_db_retries_total",
				Help: "Total transaction retries by PostgreSQL error code",
			},
			[]string{"code"},
		),

		EventsPublished: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentledger_outbox_events_published_total",
				Help: "Total outbox events handed to the publisher by result",
			},
			[]string{"event_type", "result"},
		),

		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentledger_http_requests_total",
				Help: "Total HTTP requests by route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rentledger_http_request_duration_seconds",
				Help:    "HTTP request latency by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		RateLimitHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rentledger_rate_limit_hits_total",
				Help: "Total rate limit hits",
			},
			[]string{"ip"},
		),
	}
}

// ObserveError counts a failed operation by error kind.
func (m *Metrics) ObserveError(operation, kind string) {
	if m == nil {
		return
	}
	m.SettlementErrors.WithLabelValues(operation, kind).Inc()
}
