package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for cart-level observability.
type Metrics struct {
	// Cart lifecycle
	CartsCreated prometheus.Counter
	CartUpdates  *prometheus.CounterVec // action: add, adjust, remove, clear
	ItemsAdded   prometheus.Counter

	// Merge engine
	MergesCompleted prometheus.Counter
	MergeWarnings   prometheus.Counter

	// Checkout
	CheckoutsCompleted prometheus.Counter
	CheckoutsFailed    *prometheus.CounterVec // reason: empty_cart, provider, internal
	OrderValue         prometheus.Histogram
	OrderCarbon        prometheus.Histogram
}

// NewMetrics creates and registers all cart metrics against the given
// registerer. Pass prometheus.DefaultRegisterer in production and a fresh
// prometheus.NewRegistry() in tests.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "verdana"
	}

	subsystem := "cart"
	factory := promauto.With(reg)

	return &Metrics{
		CartsCreated: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "carts_created_total",
				Help:      "Total carts lazily created by the resolver",
			},
		),
		CartUpdates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "updates_total",
				Help:      "Total cart mutations by action",
			},
			[]string{"action"}, // action: add, adjust, remove, clear
		),
		ItemsAdded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "items_added_total",
				Help:      "Total item units added to carts",
			},
		),
		MergesCompleted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "merges_completed_total",
				Help:      "Total anonymous-to-user cart merges",
			},
		),
		MergeWarnings: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "merge_warnings_total",
				Help:      "Total quantity-cap warnings produced by merges",
			},
		),
		CheckoutsCompleted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkouts_completed_total",
				Help:      "Total successful checkouts",
			},
		),
		CheckoutsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkouts_failed_total",
				Help:      "Total failed checkouts by reason",
			},
			[]string{"reason"}, // reason: empty_cart, provider, internal
		),
		OrderValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value",
				Help:      "Distribution of order totals at checkout",
				Buckets:   prometheus.ExponentialBuckets(1, 2.5, 10),
			},
		),
		OrderCarbon: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_carbon_kg",
				Help:      "Distribution of order carbon footprints in kg CO2e",
				Buckets:   prometheus.ExponentialBuckets(0.1, 2.5, 10),
			},
		),
	}
}
