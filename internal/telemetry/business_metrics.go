package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for storefront observability.
type BusinessMetrics struct {
	// Cart
	CartItemsAdded *prometheus.CounterVec
	CartCleared    prometheus.Counter

	// Orders
	OrdersCreated      *prometheus.CounterVec
	OrderValue         prometheus.Histogram
	OrderItemCount     prometheus.Histogram
	OrderStatusChanges *prometheus.CounterVec
	OrdersDelivered    prometheus.Counter

	// Payments
	PaymentsInitiated *prometheus.CounterVec
	PaymentsResolved  *prometheus.CounterVec
	RevenueCollected  *prometheus.CounterVec
	GatewayLatency    *prometheus.HistogramVec

	// Catalog
	ReviewsSubmitted prometheus.Counter

	// Auth & accounts
	Signups     prometheus.Counter
	Logins      prometheus.Counter
	LoginFailed prometheus.Counter

	// Events
	EventsPublished *prometheus.CounterVec
	EventsFailed    *prometheus.CounterVec
}

// NewBusinessMetrics creates and registers all business metrics on reg.
func NewBusinessMetrics(namespace string, reg prometheus.Registerer) *BusinessMetrics {
	if namespace == "" {
		namespace = "basket"
	}

	subsystem := "business"
	factory := promauto.With(reg)

	m := &BusinessMetrics{
		// =======================================================================
		// Cart
		// =======================================================================
		CartItemsAdded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_added_total",
				Help:      "Total add to cart actions",
			},
			[]string{"merged"}, // merged: true when an existing line was incremented
		),
		CartCleared: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_cleared_total",
				Help:      "Total cart clears",
			},
		),

		// =======================================================================
		// Orders
		// =======================================================================
		OrdersCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Total orders placed",
			},
			[]string{"payment_method"}, // payment_method: COD, Online
		),
		OrderValue: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value",
				Help:      "Order total in major currency units",
				Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
			},
		),
		OrderItemCount: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_item_count",
				Help:      "Number of line items per order",
				Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
			},
		),
		OrderStatusChanges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_status_changes_total",
				Help:      "Total order status transitions by target status",
			},
			[]string{"status"},
		),
		OrdersDelivered: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_delivered_total",
				Help:      "Total orders marked delivered",
			},
		),

		// =======================================================================
		// Payments
		// =======================================================================
		PaymentsInitiated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payments_initiated_total",
				Help:      "Total payment attempts opened",
			},
			[]string{"method"},
		),
		PaymentsResolved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payments_resolved_total",
				Help:      "Total payments resolved by outcome",
			},
			[]string{"gateway", "status"}, // gateway: simulated, stripe, forced
		),
		RevenueCollected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "revenue_collected",
				Help:      "Total completed payment amount in major currency units",
			},
			[]string{"currency"},
		),
		GatewayLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "gateway_duration_seconds",
				Help:      "Payment gateway call duration",
				Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"gateway", "operation"}, // operation: initiate, resolve
		),

		// =======================================================================
		// Catalog
		// =======================================================================
		ReviewsSubmitted: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "reviews_submitted_total",
				Help:      "Total product reviews submitted",
			},
		),

		// =======================================================================
		// Auth & Accounts
		// =======================================================================
		Signups: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "signups_total",
				Help:      "Total account registrations",
			},
		),
		Logins: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "logins_total",
				Help:      "Total successful logins",
			},
		),
		LoginFailed: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "login_failed_total",
				Help:      "Total failed login attempts",
			},
		),

		// =======================================================================
		// Events
		// =======================================================================
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_published_total",
				Help:      "Total lifecycle events published",
			},
			[]string{"type"},
		),
		EventsFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_failed_total",
				Help:      "Total lifecycle events that could not be published",
			},
			[]string{"type"},
		),
	}

	return m
}

// Global instance for easy access from services
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace, prometheus.DefaultRegisterer)
	return Business
}
