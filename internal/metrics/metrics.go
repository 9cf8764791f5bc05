package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Computation lifecycle metrics
	// ============================================
	ComputationsQueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_computations_queued_total",
			Help: "Total number of confidential computations queued",
		},
		[]string{"transform"},
	)

	ComputationsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_computations_completed_total",
			Help: "Total number of confidential computations completed",
		},
		[]string{"transform"},
	)

	ComputationsAborted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_computations_aborted_total",
			Help: "Total number of confidential computations aborted by the fabric",
		},
		[]string{"transform"},
	)

	CallbacksRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_callbacks_rejected_total",
			Help: "Total number of callbacks rejected (duplicate or unknown computation ID)",
		},
		[]string{"reason"},
	)

	ValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_validation_failures_total",
			Help: "Total number of submissions rejected before queuing",
		},
		[]string{"transform", "rule"},
	)

	ComputationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_computation_duration_seconds",
			Help:    "Queued-to-terminal duration of confidential computations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"transform"},
	)

	// ============================================
	// Reserve ledger metrics
	// ============================================
	ReserveTotalMinted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_reserve_total_minted",
		Help: "Total amount minted against the reserve",
	})

	ReserveTotalBurned = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_reserve_total_burned",
		Help: "Total amount burned",
	})

	ReserveAvailableCapacity = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_reserve_available_capacity",
		Help: "Remaining mint capacity against the reserve",
	})

	ReservePaused = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_reserve_paused",
		Help: "Bridge pause flag (1=paused, 0=active)",
	})

	MintRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_mint_rejections_total",
			Help: "Total number of mint attempts rejected by the reserve ledger",
		},
		[]string{"reason"},
	)

	// ============================================
	// NATS connection metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bridge_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_events_published_total",
			Help: "Total number of lifecycle events published",
		},
		[]string{"event_type"},
	)

	EventsPublishFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_events_publish_failed_total",
			Help: "Total number of lifecycle events that failed to publish",
		},
		[]string{"event_type"},
	)
)
