package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tcprelay",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tcprelay",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	peersConnected = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "tcprelay",
			Subsystem: "relay",
			Name:      "peers_connected",
			Help:      "Peers currently held in the registry.",
		},
		[]string{"node"},
	)
	connections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tcprelay",
			Subsystem: "relay",
			Name:      "connections_total",
			Help:      "Accepted TCP connections by outcome.",
		},
		[]string{"node", "outcome"},
	)
	messagesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tcprelay",
			Subsystem: "relay",
			Name:      "messages_published_total",
			Help:      "Decoded messages pushed to the router.",
		},
		[]string{"node"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tcprelay",
			Subsystem: "relay",
			Name:      "decode_errors_total",
			Help:      "Frames that failed utf-8 decoding.",
		},
		[]string{"node"},
	)
	framesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tcprelay",
			Subsystem: "relay",
			Name:      "frames_written_total",
			Help:      "Frames written to peers during fan-out.",
		},
		[]string{"node"},
	)
	peersDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tcprelay",
			Subsystem: "relay",
			Name:      "peers_dropped_total",
			Help:      "Peers removed from the registry by reason.",
		},
		[]string{"node", "reason"},
	)
	fanoutDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tcprelay",
			Subsystem: "relay",
			Name:      "fanout_duration_seconds",
			Help:      "Time spent writing one message to every peer.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"node"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			peersConnected,
			connections,
			messagesPublished,
			decodeErrors,
			framesWritten,
			peersDropped,
			fanoutDuration,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// Connection outcomes.
const (
	OutcomeAccepted    = "accepted"
	OutcomeRejected    = "rejected"
	OutcomeAcceptError = "accept_error"
)

// Drop reasons.
const (
	ReasonWriteFailed = "write_failed"
	ReasonReadClosed  = "read_closed"
	ReasonShutdown    = "shutdown"
)

func RecordConnection(node, outcome string) {
	RegisterMetrics()
	connections.WithLabelValues(node, outcome).Inc()
}

func SetPeersConnected(node string, n int) {
	RegisterMetrics()
	peersConnected.WithLabelValues(node).Set(float64(n))
}

func RecordPublished(node string) {
	RegisterMetrics()
	messagesPublished.WithLabelValues(node).Inc()
}

func RecordDecodeError(node string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(node).Inc()
}

func RecordPeerDropped(node, reason string) {
	RegisterMetrics()
	peersDropped.WithLabelValues(node, reason).Inc()
}

func RecordFanout(node string, written int, duration time.Duration) {
	RegisterMetrics()
	framesWritten.WithLabelValues(node).Add(float64(written))
	fanoutDuration.WithLabelValues(node).Observe(duration.Seconds())
}
