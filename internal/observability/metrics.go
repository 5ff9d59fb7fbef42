package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors exported by streamid. All
// collectors are registered against the default registry at
// construction time; the identify command serves them at /metrics via
// promhttp.Handler(). The pipeline records PacketsRead, SegmentsEmitted,
// IdentificationsMade and ActiveFlows; nothing records into
// CandidatePrunes or NeighborQueryLatency, so they stay at zero.
type Metrics struct {
	PacketsRead        prometheus.Counter
	SegmentsEmitted     prometheus.Counter
	IdentificationsMade prometheus.Counter
	CandidatePrunes     prometheus.Counter
	ActiveFlows         prometheus.Gauge
	NeighborQueryLatency prometheus.Histogram
}

// NewMetrics registers and returns the streamid metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		PacketsRead: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "streamid",
			Name:      "packets_read_total",
			Help:      "Total packets observed by the capture source.",
		}),
		SegmentsEmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "streamid",
			Name:      "segments_emitted_total",
			Help:      "Total traffic segments emitted by the segmenter.",
		}),
		IdentificationsMade: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "streamid",
			Name:      "identifications_total",
			Help:      "Total flows that reached the identified state.",
		}),
		CandidatePrunes: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "streamid",
			Name:      "candidate_prunes_total",
			Help:      "Total candidate-table entries evicted for exceeding the per-stream bound.",
		}),
		ActiveFlows: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: "streamid",
			Name:      "active_flows",
			Help:      "Number of flows currently tracked by the segmenter.",
		}),
		NeighborQueryLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: "streamid",
			Name:      "neighbor_query_seconds",
			Help:      "Latency of k-d tree nearest-neighbor queries.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
