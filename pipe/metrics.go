package pipe

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics are the three Prometheus collectors every Run reports
// against, from a deferred call, so runs that return an error are
// reported too: how long a run took, how much device memory its
// arena is holding at the high-water mark, and how many node
// dispatches it issued. Registered against the default registry once
// at package init.
var (
	runDuration       prometheus.Histogram
	arenaPeakRSS      *prometheus.GaugeVec
	nodeDispatchTotal prometheus.Counter
)

func init() {
	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rawpipe_run_duration_seconds",
		Help:    "Wall-clock time spent in one Graph.Run call.",
		Buckets: prometheus.DefBuckets,
	})
	arenaPeakRSS = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rawpipe_arena_peak_rss_bytes",
		Help: "High-water mark of a graph's device arena, in bytes.",
	}, []string{"graph"})
	nodeDispatchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rawpipe_node_dispatch_total",
		Help: "Total number of compute-node dispatches recorded across all runs.",
	})
}

// reportRunMetrics records the three run-level metrics for one
// completed Run invocation. dispatches is the number of nodes actually
// recorded (len(result.TimestampDeltas) when timestamps were queried,
// 0 for a phase-only run that never reached record_cmd_buf).
func (g *Graph) reportRunMetrics(seconds float64, dispatches int) {
	runDuration.Observe(seconds)
	arenaPeakRSS.WithLabelValues(g.name()).Set(float64(g.DeviceArena.PeakRSS()))
	nodeDispatchTotal.Add(float64(dispatches))
}

// name identifies this graph in the arena_peak_rss_bytes label. Graphs
// have no name of their own, so the instance pointer's address stands
// in — stable for the graph's lifetime, which is all a gauge label
// needs.
func (g *Graph) name() string {
	return fmt.Sprintf("%p", g)
}
