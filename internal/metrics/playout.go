// Package metrics exposes Prometheus observations for the playout runtime.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PreloadLead tracks how far ahead of the boundary previews are loaded.
	PreloadLead = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "airwave_preload_lead_seconds",
		Help:    "Lead time between preview load and its target boundary",
		Buckets: []float64{1, 2, 3, 5, 7, 10, 15, 30, 60},
	})

	// SwitchLateness tracks how far past the target boundary a switch completed.
	SwitchLateness = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "airwave_switch_lateness_seconds",
		Help:    "Delay between the target boundary and switch completion",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	// ViolationsTotal counts invariant violations by invariant name.
	ViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airwave_violations_total",
		Help: "Total invariant violations by invariant",
	}, []string{"invariant"})

	// SessionFatalsTotal counts terminal session failures by error kind.
	SessionFatalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "airwave_session_fatals_total",
		Help: "Total terminal session failures by kind",
	}, []string{"kind"})

	// LiveSessions gauges sessions currently in the LIVE boundary state.
	LiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airwave_live_sessions",
		Help: "Sessions currently live",
	})

	// Viewers gauges attached viewers across all channels.
	Viewers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "airwave_viewers",
		Help: "Attached viewers across all channels",
	})

	// DroppedChunksTotal counts fan-out chunks dropped for slow viewers.
	DroppedChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airwave_dropped_chunks_total",
		Help: "Fan-out chunks dropped because a viewer queue was full",
	})

	// SwitchesTotal counts completed boundary switches.
	SwitchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "airwave_switches_total",
		Help: "Completed boundary switches",
	})
)

// ObservePreloadLead records the lead between a preview load and its boundary.
func ObservePreloadLead(lead time.Duration) {
	PreloadLead.Observe(lead.Seconds())
}

// ObserveSwitchLateness records how late a switch completed.
func ObserveSwitchLateness(lateness time.Duration) {
	if lateness < 0 {
		lateness = 0
	}
	SwitchLateness.Observe(lateness.Seconds())
}

// IncViolation records one invariant violation.
func IncViolation(invariant string) {
	ViolationsTotal.WithLabelValues(invariant).Inc()
}

// IncSessionFatal records a terminal session failure.
func IncSessionFatal(kind string) {
	SessionFatalsTotal.WithLabelValues(kind).Inc()
}

// IncDroppedChunk records one dropped fan-out chunk.
func IncDroppedChunk() {
	DroppedChunksTotal.Inc()
}

// IncSwitch records a completed switch.
func IncSwitch() {
	SwitchesTotal.Inc()
}
