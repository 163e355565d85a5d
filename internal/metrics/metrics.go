package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	processCount = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fastkill",
		Name:      "processes",
		Help:      "Number of process records in the most recent snapshot.",
	})

	snapshotDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fastkill",
		Name:      "snapshot_duration_seconds",
		Help:      "Duration of process table enumerations in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	signalsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fastkill",
		Name:      "signals_total",
		Help:      "Signals delivered, labelled by signal name and outcome.",
	}, []string{"signal", "outcome"})

	refreshErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "fastkill",
		Name:      "refresh_errors_total",
		Help:      "Total number of failed snapshot refreshes.",
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "fastkill",
		Name:      "build_info",
		Help:      "Build metadata for the running fastkill binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(processCount, snapshotDuration, signalsTotal, refreshErrors, buildInfo)
}

// Registry returns the Prometheus registry containing all fastkill metrics.
func Registry() *prometheus.Registry {
	return registry
}

// ObserveSnapshot records the size and duration of a completed snapshot.
func ObserveSnapshot(records int, elapsed time.Duration) {
	processCount.Set(float64(records))
	snapshotDuration.Observe(elapsed.Seconds())
}

// IncSignal counts one signal delivery attempt.
// Outcome is one of ok, not_found, denied or error.
func IncSignal(signal, outcome string) {
	if signal == "" {
		signal = "unknown"
	}
	signalsTotal.WithLabelValues(signal, outcome).Inc()
}

// IncRefreshError counts a failed snapshot refresh.
func IncRefreshError() {
	refreshErrors.Inc()
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
