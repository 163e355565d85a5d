package metrics

import (
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func gatherFamily(t *testing.T, name string) *dto.MetricFamily {
	t.Helper()
	families, err := Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func TestObserveSnapshot(t *testing.T) {
	ObserveSnapshot(17, 3*time.Millisecond)

	gauge := gatherFamily(t, "fastkill_processes")
	if gauge == nil {
		t.Fatalf("fastkill_processes not registered")
	}
	if got := gauge.GetMetric()[0].GetGauge().GetValue(); got != 17 {
		t.Fatalf("process gauge = %v, want 17", got)
	}

	hist := gatherFamily(t, "fastkill_snapshot_duration_seconds")
	if hist == nil {
		t.Fatalf("fastkill_snapshot_duration_seconds not registered")
	}
	if got := hist.GetMetric()[0].GetHistogram().GetSampleCount(); got < 1 {
		t.Fatalf("histogram sample count = %d, want at least 1", got)
	}
}

func TestIncSignalLabels(t *testing.T) {
	IncSignal("SIGTERM", "ok")
	IncSignal("SIGTERM", "ok")
	IncSignal("SIGKILL", "denied")
	IncSignal("", "error")

	family := gatherFamily(t, "fastkill_signals_total")
	if family == nil {
		t.Fatalf("fastkill_signals_total not registered")
	}

	counts := map[string]float64{}
	for _, metric := range family.GetMetric() {
		var signal, outcome string
		for _, label := range metric.GetLabel() {
			switch label.GetName() {
			case "signal":
				signal = label.GetValue()
			case "outcome":
				outcome = label.GetValue()
			}
		}
		counts[signal+"/"+outcome] = metric.GetCounter().GetValue()
	}

	if counts["SIGTERM/ok"] < 2 {
		t.Fatalf("SIGTERM/ok = %v, want at least 2", counts["SIGTERM/ok"])
	}
	if counts["SIGKILL/denied"] < 1 {
		t.Fatalf("SIGKILL/denied = %v, want at least 1", counts["SIGKILL/denied"])
	}
	if counts["unknown/error"] < 1 {
		t.Fatalf("empty signal should be counted as unknown, got %v", counts)
	}
}

func TestEmitBuildInfo(t *testing.T) {
	EmitBuildInfo()
	EmitBuildInfo() // idempotent

	family := gatherFamily(t, "fastkill_build_info")
	if family == nil {
		t.Fatalf("fastkill_build_info not registered")
	}
	if len(family.GetMetric()) != 1 {
		t.Fatalf("build info should be emitted once, got %d series", len(family.GetMetric()))
	}
	if got := family.GetMetric()[0].GetGauge().GetValue(); got != 1 {
		t.Fatalf("build info value = %v, want 1", got)
	}
}
