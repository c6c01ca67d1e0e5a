package telemetry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetrics_Snapshot(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordCall("SERPER", true, 120*time.Millisecond)
	m.RecordCall("SERPER", false, 80*time.Millisecond)
	m.RecordRotation("SERPER")
	m.RecordRotation("SERPER")
	m.RecordCall("EXA", true, 50*time.Millisecond)

	snap := m.Snapshot()
	serper := snap["SERPER"]
	if serper.Calls != 2 || serper.Successes != 1 || serper.Rotations != 2 {
		t.Errorf("SERPER stats = %+v", serper)
	}
	if got := serper.SuccessRate(); got != 0.5 {
		t.Errorf("SuccessRate = %v, want 0.5", got)
	}
	if snap["EXA"].SuccessRate() != 1 {
		t.Errorf("EXA rate = %v, want 1", snap["EXA"].SuccessRate())
	}
	if (CallStats{}).SuccessRate() != 0 {
		t.Error("idle provider rate should be 0")
	}
}

func TestMetrics_SnapshotIsCopy(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordCall("X", true, time.Millisecond)

	snap := m.Snapshot()
	s := snap["X"]
	s.Calls = 99

	if m.Snapshot()["X"].Calls != 1 {
		t.Error("snapshot mutation leaked into the metrics store")
	}
}
