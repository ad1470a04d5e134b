package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStakingMetricsRecord(t *testing.T) {
	m := Staking()
	if Staking() != m {
		t.Fatalf("expected a process-wide singleton")
	}

	before := testutil.ToFloat64(m.operations.WithLabelValues("stake", "ok"))
	m.ObserveOperation("stake", "ok", time.Millisecond)
	if got := testutil.ToFloat64(m.operations.WithLabelValues("stake", "ok")); got != before+1 {
		t.Fatalf("unexpected operation count: %v", got)
	}

	fees := testutil.ToFloat64(m.feesCollected)
	m.AddFees(50)
	m.AddFees(0)
	if got := testutil.ToFloat64(m.feesCollected); got != fees+50 {
		t.Fatalf("unexpected fee total: %v", got)
	}

	penalties := testutil.ToFloat64(m.penalties.WithLabelValues("emergency"))
	m.AddPenalty("emergency", 250)
	if got := testutil.ToFloat64(m.penalties.WithLabelValues("emergency")); got != penalties+250 {
		t.Fatalf("unexpected penalty total: %v", got)
	}
}

func TestNilStakingMetricsIsSafe(t *testing.T) {
	var m *StakingMetrics
	m.ObserveOperation("stake", "ok", time.Second)
	m.ObserveRejected("1001")
	m.AddFees(1)
	m.AddPenalty("unapplied", 1)
	m.AddStaked(1)
	m.AddUnstaked(1)
	m.AddEvents(1)
}
