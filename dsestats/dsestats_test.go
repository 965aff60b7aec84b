package dsestats_test

import (
	"strings"
	"testing"

	"github.com/dsebus/dsebus/dsestats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorObserveCycleIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := dsestats.New(reg)

	c.ObserveCycle()
	c.ObserveCycle()
	if got := testutil.ToFloat64(c.Cycles); got != 2 {
		t.Fatalf("Cycles = %v, want 2", got)
	}
}

func TestCollectorObserveQuorumLabelsByChannel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := dsestats.New(reg)

	c.ObserveQuorum("data", 3)
	if got := testutil.ToFloat64(c.Quorum.WithLabelValues("data")); got != 3 {
		t.Fatalf("Quorum[data] = %v, want 3", got)
	}
}

func TestCollectorGatherIncludesAllMetricFamilies(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := dsestats.New(reg)
	c.ObserveCycle()
	c.ObserveDeltaBytes(128)
	c.ObserveRetry()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, mf := range mfs {
		names = append(names, mf.GetName())
	}
	joined := strings.Join(names, ",")
	for _, want := range []string{"dsebus_cycles_total", "dsebus_delta_payload_bytes", "dsebus_transport_retries_total"} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing metric family %q in %v", want, names)
		}
	}
}
