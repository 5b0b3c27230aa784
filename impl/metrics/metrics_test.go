package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// the NOP functions must be callable before initialization
func TestNop(t *testing.T) {
	IncIngests("ok")
	DeltaVersionCount(1)
	IncDeletes()
}

func TestImgmgrMetrics(t *testing.T) {
	addImgmgrMetrics()
	// second call is a no-op rather than a duplicate registration panic
	addImgmgrMetrics()
	IncIngests("ok")
	IncIngests("ok")
	IncIngests("duplicate")
	DeltaVersionCount(2)
	DeltaVersionCount(-1)
	mfs, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.FailNow()
	}
	found := 0
	for _, mf := range mfs {
		switch mf.GetName() {
		case "imgmgr_ingests_total":
			found++
			for _, m := range mf.GetMetric() {
				for _, lbl := range m.GetLabel() {
					if lbl.GetValue() == "ok" && m.GetCounter().GetValue() != 2 {
						t.Fatalf("expected 2 ok ingests")
					}
				}
			}
		case "imgmgr_version_count":
			found++
			if mf.GetMetric()[0].GetGauge().GetValue() != 1 {
				t.Fatalf("expected version count 1")
			}
		}
	}
	if found != 2 {
		t.Fatalf("metrics not registered")
	}
	if cnt, err := testutil.GatherAndCount(prometheus.DefaultGatherer, "imgmgr_deletes_total"); err != nil || cnt != 1 {
		t.Fatalf("deletes counter not registered")
	}
}
