package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chestworks/seqpatch/job"
	"github.com/chestworks/seqpatch/patcher"

	"github.com/google/go-cmp/cmp"
)

func gather(t *testing.T, r *Recorder) map[string]float64 {
	t.Helper()
	mfs, err := r.Registry().Gather()
	if err != nil {
		t.Fatal(err)
	}
	res := map[string]float64{}
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			for _, lp := range m.GetLabel() {
				key += "," + lp.GetName() + "=" + lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				res[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				res[key] = m.GetGauge().GetValue()
			}
		}
	}
	return res
}

func TestObserve(t *testing.T) {
	r := NewRecorder()
	r.Observe(&job.Result{
		Method:  "M::a",
		Counter: patcher.Counter{Applied: 1, Total: 2},
		Fired:   map[string]int{"offset": 3, "never": 0},
		Missed:  []string{"never"},
	})
	r.Observe(&job.Result{
		Method:  "M::b",
		Counter: patcher.Counter{Applied: 1, Total: 1},
		Fired:   map[string]int{"offset": 1},
	})
	r.Observe(&job.Result{Method: "M::c", Skipped: true})

	want := map[string]float64{
		"seqpatch_rules_registered_total,method=M::a":         2,
		"seqpatch_rules_registered_total,method=M::b":         1,
		"seqpatch_rules_applied_total,method=M::a":            1,
		"seqpatch_rules_applied_total,method=M::b":            1,
		"seqpatch_rule_firings_total,method=M::a,rule=never":  0,
		"seqpatch_rule_firings_total,method=M::a,rule=offset": 3,
		"seqpatch_rule_firings_total,method=M::b,rule=offset": 1,
		"seqpatch_incomplete_jobs":                            1,
	}
	if diff := cmp.Diff(want, gather(t, r)); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observe(&job.Result{Method: "M::gone", Missing: true, Counter: patcher.Counter{Total: 1}})
	path := filepath.Join(t.TempDir(), "seqpatch.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatal(err)
	}
	d, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range []string{"seqpatch_incomplete_jobs 1", `seqpatch_rules_registered_total{method="M::gone"} 1`} {
		if !strings.Contains(string(d), s) {
			t.Errorf("textfile missing %q:\n%s", s, d)
		}
	}
}
