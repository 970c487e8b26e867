package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/mnemos/internal/ir"
)

// RunWithGolden executes a scenario and compares its trace against
// testdata/golden/{name}.golden.
//
// To regenerate golden files:
//
//	go test ./internal/harness -update
//
// The snapshot is canonical JSON of the behavioural trace - no chain
// hashes, no timestamps - so it is stable across wire-format changes and
// can be reviewed by hand.
func RunWithGolden(t *testing.T, scenario *Scenario) *RunResult {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		t.Fatalf("run scenario %s: %v", scenario.Name, err)
	}

	trace := make(ir.Arr, len(result.Trace))
	for i, event := range result.Trace {
		obj := ir.Obj{
			"op":      ir.Str(event.Op),
			"outcome": ir.Str(event.Outcome),
			"target":  ir.Str(event.Target),
		}
		if len(event.Cascade) > 0 {
			cascade := make(ir.Arr, len(event.Cascade))
			for j, key := range event.Cascade {
				cascade[j] = ir.Str(key)
			}
			obj["cascade"] = cascade
		}
		trace[i] = obj
	}

	snapshot, err := ir.MarshalCanonical(ir.Obj{
		"scenario": ir.Str(scenario.Name),
		"trace":    trace,
	})
	if err != nil {
		t.Fatalf("marshal trace: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, snapshot)
	return result
}
