package harness

import (
	"fmt"

	"github.com/roach88/mnemos/internal/blob"
	"github.com/roach88/mnemos/internal/card"
	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/ledger"
	"github.com/roach88/mnemos/internal/testutil"
)

// TraceEvent records the outcome of one scenario step. Chain hashes and
// timestamps are deliberately absent: the trace captures behaviour, not
// encoding, so golden files stay stable across wire-format changes.
type TraceEvent struct {
	Op      string   // create | modify | delete
	Target  string   // short name as written in the scenario
	Outcome string   // "ok" or the rejection code
	Cascade []string // keys whose validation status changed, sorted
}

// RunResult is the outcome of executing a scenario.
type RunResult struct {
	Pass   bool
	Errors []string
	Trace  []TraceEvent
	Engine *ledger.Engine[card.Card, card.Action]
}

// Run executes a scenario against a fresh in-memory engine with a
// deterministic clock.
func Run(scenario *Scenario) (*RunResult, error) {
	eng, err := ledger.OpenWith(blob.NewMemory(), card.Model(), ledger.Config{
		Clock: testutil.NewClock(0),
	})
	if err != nil {
		return nil, err
	}

	result := &RunResult{Pass: true, Engine: eng}
	for i, step := range scenario.Steps {
		event, err := executeStep(eng, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		result.Trace = append(result.Trace, event)

		want := step.Expect
		if want == "" {
			want = "ok"
		}
		if event.Outcome != want {
			result.Pass = false
			result.Errors = append(result.Errors,
				fmt.Sprintf("step %d: expected outcome %q, got %q", i, want, event.Outcome))
		}
	}

	for i, assertion := range scenario.Assertions {
		if err := checkAssertion(eng, assertion); err != nil {
			result.Pass = false
			result.Errors = append(result.Errors, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return result, nil
}

func executeStep(eng *ledger.Engine[card.Card, card.Action], step Step) (TraceEvent, error) {
	var res ledger.Result
	var err error
	var event TraceEvent

	switch {
	case step.Create != nil:
		event.Op = "create"
		event.Target = step.Create.Key
		c, buildErr := step.Create.Build()
		if buildErr != nil {
			return TraceEvent{}, buildErr
		}
		res, err = eng.SubmitCreate(c)

	case step.Modify != nil:
		event.Op = "modify"
		event.Target = step.Modify.Key
		key, action, buildErr := step.Modify.Build()
		if buildErr != nil {
			return TraceEvent{}, buildErr
		}
		res, err = eng.SubmitModify(key, action)

	case step.Delete != "":
		event.Op = "delete"
		event.Target = step.Delete
		key, buildErr := ResolveKey(step.Delete)
		if buildErr != nil {
			return TraceEvent{}, buildErr
		}
		res, err = eng.SubmitDelete(key)
	}

	switch {
	case err == nil:
		event.Outcome = "ok"
		cascade := make(ir.KeySet)
		for _, change := range res.Cascade {
			cascade.Add(change.Key)
		}
		for _, k := range cascade.Sorted() {
			event.Cascade = append(event.Cascade, k.String())
		}
	case ledger.IsReject(err):
		event.Outcome = string(ledger.CodeOf(err))
	default:
		return TraceEvent{}, err
	}
	return event, nil
}
