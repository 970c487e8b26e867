package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mnemos/internal/testutil"
)

func loadTestScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
	require.NoError(t, err)
	return s
}

func TestScenarios_Golden(t *testing.T) {
	for _, name := range []string{"class_instance", "attribute_inheritance", "weak_links"} {
		t.Run(name, func(t *testing.T) {
			scenario := loadTestScenario(t, name)
			result := RunWithGolden(t, scenario)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_ClassInstanceState(t *testing.T) {
	result, err := Run(loadTestScenario(t, "class_instance"))
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	eng := result.Engine
	k1, k2 := testutil.SeqKey(1), testutil.SeqKey(2)
	assert.True(t, eng.Dependencies(k2).Has(k1))
	assert.True(t, eng.Dependents(k1).Has(k2))
}

func TestRun_ReportsFailedExpectations(t *testing.T) {
	scenario := &Scenario{
		Name: "failing",
		Steps: []Step{
			// Creating the same key twice must reject, but the scenario
			// claims it succeeds.
			{Create: &CardSpec{Key: "k1", Kind: "statement", Front: "x"}},
			{Create: &CardSpec{Key: "k1", Kind: "statement", Front: "x"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "KEY_ALREADY_EXISTS")
}

func TestRun_FailedAssertionReported(t *testing.T) {
	scenario := &Scenario{
		Name:  "bad-assert",
		Steps: []Step{{Create: &CardSpec{Key: "k1", Kind: "statement", Front: "x"}}},
		Assertions: []Assertion{
			{Type: "dependencies", Key: "k1", Expect: yamlList{"k2"}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.NotEmpty(t, result.Errors)
}

func TestLoadScenario_Validation(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "missing.yaml"))
	assert.Error(t, err)
}
