package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mnemos/internal/card"
	"github.com/roach88/mnemos/internal/testutil"
)

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_RejectsMalformedSteps(t *testing.T) {
	cases := map[string]string{
		"no name": `
steps:
  - create: {key: k1}
`,
		"no steps": `
name: empty
`,
		"two ops in one step": `
name: double
steps:
  - create: {key: k1}
    delete: k2
`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, content))
			assert.Error(t, err)
		})
	}
}

func TestResolveKey(t *testing.T) {
	k, err := ResolveKey("k3")
	require.NoError(t, err)
	assert.Equal(t, testutil.SeqKey(3), k)

	a, err := ResolveKey("a1")
	require.NoError(t, err)
	assert.Equal(t, testutil.SeqKey(1001), a)
	assert.NotEqual(t, k, a)

	literal := testutil.SeqKey(42).String()
	l, err := ResolveKey(literal)
	require.NoError(t, err)
	assert.Equal(t, testutil.SeqKey(42), l)

	_, err = ResolveKey("zz")
	assert.Error(t, err)
}

func TestCardSpec_Build(t *testing.T) {
	spec := CardSpec{
		Key:    "k1",
		Kind:   "class",
		Front:  "person",
		Parent: "k2",
		Attrs: []AttrSpec{
			{ID: "a1", Pattern: "born", Constraint: "time"},
			{ID: "a2", Pattern: "home", Constraint: "instance_of", Class: "k3"},
		},
	}

	c, err := spec.Build()
	require.NoError(t, err)
	assert.Equal(t, card.KindClass, c.Kind)
	require.NotNil(t, c.Parent)
	assert.Equal(t, testutil.SeqKey(2), *c.Parent)
	require.Len(t, c.Attrs, 2)
	assert.Equal(t, card.ConstraintTime, c.Attrs[0].Back.Kind)
	assert.Equal(t, card.ConstraintInstanceOf, c.Attrs[1].Back.Kind)
	assert.Equal(t, testutil.SeqKey(3), c.Attrs[1].Back.Class)

	// Default kind is unfinished.
	minimal, err := (&CardSpec{Key: "k9", Front: "todo"}).Build()
	require.NoError(t, err)
	assert.Equal(t, card.KindUnfinished, minimal.Kind)
}

func TestBackSpec_Build(t *testing.T) {
	text := "hello"
	b, err := (&BackSpec{Text: &text}).build()
	require.NoError(t, err)
	assert.Equal(t, card.TextBack("hello"), b)

	ts := int64(-2866262400)
	b, err = (&BackSpec{Time: &ts}).build()
	require.NoError(t, err)
	assert.Equal(t, card.TimeBack(ts), b)

	b, err = (&BackSpec{Card: "k1"}).build()
	require.NoError(t, err)
	assert.Equal(t, card.CardBack(testutil.SeqKey(1)), b)

	_, err = (&BackSpec{}).build()
	assert.Error(t, err)
}
