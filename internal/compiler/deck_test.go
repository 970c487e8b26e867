package compiler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/queryir"
)

func compileOne(t *testing.T, src string) map[string]queryir.Expr {
	t.Helper()
	decks, err := CompileSource(src)
	require.NoError(t, err)
	out := make(map[string]queryir.Expr, len(decks))
	for _, d := range decks {
		out[d.Name] = d.Expr
	}
	return out
}

func TestCompile_Leaves(t *testing.T) {
	key := ir.NewKey()
	src := fmt.Sprintf(`decks: {
	everything: {all: true}
	classes: {property: {name: "kind", value: "class"}}
	pinned: {explicit: [%q]}
}`, key.String())

	decks := compileOne(t, src)
	assert.Equal(t, queryir.All{}, decks["everything"])
	assert.Equal(t, queryir.Property{Name: "kind", Value: "class"}, decks["classes"])
	assert.Equal(t, queryir.Explicit{Keys: []ir.Key{key}}, decks["pinned"])
}

func TestCompile_Reference(t *testing.T) {
	key := ir.NewKey()
	src := fmt.Sprintf(`decks: {
	instances: {reference: {
		kind:      "class_of_instance"
		direction: "incoming"
		depth:     "transitive"
		seed: {explicit: [%q]}
	}}
}`, key.String())

	decks := compileOne(t, src)
	want := queryir.Reference{
		Kind:      "class_of_instance",
		Direction: queryir.Incoming,
		Depth:     queryir.Transitive,
		Seed:      queryir.Explicit{Keys: []ir.Key{key}},
	}
	assert.Equal(t, want, decks["instances"])
}

func TestCompile_AlgebraAndDeckRefs(t *testing.T) {
	src := `decks: {
	classes: {property: {name: "kind", value: "class"}}
	suspended: {property: {name: "suspended", value: "true"}}
	active: {difference: {
		a: {deck: "classes"}
		b: {deck: "suspended"}
	}}
	either: {union: [{deck: "active"}, {complement: {all: true}}]}
}`

	decks := compileOne(t, src)
	active, ok := decks["active"].(queryir.Difference)
	require.True(t, ok)
	assert.Equal(t, queryir.Property{Name: "kind", Value: "class"}, active.A)
	assert.Equal(t, queryir.Property{Name: "suspended", Value: "true"}, active.B)

	either, ok := decks["either"].(queryir.Union)
	require.True(t, ok)
	require.Len(t, either.Operands, 2)
	assert.Equal(t, active, either.Operands[0])
}

func TestCompile_UnknownDeckRef(t *testing.T) {
	_, err := CompileSource(`decks: {broken: {deck: "nowhere"}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown deck")
}

func TestCompile_DeckCycle(t *testing.T) {
	_, err := CompileSource(`decks: {
	a: {deck: "b"}
	b: {deck: "a"}
}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")

	_, err = CompileSource(`decks: {self: {deck: "self"}}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestCompile_Rejects(t *testing.T) {
	cases := map[string]string{
		"no decks":        `other: 1`,
		"empty decks":     `decks: {}`,
		"two node fields": `decks: {bad: {all: true, deck: "x"}}`,
		"no node field":   `decks: {bad: {}}`,
		"bad key":         `decks: {bad: {explicit: ["not-a-key"]}}`,
		"bad direction":   `decks: {bad: {reference: {direction: "up", depth: "one", seed: {all: true}}}}`,
		"empty union":     `decks: {bad: {union: []}}`,
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := CompileSource(src)
			assert.Error(t, err)
		})
	}
}
