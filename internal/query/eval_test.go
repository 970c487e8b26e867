package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/queryir"
)

// fakeIndex is an in-memory Index for evaluator tests.
type fakeIndex struct {
	keys  ir.KeySet
	props map[ir.Property]ir.KeySet
	edges map[ir.RefKind]map[ir.Key]ir.KeySet // from -> to, per kind
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		keys:  make(ir.KeySet),
		props: make(map[ir.Property]ir.KeySet),
		edges: make(map[ir.RefKind]map[ir.Key]ir.KeySet),
	}
}

func (f *fakeIndex) addKey(k ir.Key, props ...ir.Property) {
	f.keys.Add(k)
	for _, p := range props {
		if f.props[p] == nil {
			f.props[p] = make(ir.KeySet)
		}
		f.props[p].Add(k)
	}
}

func (f *fakeIndex) addEdge(kind ir.RefKind, from, to ir.Key) {
	if f.edges[kind] == nil {
		f.edges[kind] = make(map[ir.Key]ir.KeySet)
	}
	if f.edges[kind][from] == nil {
		f.edges[kind][from] = make(ir.KeySet)
	}
	f.edges[kind][from].Add(to)
}

func (f *fakeIndex) Keys() ir.KeySet { return f.keys.Clone() }

func (f *fakeIndex) ByProperty(name, value string) ir.KeySet {
	return f.props[ir.Prop(name, value)].Clone()
}

func (f *fakeIndex) References(key ir.Key, kind ir.RefKind) ir.KeySet {
	out := make(ir.KeySet)
	for k, byFrom := range f.edges {
		if kind != ir.AnyKind && k != kind {
			continue
		}
		out.Union(byFrom[key])
	}
	return out
}

func (f *fakeIndex) Referencing(key ir.Key, kind ir.RefKind) ir.KeySet {
	out := make(ir.KeySet)
	for k, byFrom := range f.edges {
		if kind != ir.AnyKind && k != kind {
			continue
		}
		for from, tos := range byFrom {
			if tos.Has(key) {
				out.Add(from)
			}
		}
	}
	return out
}

const (
	kindClassOf ir.RefKind = "class_of_instance"
	kindParent  ir.RefKind = "parent_class"
	kindDep     ir.RefKind = "explicit_dep"
)

func TestEval_PropertyAndAlgebra(t *testing.T) {
	idx := newFakeIndex()
	c1, c2, i1 := ir.NewKey(), ir.NewKey(), ir.NewKey()
	idx.addKey(c1, ir.Prop("kind", "class"))
	idx.addKey(c2, ir.Prop("kind", "class"), ir.Prop("suspended", "true"))
	idx.addKey(i1, ir.Prop("kind", "instance"))

	got, err := Eval(idx, queryir.Property{Name: "kind", Value: "class"})
	require.NoError(t, err)
	assert.Equal(t, ir.NewKeySet(c1, c2), got)

	got, err = Eval(idx, queryir.Difference{
		A: queryir.Property{Name: "kind", Value: "class"},
		B: queryir.Property{Name: "suspended", Value: "true"},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.NewKeySet(c1), got)

	got, err = Eval(idx, queryir.Union{Operands: []queryir.Expr{
		queryir.Property{Name: "kind", Value: "instance"},
		queryir.Explicit{Keys: []ir.Key{c1}},
	}})
	require.NoError(t, err)
	assert.Equal(t, ir.NewKeySet(c1, i1), got)

	got, err = Eval(idx, queryir.Intersection{Operands: []queryir.Expr{
		queryir.All{},
		queryir.Property{Name: "kind", Value: "class"},
		queryir.Complement{E: queryir.Property{Name: "suspended", Value: "true"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, ir.NewKeySet(c1), got)
}

func TestEval_ComplementOfEmpty(t *testing.T) {
	idx := newFakeIndex()
	k := ir.NewKey()
	idx.addKey(k)

	got, err := Eval(idx, queryir.Complement{E: queryir.Explicit{}})
	require.NoError(t, err)
	assert.Equal(t, ir.NewKeySet(k), got)
}

func TestEval_ReferenceOne(t *testing.T) {
	idx := newFakeIndex()
	class, inst1, inst2 := ir.NewKey(), ir.NewKey(), ir.NewKey()
	idx.addKey(class)
	idx.addKey(inst1)
	idx.addKey(inst2)
	idx.addEdge(kindClassOf, inst1, class)
	idx.addEdge(kindClassOf, inst2, class)

	got, err := Eval(idx, queryir.Reference{
		Kind:      kindClassOf,
		Direction: queryir.Incoming,
		Depth:     queryir.One,
		Seed:      queryir.Explicit{Keys: []ir.Key{class}},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.NewKeySet(inst1, inst2), got)

	// Outgoing from an instance reaches the class.
	got, err = Eval(idx, queryir.Reference{
		Kind:      kindClassOf,
		Direction: queryir.Outgoing,
		Depth:     queryir.One,
		Seed:      queryir.Explicit{Keys: []ir.Key{inst1}},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.NewKeySet(class), got)
}

// TestEval_InstancesOfClassOrDescendant reproduces the core "instances of
// person-or-descendant" query: a single transitive incoming traversal
// filtered by the class-of-instance kind.
func TestEval_InstancesOfClassOrDescendant(t *testing.T) {
	idx := newFakeIndex()
	person, scientist, inst := ir.NewKey(), ir.NewKey(), ir.NewKey()
	idx.addKey(person)
	idx.addKey(scientist)
	idx.addKey(inst)
	idx.addEdge(kindParent, scientist, person)
	idx.addEdge(kindClassOf, inst, scientist)

	got, err := Eval(idx, queryir.Reference{
		Kind:      kindClassOf,
		Direction: queryir.Incoming,
		Depth:     queryir.Transitive,
		Seed:      queryir.Explicit{Keys: []ir.Key{person}},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.NewKeySet(inst), got)
}

func TestEval_TransitiveAnyKind(t *testing.T) {
	idx := newFakeIndex()
	a, b, c, d := ir.NewKey(), ir.NewKey(), ir.NewKey(), ir.NewKey()
	for _, k := range []ir.Key{a, b, c, d} {
		idx.addKey(k)
	}
	// d -> c -> b -> a over mixed kinds.
	idx.addEdge(kindDep, b, a)
	idx.addEdge(kindParent, c, b)
	idx.addEdge(kindDep, d, c)

	// Recursive dependents of a.
	got, err := Eval(idx, queryir.Reference{
		Kind:      ir.AnyKind,
		Direction: queryir.Incoming,
		Depth:     queryir.Transitive,
		Seed:      queryir.Explicit{Keys: []ir.Key{a}},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.NewKeySet(b, c, d), got)

	// Recursive dependencies of d.
	got, err = Eval(idx, queryir.Reference{
		Kind:      ir.AnyKind,
		Direction: queryir.Outgoing,
		Depth:     queryir.Transitive,
		Seed:      queryir.Explicit{Keys: []ir.Key{d}},
	})
	require.NoError(t, err)
	assert.Equal(t, ir.NewKeySet(a, b, c), got)
}

func TestEval_ValidatesBeforeEvaluating(t *testing.T) {
	idx := newFakeIndex()
	_, err := Eval(idx, queryir.Union{})
	assert.Error(t, err)
}
