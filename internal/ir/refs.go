package ir

// RefKind labels a dependency edge between two items. The concrete item
// model declares its own kinds; the engine only distinguishes weak kinds
// (allowed to dangle) from strong ones.
type RefKind string

// AnyKind matches every edge kind in queries and index lookups.
const AnyKind RefKind = ""

// RefMap is the outgoing reference set of one item, grouped by kind.
type RefMap map[RefKind]KeySet

// Add inserts an edge of the given kind.
func (m RefMap) Add(kind RefKind, to Key) {
	set, ok := m[kind]
	if !ok {
		set = make(KeySet)
		m[kind] = set
	}
	set.Add(to)
}

// Merged returns the union of all kinds.
func (m RefMap) Merged() KeySet {
	out := make(KeySet)
	for _, set := range m {
		out.Union(set)
	}
	return out
}

// Property is one indexable (name, value) pair of an item. Values are
// small discrete strings so they can serve as exact index keys.
type Property struct {
	Name  string
	Value string
}

// Prop is shorthand for constructing a Property.
func Prop(name, value string) Property {
	return Property{Name: name, Value: value}
}
