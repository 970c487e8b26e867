package queryir

import "github.com/roach88/mnemos/internal/ir"

// Expr represents an abstract item-set expression.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the evaluator.
//
// Node types:
//   - All: every key in the category
//   - Property: lookup in the property index
//   - Reference: edge traversal from a seed expression
//   - Union, Intersection, Difference, Complement: set algebra
//   - Explicit: a literal key set
//
// Results are order-insensitive sets; callers that want ordering apply a
// separate sorter.
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// All selects every key in the universe of the category.
type All struct{}

func (All) exprNode() {}

// Property selects the keys carrying (Name, Value) in the property index.
type Property struct {
	Name  string
	Value string
}

func (Property) exprNode() {}

// Direction orients a Reference traversal.
type Direction string

const (
	// Outgoing follows edges from the seed to its dependencies.
	Outgoing Direction = "outgoing"
	// Incoming follows edges from dependents into the seed.
	Incoming Direction = "incoming"
)

// Depth bounds a Reference traversal.
type Depth string

const (
	// One visits direct neighbors only.
	One Depth = "one"
	// Transitive visits the full reachability closure. The DAG guarantee
	// bounds the traversal by the index size.
	Transitive Depth = "transitive"
)

// Reference traverses edges starting from the seed set.
//
// With Depth One the result is the set of direct neighbors over edges of
// Kind (ir.AnyKind matches every kind).
//
// With Depth Transitive the closure expands over edges of EVERY kind; the
// kind filter then keeps exactly the members that enter the walk over an
// edge of Kind. This makes a single expression answer questions like
// "instances of this class or any descendant class": the instance enters
// the walk over its class edge even when intermediate hops are
// parent-class edges.
type Reference struct {
	Kind      ir.RefKind
	Direction Direction
	Depth     Depth
	Seed      Expr
}

func (Reference) exprNode() {}

// Union selects keys present in any operand.
type Union struct {
	Operands []Expr
}

func (Union) exprNode() {}

// Intersection selects keys present in every operand.
type Intersection struct {
	Operands []Expr
}

func (Intersection) exprNode() {}

// Difference selects keys in A that are not in B.
type Difference struct {
	A Expr
	B Expr
}

func (Difference) exprNode() {}

// Complement selects every key of the universe not selected by E.
type Complement struct {
	E Expr
}

func (Complement) exprNode() {}

// Explicit is a literal key set.
type Explicit struct {
	Keys []ir.Key
}

func (Explicit) exprNode() {}
