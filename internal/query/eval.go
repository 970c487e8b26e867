// Package query evaluates set-algebra expressions over the ledger
// indices.
//
// Evaluation is set-based: every node produces a key set and operators
// combine them. Transitive traversals are bounded by the dependency index
// size - the acyclicity invariant guarantees termination.
package query

import (
	"fmt"

	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/queryir"
)

// Index is the read-only view of an engine the evaluator needs. The
// engine implements it directly.
type Index interface {
	// Keys returns every live key of the category.
	Keys() ir.KeySet
	// ByProperty returns the keys carrying (name, value).
	ByProperty(name, value string) ir.KeySet
	// References returns outgoing edges of key, filtered by kind
	// (ir.AnyKind merges all kinds).
	References(key ir.Key, kind ir.RefKind) ir.KeySet
	// Referencing returns incoming edges of key, filtered by kind.
	Referencing(key ir.Key, kind ir.RefKind) ir.KeySet
}

// Eval computes the key set an expression selects.
func Eval(idx Index, expr queryir.Expr) (ir.KeySet, error) {
	if err := queryir.Validate(expr); err != nil {
		return nil, err
	}
	return eval(idx, expr)
}

func eval(idx Index, expr queryir.Expr) (ir.KeySet, error) {
	switch node := expr.(type) {
	case queryir.All:
		return idx.Keys(), nil

	case queryir.Property:
		return idx.ByProperty(node.Name, node.Value), nil

	case queryir.Explicit:
		return ir.NewKeySet(node.Keys...), nil

	case queryir.Reference:
		seed, err := eval(idx, node.Seed)
		if err != nil {
			return nil, err
		}
		return traverse(idx, node, seed), nil

	case queryir.Union:
		out := make(ir.KeySet)
		for _, op := range node.Operands {
			set, err := eval(idx, op)
			if err != nil {
				return nil, err
			}
			out.Union(set)
		}
		return out, nil

	case queryir.Intersection:
		// Evaluate all operands first, then intersect starting from the
		// smallest set so membership probes stay cheap.
		sets := make([]ir.KeySet, len(node.Operands))
		for i, op := range node.Operands {
			set, err := eval(idx, op)
			if err != nil {
				return nil, err
			}
			sets[i] = set
		}
		smallest := 0
		for i, set := range sets {
			if len(set) < len(sets[smallest]) {
				smallest = i
			}
		}
		out := sets[smallest].Clone()
		for i, set := range sets {
			if i == smallest {
				continue
			}
			out = out.Intersect(set)
			if len(out) == 0 {
				break
			}
		}
		return out, nil

	case queryir.Difference:
		a, err := eval(idx, node.A)
		if err != nil {
			return nil, err
		}
		b, err := eval(idx, node.B)
		if err != nil {
			return nil, err
		}
		return a.Subtract(b), nil

	case queryir.Complement:
		inner, err := eval(idx, node.E)
		if err != nil {
			return nil, err
		}
		return idx.Keys().Subtract(inner), nil

	default:
		return nil, fmt.Errorf("unknown expression type %T", expr)
	}
}

// traverse walks edges from the seed set.
//
// Depth One: direct neighbors over edges of node.Kind.
//
// Depth Transitive: the closure expands over edges of every kind, and the
// kind filter keeps the members that enter the walk over a matching edge.
// The seed itself is never part of the result.
func traverse(idx Index, node queryir.Reference, seed ir.KeySet) ir.KeySet {
	step := func(key ir.Key, kind ir.RefKind) ir.KeySet {
		if node.Direction == queryir.Outgoing {
			return idx.References(key, kind)
		}
		return idx.Referencing(key, kind)
	}

	if node.Depth == queryir.One {
		out := make(ir.KeySet)
		for key := range seed {
			out.Union(step(key, node.Kind))
		}
		return out.Subtract(seed)
	}

	visited := seed.Clone()
	matched := make(ir.KeySet)
	frontier := seed.Clone()
	for len(frontier) > 0 {
		next := make(ir.KeySet)
		for key := range frontier {
			// Kind-matching neighbors are results; all neighbors extend
			// the walk.
			if node.Kind != ir.AnyKind {
				matched.Union(step(key, node.Kind))
			}
			for neighbor := range step(key, ir.AnyKind) {
				if !visited.Has(neighbor) {
					visited.Add(neighbor)
					next.Add(neighbor)
				}
			}
		}
		frontier = next
	}

	if node.Kind == ir.AnyKind {
		return visited.Subtract(seed)
	}
	return matched.Subtract(seed)
}
