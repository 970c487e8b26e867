// Package compiler turns CUE deck files into query expressions.
//
// A deck file declares named item-set expressions under a top-level
// "decks" struct:
//
//	decks: {
//		classes: {property: {name: "kind", value: "class"}}
//		active: {difference: {
//			a: {deck: "classes"}
//			b: {property: {name: "suspended", value: "true"}}
//		}}
//	}
//
// Expression nodes carry exactly one of: all, property, explicit,
// reference, union, intersection, difference, complement, or deck. A
// deck node names another deck in the same compilation; references are
// inlined after a Tarjan SCC pass proves them acyclic.
//
// Uses the CUE SDK's Go API directly (not a CLI subprocess).
package compiler
