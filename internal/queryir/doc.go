// Package queryir defines the set-algebra expression tree for selecting
// item subsets.
//
// This package contains type definitions and structural validation only.
// Evaluation lives in internal/query; compilation from CUE deck files in
// internal/compiler. The Expr interface is sealed so backends can switch
// exhaustively over the node types.
package queryir
