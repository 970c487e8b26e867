package ledger

import (
	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/query"
	"github.com/roach88/mnemos/internal/queryir"
)

// Evaluate computes the key set a set-algebra expression selects over
// this category's indices. Each index lookup takes the shared lock, so
// evaluation proceeds in parallel with other reads and never blocks on
// a stable snapshot - callers needing cross-expression consistency
// serialize around their own submissions.
func (e *Engine[T, M]) Evaluate(expr queryir.Expr) (ir.KeySet, error) {
	return query.Eval(e, expr)
}
