package testutil

import (
	"fmt"

	"github.com/roach88/mnemos/internal/ir"
)

// SeqKey returns a readable deterministic key: SeqKey(5) is
// 00000000-0000-4000-8000-000000000005. Scenario files and golden
// traces use these so diffs stay legible.
func SeqKey(n int) ir.Key {
	return ir.MustParseKey(fmt.Sprintf("00000000-0000-4000-8000-%012d", n))
}
