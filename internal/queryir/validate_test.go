package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/mnemos/internal/ir"
)

func TestValidate_Accepts(t *testing.T) {
	exprs := []Expr{
		All{},
		Property{Name: "kind", Value: "class"},
		Explicit{Keys: []ir.Key{ir.NewKey()}},
		Explicit{},
		Reference{Kind: ir.AnyKind, Direction: Incoming, Depth: Transitive, Seed: All{}},
		Union{Operands: []Expr{All{}, Property{Name: "kind", Value: "class"}}},
		Intersection{Operands: []Expr{All{}}},
		Difference{A: All{}, B: Property{Name: "suspended", Value: "true"}},
		Complement{E: Property{Name: "valid", Value: "false"}},
	}
	for _, e := range exprs {
		assert.NoError(t, Validate(e))
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]Expr{
		"nil":                  nil,
		"empty union":          Union{},
		"empty intersection":   Intersection{},
		"property no name":     Property{Value: "x"},
		"reference no seed":    Reference{Direction: Incoming, Depth: One},
		"reference direction":  Reference{Direction: "sideways", Depth: One, Seed: All{}},
		"reference depth":      Reference{Direction: Incoming, Depth: "forever", Seed: All{}},
		"difference half":      Difference{A: All{}},
		"complement empty":     Complement{},
		"nested invalid":       Union{Operands: []Expr{All{}, Intersection{}}},
	}
	for name, e := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, Validate(e))
		})
	}
}

func TestValidate_DepthBound(t *testing.T) {
	var e Expr = All{}
	for i := 0; i < maxDepth+2; i++ {
		e = Complement{E: e}
	}
	assert.Error(t, Validate(e))
}
