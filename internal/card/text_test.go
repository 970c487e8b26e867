package card

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/mnemos/internal/ir"
)

func TestParseTextRefs(t *testing.T) {
	k1 := ir.MustParseKey("11111111-1111-1111-1111-111111111111")
	k2 := ir.MustParseKey("22222222-2222-2222-2222-222222222222")

	cases := map[string][]ir.Key{
		"no refs here":                nil,
		"see ⟦" + k1.String() + "⟧.": {k1},
		"⟦" + k1.String() + "|Rust⟧ and ⟦" + k2.String() + "⟧":    {k1, k2},
		"dup ⟦" + k1.String() + "⟧ ⟦" + k1.String() + "|again⟧":   {k1},
		"⟦not-a-key⟧ stays text":                                  nil,
		"unterminated ⟦" + k1.String():                            nil,
	}
	for text, want := range cases {
		assert.Equal(t, want, ParseTextRefs(text), text)
	}
}

func TestRenderText(t *testing.T) {
	k1 := ir.MustParseKey("11111111-1111-1111-1111-111111111111")
	k2 := ir.MustParseKey("22222222-2222-2222-2222-222222222222")

	lookup := func(k ir.Key) (string, bool) {
		if k == k1 {
			return "Rust", true
		}
		return "", false
	}

	got := RenderText("learn ⟦"+k1.String()+"⟧ first", lookup)
	assert.Equal(t, "learn Rust first", got)

	// Alias wins over lookup.
	got = RenderText("learn ⟦"+k1.String()+"|the language⟧ first", lookup)
	assert.Equal(t, "learn the language first", got)

	// Unresolvable refs render as the raw key in brackets.
	got = RenderText("see ⟦"+k2.String()+"⟧", lookup)
	assert.Equal(t, "see ["+k2.String()+"]", got)
}
