package card

import (
	"regexp"
	"strings"

	"github.com/roach88/mnemos/internal/ir"
)

// Embedded card references use the bracket syntax ⟦key⟧ or ⟦key|alias⟧.
// Anything between the brackets that does not parse as a key is left
// alone as ordinary text.
var refPattern = regexp.MustCompile(`⟦([^⟧|]+)(?:\|([^⟧]*))?⟧`)

// ParseTextRefs extracts the referenced keys from a text, in order of
// first appearance, without duplicates.
func ParseTextRefs(text string) []ir.Key {
	if !strings.Contains(text, "⟦") {
		return nil
	}

	var out []ir.Key
	seen := make(ir.KeySet)
	for _, match := range refPattern.FindAllStringSubmatch(text, -1) {
		key, err := ir.ParseKey(strings.TrimSpace(match[1]))
		if err != nil {
			continue
		}
		if seen.Has(key) {
			continue
		}
		seen.Add(key)
		out = append(out, key)
	}
	return out
}

// RenderText replaces every embedded reference with its alias, or with
// the display front the lookup function supplies. Unresolvable
// references render as the raw key in brackets.
func RenderText(text string, lookup func(ir.Key) (string, bool)) string {
	return refPattern.ReplaceAllStringFunc(text, func(m string) string {
		sub := refPattern.FindStringSubmatch(m)
		if sub[2] != "" {
			return sub[2]
		}
		key, err := ir.ParseKey(strings.TrimSpace(sub[1]))
		if err != nil {
			return m
		}
		if name, ok := lookup(key); ok {
			return name
		}
		return "[" + key.String() + "]"
	})
}
