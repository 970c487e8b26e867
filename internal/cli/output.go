package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/roach88/mnemos/internal/card"
	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/ledger"
)

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// cardView is the JSON shape of a card in CLI output.
type cardView struct {
	Key       string   `json:"key"`
	Kind      string   `json:"kind"`
	Front     string   `json:"front"`
	Back      string   `json:"back,omitempty"`
	Class     string   `json:"class,omitempty"`
	Parent    string   `json:"parent,omitempty"`
	Namespace string   `json:"namespace,omitempty"`
	Deps      []string `json:"deps,omitempty"`
	Suspended bool     `json:"suspended,omitempty"`
	Trivial   bool     `json:"trivial,omitempty"`
	Valid     bool     `json:"valid"`
	Invalid   string   `json:"invalid_reason,omitempty"`
}

func viewOf(eng *ledger.Engine[card.Card, card.Action], c card.Card) cardView {
	valid, reason := eng.ValidationStatus(c.ID)
	v := cardView{
		Key:       c.ID.String(),
		Kind:      string(c.Kind),
		Front:     card.DisplayFront(c, engineResolver{eng}),
		Suspended: c.Suspended,
		Trivial:   c.Trivial,
		Valid:     valid,
		Invalid:   reason,
	}
	if c.Back != nil {
		v.Back = c.Back.Display()
	}
	if !c.Class.IsZero() {
		v.Class = c.Class.String()
	}
	if c.Parent != nil {
		v.Parent = c.Parent.String()
	}
	if c.Namespace != nil {
		v.Namespace = c.Namespace.String()
	}
	for _, k := range ir.NewKeySet(c.Deps...).Sorted() {
		v.Deps = append(v.Deps, k.String())
	}
	return v
}

// engineResolver adapts the engine's Get to the resolver interface for
// display rendering.
type engineResolver struct {
	eng *ledger.Engine[card.Card, card.Action]
}

func (r engineResolver) Resolve(k ir.Key) (card.Card, bool) {
	return r.eng.Get(k)
}

func printCard(w io.Writer, format string, eng *ledger.Engine[card.Card, card.Action], c card.Card) error {
	view := viewOf(eng, c)
	if format == "json" {
		return printJSON(w, view)
	}

	fmt.Fprintf(w, "%s  [%s]\n", view.Key, view.Kind)
	fmt.Fprintf(w, "  front: %s\n", view.Front)
	if view.Back != "" {
		fmt.Fprintf(w, "  back:  %s\n", view.Back)
	}
	if view.Class != "" {
		fmt.Fprintf(w, "  class: %s\n", view.Class)
	}
	if view.Parent != "" {
		fmt.Fprintf(w, "  parent: %s\n", view.Parent)
	}
	if view.Namespace != "" {
		fmt.Fprintf(w, "  namespace: %s\n", view.Namespace)
	}
	for _, dep := range view.Deps {
		fmt.Fprintf(w, "  dep: %s\n", dep)
	}
	if view.Suspended {
		fmt.Fprintln(w, "  suspended")
	}
	if !view.Valid {
		fmt.Fprintf(w, "  INVALID: %s\n", view.Invalid)
	}
	return nil
}

// printKeySet writes a key set, sorted, one per line or as a JSON array.
func printKeySet(w io.Writer, format string, keys ir.KeySet) error {
	sorted := keys.Sorted()
	if format == "json" {
		out := make([]string, len(sorted))
		for i, k := range sorted {
			out[i] = k.String()
		}
		return printJSON(w, out)
	}
	for _, k := range sorted {
		fmt.Fprintln(w, k.String())
	}
	return nil
}

// printStrings writes a sorted string list.
func printStrings(w io.Writer, format string, items []string) error {
	sort.Strings(items)
	if format == "json" {
		return printJSON(w, items)
	}
	for _, item := range items {
		fmt.Fprintln(w, item)
	}
	return nil
}
