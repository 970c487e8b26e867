package compiler

import (
	"fmt"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/token"

	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/queryir"
)

// Deck is one compiled named expression.
type Deck struct {
	Name string
	Expr queryir.Expr
}

// CompileError reports a deck compilation failure with its source
// position when available.
type CompileError struct {
	Deck    string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	where := ""
	if e.Pos.IsValid() {
		where = fmt.Sprintf(" (%s)", e.Pos)
	}
	if e.Deck != "" {
		return fmt.Sprintf("deck %q: %s%s", e.Deck, e.Message, where)
	}
	return e.Message + where
}

// CompileSource compiles CUE source text. Used by tests and the CLI
// loader.
func CompileSource(src string) ([]Deck, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("parse deck file: %w", err)
	}
	return CompileDecks(v)
}

// deckExpr is the pre-inlining expression tree: queryir plus deck
// references.
type deckExpr struct {
	expr queryir.Expr // set when this node is a plain expression
	deck string       // set when this node references another deck

	union        []deckExpr
	intersection []deckExpr
	difference   *[2]deckExpr
	complement   *deckExpr
	reference    *deckRef
}

type deckRef struct {
	kind      ir.RefKind
	direction queryir.Direction
	depth     queryir.Depth
	seed      deckExpr
}

// CompileDecks compiles every deck under the top-level "decks" struct,
// proves deck references acyclic, and inlines them.
func CompileDecks(v cue.Value) ([]Deck, error) {
	decksVal := v.LookupPath(cue.ParsePath("decks"))
	if !decksVal.Exists() {
		return nil, &CompileError{Message: "no top-level decks struct", Pos: v.Pos()}
	}

	parsed := make(map[string]deckExpr)
	fields, err := decksVal.Fields()
	if err != nil {
		return nil, fmt.Errorf("decks struct: %w", err)
	}
	for fields.Next() {
		name := fields.Selector().String()
		expr, err := parseExpr(name, fields.Value())
		if err != nil {
			return nil, err
		}
		parsed[name] = expr
	}
	if len(parsed) == 0 {
		return nil, &CompileError{Message: "decks struct declares no decks", Pos: decksVal.Pos()}
	}

	// Every deck reference must resolve within the file.
	for name, expr := range parsed {
		for _, ref := range deckRefsOf(expr) {
			if _, ok := parsed[ref]; !ok {
				return nil, &CompileError{Deck: name, Message: fmt.Sprintf("references unknown deck %q", ref)}
			}
		}
	}

	if cycle := findDeckCycle(parsed); cycle != nil {
		return nil, &CompileError{Message: fmt.Sprintf("deck reference cycle: %s", strings.Join(cycle, " -> "))}
	}

	out := make([]Deck, 0, len(parsed))
	names := make([]string, 0, len(parsed))
	for name := range parsed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		inlined := inline(parsed[name], parsed)
		if err := queryir.Validate(inlined); err != nil {
			return nil, &CompileError{Deck: name, Message: err.Error()}
		}
		out = append(out, Deck{Name: name, Expr: inlined})
	}
	return out, nil
}

// parseExpr converts one CUE expression node. Exactly one node field must
// be present.
func parseExpr(deck string, v cue.Value) (deckExpr, error) {
	fail := func(format string, args ...any) (deckExpr, error) {
		return deckExpr{}, &CompileError{Deck: deck, Message: fmt.Sprintf(format, args...), Pos: v.Pos()}
	}

	if k := v.Kind(); k != cue.StructKind {
		return fail("expression must be a struct, got %s", k)
	}

	var nodes []string
	for _, node := range []string{"all", "property", "explicit", "reference", "union", "intersection", "difference", "complement", "deck"} {
		if v.LookupPath(cue.ParsePath(node)).Exists() {
			nodes = append(nodes, node)
		}
	}
	if len(nodes) != 1 {
		return fail("expression needs exactly one node field, got %v", nodes)
	}

	node := v.LookupPath(cue.ParsePath(nodes[0]))
	switch nodes[0] {
	case "all":
		return deckExpr{expr: queryir.All{}}, nil

	case "property":
		name, err := node.LookupPath(cue.ParsePath("name")).String()
		if err != nil {
			return fail("property.name: %v", err)
		}
		value, err := node.LookupPath(cue.ParsePath("value")).String()
		if err != nil {
			return fail("property.value: %v", err)
		}
		return deckExpr{expr: queryir.Property{Name: name, Value: value}}, nil

	case "explicit":
		var keys []ir.Key
		iter, err := node.List()
		if err != nil {
			return fail("explicit: %v", err)
		}
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return fail("explicit key: %v", err)
			}
			key, err := ir.ParseKey(s)
			if err != nil {
				return fail("explicit key: %v", err)
			}
			keys = append(keys, key)
		}
		return deckExpr{expr: queryir.Explicit{Keys: keys}}, nil

	case "reference":
		ref := &deckRef{}
		if kindVal := node.LookupPath(cue.ParsePath("kind")); kindVal.Exists() {
			kind, err := kindVal.String()
			if err != nil {
				return fail("reference.kind: %v", err)
			}
			ref.kind = ir.RefKind(kind)
		}
		dir, err := node.LookupPath(cue.ParsePath("direction")).String()
		if err != nil {
			return fail("reference.direction: %v", err)
		}
		ref.direction = queryir.Direction(dir)
		depth, err := node.LookupPath(cue.ParsePath("depth")).String()
		if err != nil {
			return fail("reference.depth: %v", err)
		}
		ref.depth = queryir.Depth(depth)

		seed := node.LookupPath(cue.ParsePath("seed"))
		if !seed.Exists() {
			return fail("reference needs a seed")
		}
		ref.seed, err = parseExpr(deck, seed)
		if err != nil {
			return deckExpr{}, err
		}
		return deckExpr{reference: ref}, nil

	case "union", "intersection":
		iter, err := node.List()
		if err != nil {
			return fail("%s: %v", nodes[0], err)
		}
		var ops []deckExpr
		for iter.Next() {
			op, err := parseExpr(deck, iter.Value())
			if err != nil {
				return deckExpr{}, err
			}
			ops = append(ops, op)
		}
		if nodes[0] == "union" {
			return deckExpr{union: ops}, nil
		}
		return deckExpr{intersection: ops}, nil

	case "difference":
		a, err := parseExpr(deck, node.LookupPath(cue.ParsePath("a")))
		if err != nil {
			return deckExpr{}, err
		}
		b, err := parseExpr(deck, node.LookupPath(cue.ParsePath("b")))
		if err != nil {
			return deckExpr{}, err
		}
		return deckExpr{difference: &[2]deckExpr{a, b}}, nil

	case "complement":
		inner, err := parseExpr(deck, node)
		if err != nil {
			return deckExpr{}, err
		}
		return deckExpr{complement: &inner}, nil

	case "deck":
		name, err := node.String()
		if err != nil {
			return fail("deck reference: %v", err)
		}
		return deckExpr{deck: name}, nil
	}
	return fail("unreachable node %q", nodes[0])
}

// deckRefsOf collects the deck names an expression references.
func deckRefsOf(e deckExpr) []string {
	var out []string
	switch {
	case e.deck != "":
		out = append(out, e.deck)
	case e.reference != nil:
		out = append(out, deckRefsOf(e.reference.seed)...)
	case e.union != nil:
		for _, op := range e.union {
			out = append(out, deckRefsOf(op)...)
		}
	case e.intersection != nil:
		for _, op := range e.intersection {
			out = append(out, deckRefsOf(op)...)
		}
	case e.difference != nil:
		out = append(out, deckRefsOf(e.difference[0])...)
		out = append(out, deckRefsOf(e.difference[1])...)
	case e.complement != nil:
		out = append(out, deckRefsOf(*e.complement)...)
	}
	return out
}

// inline replaces deck references with the referenced expression. The
// cycle check ran first, so recursion terminates.
func inline(e deckExpr, decks map[string]deckExpr) queryir.Expr {
	switch {
	case e.deck != "":
		return inline(decks[e.deck], decks)
	case e.expr != nil:
		return e.expr
	case e.reference != nil:
		return queryir.Reference{
			Kind:      e.reference.kind,
			Direction: e.reference.direction,
			Depth:     e.reference.depth,
			Seed:      inline(e.reference.seed, decks),
		}
	case e.union != nil:
		ops := make([]queryir.Expr, len(e.union))
		for i, op := range e.union {
			ops[i] = inline(op, decks)
		}
		return queryir.Union{Operands: ops}
	case e.intersection != nil:
		ops := make([]queryir.Expr, len(e.intersection))
		for i, op := range e.intersection {
			ops[i] = inline(op, decks)
		}
		return queryir.Intersection{Operands: ops}
	case e.difference != nil:
		return queryir.Difference{
			A: inline(e.difference[0], decks),
			B: inline(e.difference[1], decks),
		}
	case e.complement != nil:
		return queryir.Complement{E: inline(*e.complement, decks)}
	}
	return nil
}
