package card

import (
	"strings"

	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/ledger"
)

// Kind discriminates the card variants. A card starts unfinished and may
// move to exactly one terminal kind.
type Kind string

const (
	// KindUnfinished is the placeholder a card is created as: only a
	// front, no answer yet.
	KindUnfinished Kind = "unfinished"
	// KindNormal is a free-form question and answer.
	KindNormal Kind = "normal"
	// KindStatement is a free-form fact with no back side.
	KindStatement Kind = "statement"
	// KindClass is an abstract type with instances, attributes, and
	// parameters.
	KindClass Kind = "class"
	// KindInstance is a specific entity of exactly one class.
	KindInstance Kind = "instance"
	// KindAttribute is the answer an instance gives to one of its
	// class's attributes.
	KindAttribute Kind = "attribute"
)

// Attr is an attribute or parameter descriptor owned by a class. The id
// is unique within the owning class; equality of ids across classes
// carries no meaning. Attributes are inherited by descendant classes.
type Attr struct {
	ID      ir.Key
	Pattern string
	Back    Constraint
}

// Card is the concrete ledger item of the cards category.
//
// Shared fields apply to every kind; the remaining fields are meaningful
// only for the kind noted and stay zero otherwise.
type Card struct {
	ID   ir.Key
	Kind Kind

	// Front is the display text. Classes and instances use it as their
	// name. It may embed card references as ⟦key⟧ or ⟦key|alias⟧.
	Front string
	// Back is the answer side, when the kind has one.
	Back *BackSide

	// Parent is the optional parent class. Class only.
	Parent *ir.Key
	// Attrs are the owned attribute descriptors. Class only.
	Attrs []Attr
	// Params are the owned parameter descriptors, answered inline on
	// instances. Class only.
	Params []Attr

	// Class is the class this card is an instance of. Instance only.
	Class ir.Key
	// Answers maps parameter ids (as key strings) to inline answers.
	// Instance only.
	Answers map[string]BackSide

	// Attribute is the answered attribute's id; AttrClass the class that
	// owns it; Instance the instance answering. Attribute only.
	Attribute ir.Key
	AttrClass ir.Key
	Instance  ir.Key

	// Deps are the explicitly declared prerequisites.
	Deps []ir.Key
	// Namespace is the optional namespace card.
	Namespace *ir.Key

	Suspended bool
	Trivial   bool
}

// New returns the unfinished card a Create event usually carries.
func New(id ir.Key, front string) Card {
	return Card{ID: id, Kind: KindUnfinished, Front: front}
}

// ItemKey implements the ledger item interface.
func (c Card) ItemKey() ir.Key { return c.ID }

// IsFinished reports whether the card has left the unfinished kind.
func (c Card) IsFinished() bool { return c.Kind != KindUnfinished }

// Attr looks up a descriptor by id among the card's own attributes and
// parameters. Class cards only.
func (c Card) Attr(id ir.Key) (Attr, bool) {
	for _, a := range c.Attrs {
		if a.ID == id {
			return a, true
		}
	}
	for _, p := range c.Params {
		if p.ID == id {
			return p, true
		}
	}
	return Attr{}, false
}

// DisplayFront renders the card's question side. Attribute answers
// derive it from the descriptor pattern: "{}" is replaced with the
// instance's front, otherwise the pattern prefixes it.
func DisplayFront(c Card, res ledger.Resolver[Card]) string {
	if c.Kind != KindAttribute {
		return RenderText(c.Front, func(k ir.Key) (string, bool) {
			linked, ok := res.Resolve(k)
			if !ok {
				return "", false
			}
			return linked.Front, true
		})
	}

	instFront := "<deleted instance>"
	if inst, ok := res.Resolve(c.Instance); ok {
		instFront = inst.Front
	}
	pattern := ""
	if owner, ok := res.Resolve(c.AttrClass); ok {
		if attr, found := owner.Attr(c.Attribute); found {
			pattern = attr.Pattern
		}
	}
	if pattern == "" {
		return instFront
	}
	if strings.Contains(pattern, "{}") {
		return strings.ReplaceAll(pattern, "{}", instFront)
	}
	return pattern + ": " + instFront
}

// clone returns a deep copy so Apply never aliases the stored form.
func (c Card) clone() Card {
	out := c
	if c.Back != nil {
		back := *c.Back
		back.List = append([]ir.Key(nil), c.Back.List...)
		out.Back = &back
	}
	if c.Parent != nil {
		parent := *c.Parent
		out.Parent = &parent
	}
	if c.Namespace != nil {
		ns := *c.Namespace
		out.Namespace = &ns
	}
	out.Attrs = append([]Attr(nil), c.Attrs...)
	out.Params = append([]Attr(nil), c.Params...)
	out.Deps = append([]ir.Key(nil), c.Deps...)
	if c.Answers != nil {
		out.Answers = make(map[string]BackSide, len(c.Answers))
		for id, back := range c.Answers {
			out.Answers[id] = back
		}
	}
	return out
}
