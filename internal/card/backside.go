package card

import (
	"fmt"

	"github.com/roach88/mnemos/internal/ir"
)

// BackKind discriminates the back-side variants.
type BackKind string

const (
	// BackText is plain text, possibly with embedded card references.
	BackText BackKind = "text"
	// BackBool is a boolean answer.
	BackBool BackKind = "bool"
	// BackTime is a point in time, unix seconds.
	BackTime BackKind = "time"
	// BackCard is a reference to another card.
	BackCard BackKind = "card"
	// BackList is an ordered list of card references.
	BackList BackKind = "list"
)

// BackSide is the answer side of a card.
type BackSide struct {
	Kind BackKind
	Text string
	Bool bool
	Time int64
	Card ir.Key
	List []ir.Key
}

// TextBack builds a plain-text back side.
func TextBack(text string) BackSide {
	return BackSide{Kind: BackText, Text: text}
}

// BoolBack builds a boolean back side.
func BoolBack(v bool) BackSide {
	return BackSide{Kind: BackBool, Bool: v}
}

// TimeBack builds a timestamp back side.
func TimeBack(unix int64) BackSide {
	return BackSide{Kind: BackTime, Time: unix}
}

// CardBack builds a card-reference back side.
func CardBack(key ir.Key) BackSide {
	return BackSide{Kind: BackCard, Card: key}
}

// ListBack builds a list-of-references back side.
func ListBack(keys ...ir.Key) BackSide {
	return BackSide{Kind: BackList, List: keys}
}

// CardRefs returns the keys the back side IS a reference to (the card and
// list variants). Embedded references inside text back sides are link
// references, not back-side references; see Card.Refs.
func (b BackSide) CardRefs() []ir.Key {
	switch b.Kind {
	case BackCard:
		return []ir.Key{b.Card}
	case BackList:
		return b.List
	}
	return nil
}

// Display renders the back side for listings.
func (b BackSide) Display() string {
	switch b.Kind {
	case BackText:
		return b.Text
	case BackBool:
		return fmt.Sprintf("%t", b.Bool)
	case BackTime:
		return fmt.Sprintf("@%d", b.Time)
	case BackCard:
		return "⟦" + b.Card.String() + "⟧"
	case BackList:
		out := ""
		for i, k := range b.List {
			if i > 0 {
				out += ", "
			}
			out += "⟦" + k.String() + "⟧"
		}
		return out
	}
	return ""
}

// ConstraintKind discriminates attribute back-side constraints.
type ConstraintKind string

const (
	// ConstraintText accepts any text answer.
	ConstraintText ConstraintKind = "text"
	// ConstraintBool requires a boolean answer.
	ConstraintBool ConstraintKind = "bool"
	// ConstraintTime requires a timestamp answer.
	ConstraintTime ConstraintKind = "time"
	// ConstraintInstanceOf requires a reference to an instance of the
	// given class or one of its descendants.
	ConstraintInstanceOf ConstraintKind = "instance_of"
)

// Constraint is the back-side constraint of an attribute descriptor.
// The zero value accepts any text.
type Constraint struct {
	Kind  ConstraintKind
	Class ir.Key // set for ConstraintInstanceOf
}

// normalize maps the zero value to ConstraintText.
func (c Constraint) normalize() Constraint {
	if c.Kind == "" {
		c.Kind = ConstraintText
	}
	return c
}
