package card

import (
	"fmt"
	"sort"

	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/ledger"
)

// maxClassChain bounds parent-chain walks. The engine's cycle check
// keeps chains finite; the bound only guards against corrupted state.
const maxClassChain = 256

// Validate checks the ontological invariants that involve other cards.
// The resolver reflects the candidate state; existence of strong
// references was already checked by the engine.
func (c Card) Validate(res ledger.Resolver[Card]) error {
	switch c.Kind {
	case KindUnfinished, KindNormal, KindStatement:
		return nil

	case KindClass:
		return c.validateClass(res)

	case KindInstance:
		return c.validateInstance(res)

	case KindAttribute:
		return c.validateAttribute(res)

	default:
		return fmt.Errorf("unknown card kind %q", c.Kind)
	}
}

func (c Card) validateClass(res ledger.Resolver[Card]) error {
	if c.Parent != nil {
		parent, ok := res.Resolve(*c.Parent)
		if !ok {
			return fmt.Errorf("parent class %s does not resolve", *c.Parent)
		}
		if parent.Kind != KindClass {
			return fmt.Errorf("parent %s is a %s card, not a class", *c.Parent, parent.Kind)
		}
	}

	// Descriptor ids are unique per class; Apply enforces this for
	// modifiers, Create payloads arrive unchecked.
	seen := make(ir.KeySet)
	for _, set := range [][]Attr{c.Attrs, c.Params} {
		for _, a := range set {
			if a.ID.IsZero() {
				return fmt.Errorf("descriptor without an id")
			}
			if seen.Has(a.ID) {
				return fmt.Errorf("duplicate descriptor id %s", a.ID)
			}
			seen.Add(a.ID)

			if a.Back.Kind == ConstraintInstanceOf {
				target, ok := res.Resolve(a.Back.Class)
				if !ok {
					return fmt.Errorf("descriptor %s constrains to missing class %s", a.ID, a.Back.Class)
				}
				if target.Kind != KindClass {
					return fmt.Errorf("descriptor %s constrains to %s card %s, not a class", a.ID, target.Kind, a.Back.Class)
				}
			}
		}
	}
	return nil
}

func (c Card) validateInstance(res ledger.Resolver[Card]) error {
	class, ok := res.Resolve(c.Class)
	if !ok {
		return fmt.Errorf("class %s does not resolve", c.Class)
	}
	if class.Kind != KindClass {
		return fmt.Errorf("class key %s is a %s card, not a class", c.Class, class.Kind)
	}

	// Inline answers must match a parameter declared on the class chain
	// and satisfy its constraint. Iterate sorted so failures are
	// deterministic.
	ids := make([]string, 0, len(c.Answers))
	for id := range c.Answers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, idStr := range ids {
		id, err := ir.ParseKey(idStr)
		if err != nil {
			return fmt.Errorf("answer id %q is not a key", idStr)
		}
		attr, _, found := findDescriptor(res, c.Class, id)
		if !found {
			return fmt.Errorf("answer %s matches no parameter on the class chain", id)
		}
		if err := matchConstraint(res, attr.Back, c.Answers[idStr]); err != nil {
			return fmt.Errorf("answer %s: %w", id, err)
		}
	}
	return nil
}

func (c Card) validateAttribute(res ledger.Resolver[Card]) error {
	inst, ok := res.Resolve(c.Instance)
	if !ok {
		return fmt.Errorf("instance %s does not resolve", c.Instance)
	}
	if inst.Kind != KindInstance {
		return fmt.Errorf("answering card %s is a %s card, not an instance", c.Instance, inst.Kind)
	}

	attr, owner, found := findDescriptor(res, inst.Class, c.Attribute)
	if !found {
		return fmt.Errorf("attribute %s is not declared on the class chain of %s", c.Attribute, c.Instance)
	}
	if owner != c.AttrClass {
		return fmt.Errorf("attribute %s belongs to class %s, not %s", c.Attribute, owner, c.AttrClass)
	}

	if c.Back == nil {
		return fmt.Errorf("attribute answer has no back side")
	}
	if err := matchConstraint(res, attr.Back, *c.Back); err != nil {
		return fmt.Errorf("back_type_mismatch: %w", err)
	}
	return nil
}

// findDescriptor walks the class chain from start upward and returns the
// first descriptor (attribute or parameter) with the given id, together
// with the class declaring it.
func findDescriptor(res ledger.Resolver[Card], start, id ir.Key) (Attr, ir.Key, bool) {
	cur := start
	for range maxClassChain {
		class, ok := res.Resolve(cur)
		if !ok || class.Kind != KindClass {
			return Attr{}, ir.ZeroKey, false
		}
		if attr, found := class.Attr(id); found {
			return attr, cur, true
		}
		if class.Parent == nil {
			return Attr{}, ir.ZeroKey, false
		}
		cur = *class.Parent
	}
	return Attr{}, ir.ZeroKey, false
}

// classChainContains reports whether ancestor appears in the chain
// starting at start (inclusive).
func classChainContains(res ledger.Resolver[Card], start, ancestor ir.Key) bool {
	cur := start
	for range maxClassChain {
		if cur == ancestor {
			return true
		}
		class, ok := res.Resolve(cur)
		if !ok || class.Kind != KindClass || class.Parent == nil {
			return false
		}
		cur = *class.Parent
	}
	return false
}

// matchConstraint checks a back side against a descriptor constraint.
func matchConstraint(res ledger.Resolver[Card], constraint Constraint, back BackSide) error {
	switch constraint.normalize().Kind {
	case ConstraintText:
		if back.Kind != BackText {
			return fmt.Errorf("expected a text answer, got %s", back.Kind)
		}
	case ConstraintBool:
		if back.Kind != BackBool {
			return fmt.Errorf("expected a boolean answer, got %s", back.Kind)
		}
	case ConstraintTime:
		if back.Kind != BackTime {
			return fmt.Errorf("expected a timestamp answer, got %s", back.Kind)
		}
	case ConstraintInstanceOf:
		if back.Kind != BackCard {
			return fmt.Errorf("expected a card reference, got %s", back.Kind)
		}
		target, ok := res.Resolve(back.Card)
		if !ok {
			return fmt.Errorf("answer card %s does not resolve", back.Card)
		}
		if target.Kind != KindInstance {
			return fmt.Errorf("answer card %s is a %s card, not an instance", back.Card, target.Kind)
		}
		if !classChainContains(res, target.Class, constraint.Class) {
			return fmt.Errorf("answer %s is not an instance of class %s", back.Card, constraint.Class)
		}
	default:
		return fmt.Errorf("unknown constraint kind %q", constraint.Kind)
	}
	return nil
}
