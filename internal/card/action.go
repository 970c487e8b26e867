package card

import (
	"fmt"
	"slices"

	"github.com/roach88/mnemos/internal/ir"
)

// ActionKind discriminates the card modifiers.
type ActionKind string

const (
	ActionSetFront           ActionKind = "set_front"
	ActionSetBack            ActionKind = "set_back"
	ActionSetClass           ActionKind = "set_class"
	ActionSetInstance        ActionKind = "set_instance"
	ActionSetNormal          ActionKind = "set_normal"
	ActionSetStatement       ActionKind = "set_statement"
	ActionSetUnfinished      ActionKind = "set_unfinished"
	ActionSetAttributeAnswer ActionKind = "set_attribute_answer"
	ActionSetParentClass     ActionKind = "set_parent_class"
	ActionSetNamespace       ActionKind = "set_namespace"
	ActionAddDependency      ActionKind = "add_dependency"
	ActionRemoveDependency   ActionKind = "remove_dependency"
	ActionInsertAttribute    ActionKind = "insert_attribute"
	ActionRemoveAttribute    ActionKind = "remove_attribute"
	ActionInsertParam        ActionKind = "insert_param"
	ActionRemoveParam        ActionKind = "remove_param"
	ActionSetAnswer          ActionKind = "set_answer"
	ActionRemoveAnswer       ActionKind = "remove_answer"
	ActionSetSuspended       ActionKind = "set_suspended"
	ActionSetTrivial         ActionKind = "set_trivial"
)

// Action is one typed mutation of a card. Exactly one modifier per
// event. Fields beyond Kind are read per modifier; unused ones stay zero.
type Action struct {
	Kind ActionKind

	// Text carries the front for set_front, and the display name for
	// set_class / set_instance.
	Text string
	// Back carries the back side for set_back, set_attribute_answer, and
	// set_answer.
	Back *BackSide
	// Key carries the class key (set_instance, set_attribute_answer),
	// the dependency key (add/remove_dependency), the namespace
	// (set_namespace), or the parent class (set_parent_class).
	Key ir.Key
	// Clear selects the None arm of set_parent_class / set_namespace.
	Clear bool
	// Attr carries the descriptor for insert_attribute / insert_param.
	Attr *Attr
	// AttrID carries the descriptor id for remove_attribute,
	// remove_param, set_answer, remove_answer, and set_attribute_answer.
	AttrID ir.Key
	// Instance carries the answering instance for set_attribute_answer.
	Instance ir.Key
	// Flag carries the value for set_suspended / set_trivial.
	Flag bool
}

// Apply runs the modifier against a deep copy of the card. Inapplicable
// modifiers - wrong kind, kind change between terminal kinds, duplicate
// attribute ids - return an error and the event is rejected as
// InvalidModifier.
func (c Card) Apply(a Action) (Card, error) {
	out := c.clone()

	switch a.Kind {
	case ActionSetFront:
		if c.Kind == KindAttribute {
			return Card{}, fmt.Errorf("attribute answers derive their front from the descriptor pattern")
		}
		out.Front = a.Text

	case ActionSetBack:
		return out.setBack(a.Back)

	case ActionSetClass:
		if err := c.checkTransition(KindClass); err != nil {
			return Card{}, err
		}
		out.Kind = KindClass
		if a.Text != "" {
			out.Front = a.Text
		}

	case ActionSetInstance:
		if err := c.checkTransition(KindInstance); err != nil {
			return Card{}, err
		}
		if a.Key.IsZero() {
			return Card{}, fmt.Errorf("set_instance needs a class key")
		}
		out.Kind = KindInstance
		out.Class = a.Key
		if a.Text != "" {
			out.Front = a.Text
		}

	case ActionSetNormal:
		if err := c.checkTransition(KindNormal); err != nil {
			return Card{}, err
		}
		out.Kind = KindNormal

	case ActionSetStatement:
		if err := c.checkTransition(KindStatement); err != nil {
			return Card{}, err
		}
		out.Kind = KindStatement

	case ActionSetUnfinished:
		if c.Kind != KindUnfinished {
			return Card{}, fmt.Errorf("cannot move a %s card back to unfinished", c.Kind)
		}

	case ActionSetAttributeAnswer:
		if err := c.checkTransition(KindAttribute); err != nil {
			return Card{}, err
		}
		if a.AttrID.IsZero() || a.Instance.IsZero() || a.Key.IsZero() {
			return Card{}, fmt.Errorf("set_attribute_answer needs attribute, owning class, and instance")
		}
		out.Kind = KindAttribute
		out.Attribute = a.AttrID
		out.AttrClass = a.Key
		out.Instance = a.Instance
		if a.Back != nil {
			back := *a.Back
			out.Back = &back
		}

	case ActionSetParentClass:
		if c.Kind != KindClass {
			return Card{}, fmt.Errorf("set_parent_class applies to classes, not %s cards", c.Kind)
		}
		if a.Clear {
			out.Parent = nil
		} else {
			if a.Key.IsZero() {
				return Card{}, fmt.Errorf("set_parent_class needs a class key or clear")
			}
			parent := a.Key
			out.Parent = &parent
		}

	case ActionSetNamespace:
		if a.Clear {
			out.Namespace = nil
		} else {
			if a.Key.IsZero() {
				return Card{}, fmt.Errorf("set_namespace needs a card key or clear")
			}
			ns := a.Key
			out.Namespace = &ns
		}

	case ActionAddDependency:
		if a.Key.IsZero() {
			return Card{}, fmt.Errorf("add_dependency needs a card key")
		}
		// Adding an existing dependency is a no-op, not an error.
		if !slices.Contains(out.Deps, a.Key) {
			out.Deps = append(out.Deps, a.Key)
		}

	case ActionRemoveDependency:
		out.Deps = slices.DeleteFunc(out.Deps, func(k ir.Key) bool { return k == a.Key })

	case ActionInsertAttribute:
		if err := c.checkDescriptor(a.Attr, "insert_attribute"); err != nil {
			return Card{}, err
		}
		d := *a.Attr
		d.Back = d.Back.normalize()
		out.Attrs = append(out.Attrs, d)

	case ActionRemoveAttribute:
		if c.Kind != KindClass {
			return Card{}, fmt.Errorf("remove_attribute applies to classes, not %s cards", c.Kind)
		}
		out.Attrs = slices.DeleteFunc(out.Attrs, func(x Attr) bool { return x.ID == a.AttrID })

	case ActionInsertParam:
		if err := c.checkDescriptor(a.Attr, "insert_param"); err != nil {
			return Card{}, err
		}
		d := *a.Attr
		d.Back = d.Back.normalize()
		out.Params = append(out.Params, d)

	case ActionRemoveParam:
		if c.Kind != KindClass {
			return Card{}, fmt.Errorf("remove_param applies to classes, not %s cards", c.Kind)
		}
		out.Params = slices.DeleteFunc(out.Params, func(x Attr) bool { return x.ID == a.AttrID })

	case ActionSetAnswer:
		if c.Kind != KindInstance {
			return Card{}, fmt.Errorf("set_answer applies to instances, not %s cards", c.Kind)
		}
		if a.AttrID.IsZero() || a.Back == nil {
			return Card{}, fmt.Errorf("set_answer needs a parameter id and a back side")
		}
		if out.Answers == nil {
			out.Answers = make(map[string]BackSide)
		}
		out.Answers[a.AttrID.String()] = *a.Back

	case ActionRemoveAnswer:
		if c.Kind != KindInstance {
			return Card{}, fmt.Errorf("remove_answer applies to instances, not %s cards", c.Kind)
		}
		delete(out.Answers, a.AttrID.String())

	case ActionSetSuspended:
		out.Suspended = a.Flag

	case ActionSetTrivial:
		out.Trivial = a.Flag

	default:
		return Card{}, fmt.Errorf("unknown card action %q", a.Kind)
	}

	return out, nil
}

// checkTransition enforces the kind state machine: unfinished may become
// any terminal kind; a terminal kind never changes. Re-applying the
// current kind is allowed so names can be updated in place.
func (c Card) checkTransition(to Kind) error {
	if c.Kind == KindUnfinished || c.Kind == to {
		return nil
	}
	return fmt.Errorf("cannot change a %s card to %s", c.Kind, to)
}

// setBack sets the answer side. Giving an unfinished card a back side
// finishes it as a normal card. Statements have no back side.
func (c Card) setBack(back *BackSide) (Card, error) {
	if back == nil {
		return Card{}, fmt.Errorf("set_back needs a back side")
	}
	switch c.Kind {
	case KindStatement:
		return Card{}, fmt.Errorf("statements have no back side")
	case KindUnfinished:
		c.Kind = KindNormal
	}
	copied := *back
	copied.List = append([]ir.Key(nil), back.List...)
	c.Back = &copied
	return c, nil
}

// checkDescriptor guards attribute and parameter insertion: class cards
// only, and descriptor ids stay unique per class across both sets.
func (c Card) checkDescriptor(attr *Attr, op string) error {
	if c.Kind != KindClass {
		return fmt.Errorf("%s applies to classes, not %s cards", op, c.Kind)
	}
	if attr == nil || attr.ID.IsZero() {
		return fmt.Errorf("%s needs a descriptor with an id", op)
	}
	if _, exists := c.Attr(attr.ID); exists {
		return fmt.Errorf("descriptor id %s already declared on this class", attr.ID)
	}
	return nil
}
