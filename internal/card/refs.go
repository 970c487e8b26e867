package card

import "github.com/roach88/mnemos/internal/ir"

// Reference kinds of the card graph. Every kind contributes to the
// dependency edge set; the label is kept so queries can filter by kind.
const (
	// RefExplicitDep marks a declared prerequisite.
	RefExplicitDep ir.RefKind = "explicit_dep"
	// RefClassOfInstance points from an instance to its class.
	RefClassOfInstance ir.RefKind = "class_of_instance"
	// RefParentClass points from a class to its parent.
	RefParentClass ir.RefKind = "parent_class"
	// RefNamespace points to the namespace card.
	RefNamespace ir.RefKind = "namespace"
	// RefInstanceOfAttr points from an attribute answer to the answering
	// instance.
	RefInstanceOfAttr ir.RefKind = "instance_of_attr"
	// RefAttrClass points from an attribute answer to the class that owns
	// the attribute.
	RefAttrClass ir.RefKind = "attr_class"
	// RefLinkedInText marks a reference embedded in front or back text.
	// This is the only weak kind: it may dangle, invalidating the card.
	RefLinkedInText ir.RefKind = "linked_in_text"
	// RefBackside marks a back side that IS a card reference.
	RefBackside ir.RefKind = "backside_ref"
)

// Weak reports whether a kind may dangle. Only text links are weak -
// that preserves authoring ergonomics while everything structural stays
// referentially closed.
func Weak(kind ir.RefKind) bool {
	return kind == RefLinkedInText
}

// Refs extracts the outgoing references of the card, grouped by kind.
// Pure: the engine indexes the result and maintains the inverse.
func (c Card) Refs() ir.RefMap {
	refs := make(ir.RefMap)

	for _, k := range c.Deps {
		refs.Add(RefExplicitDep, k)
	}
	if c.Namespace != nil {
		refs.Add(RefNamespace, *c.Namespace)
	}
	for _, k := range ParseTextRefs(c.Front) {
		refs.Add(RefLinkedInText, k)
	}

	if c.Back != nil {
		for _, k := range c.Back.CardRefs() {
			refs.Add(RefBackside, k)
		}
		if c.Back.Kind == BackText {
			for _, k := range ParseTextRefs(c.Back.Text) {
				refs.Add(RefLinkedInText, k)
			}
		}
	}

	switch c.Kind {
	case KindClass:
		if c.Parent != nil {
			refs.Add(RefParentClass, *c.Parent)
		}
		// Constraint classes are prerequisites of the class declaring
		// them: answering "instance of C" requires knowing C.
		for _, set := range [][]Attr{c.Attrs, c.Params} {
			for _, a := range set {
				if a.Back.Kind == ConstraintInstanceOf && !a.Back.Class.IsZero() {
					refs.Add(RefExplicitDep, a.Back.Class)
				}
			}
		}

	case KindInstance:
		refs.Add(RefClassOfInstance, c.Class)
		for _, back := range c.Answers {
			for _, k := range back.CardRefs() {
				refs.Add(RefBackside, k)
			}
		}

	case KindAttribute:
		refs.Add(RefInstanceOfAttr, c.Instance)
		refs.Add(RefAttrClass, c.AttrClass)
	}

	return refs
}

// Properties returns the indexable properties of the card.
func (c Card) Properties() []ir.Property {
	props := []ir.Property{
		ir.Prop("kind", string(c.Kind)),
		ir.Prop("suspended", boolProp(c.Suspended)),
		ir.Prop("trivial", boolProp(c.Trivial)),
	}
	if c.Namespace != nil {
		props = append(props, ir.Prop("namespace", c.Namespace.String()))
	}
	switch c.Kind {
	case KindInstance:
		props = append(props, ir.Prop("class", c.Class.String()))
	case KindAttribute:
		props = append(props, ir.Prop("attr", c.Attribute.String()))
	}
	return props
}

func boolProp(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
