package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mnemos/internal/ir"
)

// mapResolver is a fixed-state resolver for validator tests.
type mapResolver map[ir.Key]Card

func (m mapResolver) Resolve(k ir.Key) (Card, bool) {
	c, ok := m[k]
	return c, ok
}

func classCard(id ir.Key, name string, parent *ir.Key, attrs ...Attr) Card {
	return Card{ID: id, Kind: KindClass, Front: name, Parent: parent, Attrs: attrs}
}

func instanceCard(id ir.Key, name string, class ir.Key) Card {
	return Card{ID: id, Kind: KindInstance, Front: name, Class: class}
}

func TestValidate_Instance(t *testing.T) {
	classKey, instKey := ir.NewKey(), ir.NewKey()
	res := mapResolver{classKey: classCard(classKey, "language", nil)}

	inst := instanceCard(instKey, "Rust", classKey)
	assert.NoError(t, inst.Validate(res))

	// Class key pointing at a non-class card fails.
	res[classKey] = Card{ID: classKey, Kind: KindNormal, Front: "not a class"}
	assert.Error(t, inst.Validate(res))
}

func TestValidate_ClassParent(t *testing.T) {
	parentKey, childKey := ir.NewKey(), ir.NewKey()
	res := mapResolver{parentKey: classCard(parentKey, "person", nil)}

	child := classCard(childKey, "scientist", &parentKey)
	assert.NoError(t, child.Validate(res))

	res[parentKey] = instanceCard(parentKey, "oops", ir.NewKey())
	assert.Error(t, child.Validate(res))
}

// TestValidate_AttributeInheritance mirrors the birthdate scenario: the
// attribute lives on the parent class, the instance belongs to the child
// class, and the answer type must match the constraint.
func TestValidate_AttributeInheritance(t *testing.T) {
	person, scientist, einstein := ir.NewKey(), ir.NewKey(), ir.NewKey()
	birthdate := ir.NewKey()

	res := mapResolver{
		person: classCard(person, "person", nil,
			Attr{ID: birthdate, Pattern: "when was {} born?", Back: Constraint{Kind: ConstraintTime}}),
		scientist: classCard(scientist, "scientist", &person),
		einstein:  instanceCard(einstein, "Einstein", scientist),
	}

	back := TimeBack(-2866262400) // 1879-03-14
	answer := Card{
		ID:        ir.NewKey(),
		Kind:      KindAttribute,
		Attribute: birthdate,
		AttrClass: person,
		Instance:  einstein,
		Back:      &back,
	}
	assert.NoError(t, answer.Validate(res))

	// Text back against a timestamp constraint is a type mismatch.
	textBack := TextBack("early spring")
	answer.Back = &textBack
	err := answer.Validate(res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "back_type_mismatch")

	// Missing back side.
	answer.Back = nil
	assert.Error(t, answer.Validate(res))

	// Unknown attribute id.
	answer.Back = &back
	answer.Attribute = ir.NewKey()
	assert.Error(t, answer.Validate(res))

	// Wrong owning class recorded.
	answer.Attribute = birthdate
	answer.AttrClass = scientist
	assert.Error(t, answer.Validate(res))
}

func TestValidate_InstanceOfConstraint(t *testing.T) {
	country, city, norway, oslo, language := ir.NewKey(), ir.NewKey(), ir.NewKey(), ir.NewKey(), ir.NewKey()
	capital := ir.NewKey()

	res := mapResolver{
		country: classCard(country, "country", nil,
			Attr{ID: capital, Pattern: "capital of {}", Back: Constraint{Kind: ConstraintInstanceOf, Class: city}}),
		city:     classCard(city, "city", nil),
		norway:   instanceCard(norway, "Norway", country),
		oslo:     instanceCard(oslo, "Oslo", city),
		language: classCard(language, "language", nil),
	}

	back := CardBack(oslo)
	answer := Card{
		ID:        ir.NewKey(),
		Kind:      KindAttribute,
		Attribute: capital,
		AttrClass: country,
		Instance:  norway,
		Back:      &back,
	}
	assert.NoError(t, answer.Validate(res))

	// An instance of the wrong class fails the constraint.
	wrongBack := CardBack(norway)
	answer.Back = &wrongBack
	assert.Error(t, answer.Validate(res))

	// A non-instance reference fails too.
	classBack := CardBack(language)
	answer.Back = &classBack
	assert.Error(t, answer.Validate(res))
}

func TestValidate_InstanceAnswers(t *testing.T) {
	classKey, instKey := ir.NewKey(), ir.NewKey()
	param := ir.NewKey()

	class := classCard(classKey, "language", nil)
	class.Params = []Attr{{ID: param, Pattern: "compiled?", Back: Constraint{Kind: ConstraintBool}}}
	res := mapResolver{classKey: class}

	inst := instanceCard(instKey, "Rust", classKey)
	inst.Answers = map[string]BackSide{param.String(): BoolBack(true)}
	assert.NoError(t, inst.Validate(res))

	// Type mismatch on the inline answer.
	inst.Answers[param.String()] = TextBack("yes")
	assert.Error(t, inst.Validate(res))

	// Answer for an undeclared parameter.
	inst.Answers = map[string]BackSide{ir.NewKey().String(): BoolBack(true)}
	assert.Error(t, inst.Validate(res))
}

func TestValidate_DuplicateDescriptorIds(t *testing.T) {
	id := ir.NewKey()
	class := classCard(ir.NewKey(), "broken", nil, Attr{ID: id}, Attr{ID: id})
	assert.Error(t, class.Validate(mapResolver{}))
}

func TestDisplayFront_AttributePattern(t *testing.T) {
	person, einstein, birthdate := ir.NewKey(), ir.NewKey(), ir.NewKey()
	res := mapResolver{
		person: classCard(person, "person", nil,
			Attr{ID: birthdate, Pattern: "when was {} born?", Back: Constraint{Kind: ConstraintTime}}),
		einstein: instanceCard(einstein, "Einstein", person),
	}

	back := TimeBack(0)
	answer := Card{
		ID: ir.NewKey(), Kind: KindAttribute,
		Attribute: birthdate, AttrClass: person, Instance: einstein, Back: &back,
	}
	assert.Equal(t, "when was Einstein born?", DisplayFront(answer, res))

	// Pattern without a placeholder prefixes the instance name.
	withPrefix := res[person]
	withPrefix.Attrs[0].Pattern = "birthdate"
	res[person] = withPrefix
	assert.Equal(t, "birthdate: Einstein", DisplayFront(answer, res))
}
