package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mnemos/internal/ir"
)

func roundTrip(t *testing.T, c Card) Card {
	t.Helper()
	data, err := Encode(c)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)

	// Canonical codec: encoding the decoded form reproduces the bytes.
	again, err := Encode(decoded)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
	return decoded
}

func TestCodec_ClassRoundTrip(t *testing.T) {
	parent := ir.NewKey()
	ns := ir.NewKey()
	c := Card{
		ID:     ir.NewKey(),
		Kind:   KindClass,
		Front:  "person",
		Parent: &parent,
		Attrs: []Attr{
			{ID: ir.NewKey(), Pattern: "when was {} born?", Back: Constraint{Kind: ConstraintTime}},
			{ID: ir.NewKey(), Pattern: "alive?", Back: Constraint{Kind: ConstraintBool}},
		},
		Params: []Attr{
			{ID: ir.NewKey(), Pattern: "nationality", Back: Constraint{Kind: ConstraintInstanceOf, Class: ir.NewKey()}},
		},
		Namespace: &ns,
		Deps:      []ir.Key{ir.NewKey()},
		Suspended: true,
	}

	got := roundTrip(t, c)
	assert.Equal(t, c.Kind, got.Kind)
	assert.Equal(t, c.Front, got.Front)
	require.NotNil(t, got.Parent)
	assert.Equal(t, parent, *got.Parent)
	assert.Len(t, got.Attrs, 2)
	assert.Len(t, got.Params, 1)
	assert.True(t, got.Suspended)
}

func TestCodec_AttributeAnswerRoundTrip(t *testing.T) {
	back := TimeBack(-2866262400)
	c := Card{
		ID:        ir.NewKey(),
		Kind:      KindAttribute,
		Attribute: ir.NewKey(),
		AttrClass: ir.NewKey(),
		Instance:  ir.NewKey(),
		Back:      &back,
	}

	got := roundTrip(t, c)
	assert.Equal(t, c.Attribute, got.Attribute)
	assert.Equal(t, c.AttrClass, got.AttrClass)
	assert.Equal(t, c.Instance, got.Instance)
	require.NotNil(t, got.Back)
	assert.Equal(t, int64(-2866262400), got.Back.Time)
}

func TestCodec_BackVariants(t *testing.T) {
	k1, k2 := ir.NewKey(), ir.NewKey()
	for _, back := range []BackSide{
		TextBack("plain ⟦" + k1.String() + "⟧"),
		BoolBack(true),
		TimeBack(1700000000),
		CardBack(k1),
		ListBack(k2, k1), // order preserved, not sorted
	} {
		c := Card{ID: ir.NewKey(), Kind: KindNormal, Front: "q", Back: &back}
		got := roundTrip(t, c)
		require.NotNil(t, got.Back)
		assert.Equal(t, back, *got.Back)
	}
}

func TestCodec_InstanceWithAnswers(t *testing.T) {
	param := ir.NewKey()
	c := Card{
		ID:      ir.NewKey(),
		Kind:    KindInstance,
		Front:   "Rust",
		Class:   ir.NewKey(),
		Answers: map[string]BackSide{param.String(): BoolBack(true)},
	}

	got := roundTrip(t, c)
	assert.Equal(t, c.Class, got.Class)
	require.Len(t, got.Answers, 1)
	assert.Equal(t, BoolBack(true), got.Answers[param.String()])
}

func TestCodec_RejectsUnknownKind(t *testing.T) {
	data, err := ir.MarshalCanonical(ir.Obj{
		"id":   ir.Str(ir.NewKey().String()),
		"kind": ir.Str("event"),
	})
	require.NoError(t, err)
	_, err = Decode(data)
	assert.Error(t, err)
}

func TestCodec_ActionRoundTrip(t *testing.T) {
	back := CardBack(ir.NewKey())
	actions := []Action{
		{Kind: ActionSetFront, Text: "new front"},
		{Kind: ActionSetBack, Back: &back},
		{Kind: ActionSetInstance, Key: ir.NewKey(), Text: "Rust"},
		{Kind: ActionSetParentClass, Clear: true},
		{Kind: ActionAddDependency, Key: ir.NewKey()},
		{Kind: ActionInsertAttribute, Attr: &Attr{ID: ir.NewKey(), Pattern: "born", Back: Constraint{Kind: ConstraintTime}}},
		{Kind: ActionSetAttributeAnswer, AttrID: ir.NewKey(), Key: ir.NewKey(), Instance: ir.NewKey(), Back: &back},
		{Kind: ActionSetSuspended, Flag: true},
	}

	for _, a := range actions {
		data, err := EncodeAction(a)
		require.NoError(t, err)
		got, err := DecodeAction(data)
		require.NoError(t, err)
		assert.Equal(t, a, got, string(a.Kind))
	}
}
