package card

import (
	"fmt"
	"sort"

	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/ledger"
)

// Model binds the card type to the "cards" ledger category.
func Model() ledger.Model[Card, Action] {
	return ledger.Model[Card, Action]{
		Category:       "cards",
		EncodeItem:     Encode,
		DecodeItem:     Decode,
		EncodeModifier: EncodeAction,
		DecodeModifier: DecodeAction,
		Weak:           Weak,
	}
}

// Encode produces the canonical JSON form of a card. Zero-valued and
// kind-irrelevant fields are omitted so the encoding is minimal and
// stable.
func Encode(c Card) ([]byte, error) {
	obj := ir.Obj{
		"id":   ir.Str(c.ID.String()),
		"kind": ir.Str(c.Kind),
	}
	if c.Front != "" {
		obj["front"] = ir.Str(c.Front)
	}
	if c.Back != nil {
		obj["back"] = encodeBack(*c.Back)
	}
	if c.Parent != nil {
		obj["parent"] = ir.Str(c.Parent.String())
	}
	if len(c.Attrs) > 0 {
		obj["attrs"] = encodeDescriptors(c.Attrs)
	}
	if len(c.Params) > 0 {
		obj["params"] = encodeDescriptors(c.Params)
	}
	if !c.Class.IsZero() {
		obj["class"] = ir.Str(c.Class.String())
	}
	if len(c.Answers) > 0 {
		answers := make(ir.Obj, len(c.Answers))
		for id, back := range c.Answers {
			answers[id] = encodeBack(back)
		}
		obj["answers"] = answers
	}
	if !c.Attribute.IsZero() {
		obj["attribute"] = ir.Str(c.Attribute.String())
	}
	if !c.AttrClass.IsZero() {
		obj["attr_class"] = ir.Str(c.AttrClass.String())
	}
	if !c.Instance.IsZero() {
		obj["instance"] = ir.Str(c.Instance.String())
	}
	if len(c.Deps) > 0 {
		obj["deps"] = encodeKeys(c.Deps)
	}
	if c.Namespace != nil {
		obj["namespace"] = ir.Str(c.Namespace.String())
	}
	if c.Suspended {
		obj["suspended"] = ir.Bool(true)
	}
	if c.Trivial {
		obj["trivial"] = ir.Bool(true)
	}
	return ir.MarshalCanonical(obj)
}

// Decode parses the canonical form back into a card.
func Decode(data []byte) (Card, error) {
	obj, err := decodeObj(data)
	if err != nil {
		return Card{}, err
	}

	id, err := obj.GetKey("id")
	if err != nil {
		return Card{}, err
	}

	c := Card{
		ID:        id,
		Kind:      Kind(obj.GetStr("kind")),
		Front:     obj.GetStr("front"),
		Suspended: obj.GetBool("suspended"),
		Trivial:   obj.GetBool("trivial"),
	}
	switch c.Kind {
	case KindUnfinished, KindNormal, KindStatement, KindClass, KindInstance, KindAttribute:
	default:
		return Card{}, fmt.Errorf("unknown card kind %q", c.Kind)
	}

	if back := obj.GetObj("back"); back != nil {
		decoded, err := decodeBack(back)
		if err != nil {
			return Card{}, fmt.Errorf("back: %w", err)
		}
		c.Back = &decoded
	}
	if _, present := obj["parent"]; present {
		parent, err := obj.GetKey("parent")
		if err != nil {
			return Card{}, err
		}
		c.Parent = &parent
	}
	if c.Attrs, err = decodeDescriptors(obj.GetArr("attrs")); err != nil {
		return Card{}, fmt.Errorf("attrs: %w", err)
	}
	if c.Params, err = decodeDescriptors(obj.GetArr("params")); err != nil {
		return Card{}, fmt.Errorf("params: %w", err)
	}
	if _, present := obj["class"]; present {
		if c.Class, err = obj.GetKey("class"); err != nil {
			return Card{}, err
		}
	}
	if answers := obj.GetObj("answers"); answers != nil {
		c.Answers = make(map[string]BackSide, len(answers))
		for id, raw := range answers {
			backObj, ok := raw.(ir.Obj)
			if !ok {
				return Card{}, fmt.Errorf("answer %s is not an object", id)
			}
			decoded, err := decodeBack(backObj)
			if err != nil {
				return Card{}, fmt.Errorf("answer %s: %w", id, err)
			}
			c.Answers[id] = decoded
		}
	}
	if _, present := obj["attribute"]; present {
		if c.Attribute, err = obj.GetKey("attribute"); err != nil {
			return Card{}, err
		}
	}
	if _, present := obj["attr_class"]; present {
		if c.AttrClass, err = obj.GetKey("attr_class"); err != nil {
			return Card{}, err
		}
	}
	if _, present := obj["instance"]; present {
		if c.Instance, err = obj.GetKey("instance"); err != nil {
			return Card{}, err
		}
	}
	if c.Deps, err = decodeKeys(obj.GetArr("deps")); err != nil {
		return Card{}, fmt.Errorf("deps: %w", err)
	}
	if _, present := obj["namespace"]; present {
		ns, err := obj.GetKey("namespace")
		if err != nil {
			return Card{}, err
		}
		c.Namespace = &ns
	}
	return c, nil
}

// EncodeAction produces the canonical JSON form of a modifier.
func EncodeAction(a Action) ([]byte, error) {
	obj := ir.Obj{"action": ir.Str(a.Kind)}
	if a.Text != "" {
		obj["text"] = ir.Str(a.Text)
	}
	if a.Back != nil {
		obj["back"] = encodeBack(*a.Back)
	}
	if !a.Key.IsZero() {
		obj["key"] = ir.Str(a.Key.String())
	}
	if a.Clear {
		obj["clear"] = ir.Bool(true)
	}
	if a.Attr != nil {
		obj["attr"] = encodeDescriptor(*a.Attr)
	}
	if !a.AttrID.IsZero() {
		obj["attr_id"] = ir.Str(a.AttrID.String())
	}
	if !a.Instance.IsZero() {
		obj["instance"] = ir.Str(a.Instance.String())
	}
	if a.Flag {
		obj["flag"] = ir.Bool(true)
	}
	return ir.MarshalCanonical(obj)
}

// DecodeAction parses the canonical form back into a modifier.
func DecodeAction(data []byte) (Action, error) {
	obj, err := decodeObj(data)
	if err != nil {
		return Action{}, err
	}

	a := Action{
		Kind:  ActionKind(obj.GetStr("action")),
		Text:  obj.GetStr("text"),
		Clear: obj.GetBool("clear"),
		Flag:  obj.GetBool("flag"),
	}
	if back := obj.GetObj("back"); back != nil {
		decoded, err := decodeBack(back)
		if err != nil {
			return Action{}, fmt.Errorf("back: %w", err)
		}
		a.Back = &decoded
	}
	if _, present := obj["key"]; present {
		if a.Key, err = obj.GetKey("key"); err != nil {
			return Action{}, err
		}
	}
	if attr := obj.GetObj("attr"); attr != nil {
		decoded, err := decodeDescriptor(attr)
		if err != nil {
			return Action{}, fmt.Errorf("attr: %w", err)
		}
		a.Attr = &decoded
	}
	if _, present := obj["attr_id"]; present {
		if a.AttrID, err = obj.GetKey("attr_id"); err != nil {
			return Action{}, err
		}
	}
	if _, present := obj["instance"]; present {
		if a.Instance, err = obj.GetKey("instance"); err != nil {
			return Action{}, err
		}
	}
	return a, nil
}

func decodeObj(data []byte) (ir.Obj, error) {
	v, err := ir.UnmarshalValue(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(ir.Obj)
	if !ok {
		return nil, fmt.Errorf("payload is not an object")
	}
	return obj, nil
}

func encodeBack(b BackSide) ir.Obj {
	obj := ir.Obj{"type": ir.Str(b.Kind)}
	switch b.Kind {
	case BackText:
		obj["text"] = ir.Str(b.Text)
	case BackBool:
		obj["bool"] = ir.Bool(b.Bool)
	case BackTime:
		obj["time"] = ir.Int(b.Time)
	case BackCard:
		obj["card"] = ir.Str(b.Card.String())
	case BackList:
		// List order is author-chosen; keep it.
		arr := make(ir.Arr, len(b.List))
		for i, k := range b.List {
			arr[i] = ir.Str(k.String())
		}
		obj["list"] = arr
	}
	return obj
}

func decodeBack(obj ir.Obj) (BackSide, error) {
	b := BackSide{Kind: BackKind(obj.GetStr("type"))}
	switch b.Kind {
	case BackText:
		b.Text = obj.GetStr("text")
	case BackBool:
		b.Bool = obj.GetBool("bool")
	case BackTime:
		b.Time = obj.GetInt("time")
	case BackCard:
		card, err := obj.GetKey("card")
		if err != nil {
			return BackSide{}, err
		}
		b.Card = card
	case BackList:
		list, err := decodeKeys(obj.GetArr("list"))
		if err != nil {
			return BackSide{}, err
		}
		b.List = list
	default:
		return BackSide{}, fmt.Errorf("unknown back side type %q", b.Kind)
	}
	return b, nil
}

func encodeDescriptor(a Attr) ir.Obj {
	obj := ir.Obj{
		"id":      ir.Str(a.ID.String()),
		"pattern": ir.Str(a.Pattern),
	}
	back := a.Back.normalize()
	if back.Kind != ConstraintText {
		obj["constraint"] = ir.Str(back.Kind)
		if back.Kind == ConstraintInstanceOf {
			obj["class"] = ir.Str(back.Class.String())
		}
	}
	return obj
}

func decodeDescriptor(obj ir.Obj) (Attr, error) {
	id, err := obj.GetKey("id")
	if err != nil {
		return Attr{}, err
	}
	a := Attr{ID: id, Pattern: obj.GetStr("pattern")}

	kind := ConstraintKind(obj.GetStr("constraint"))
	switch kind {
	case "", ConstraintText:
		a.Back = Constraint{Kind: ConstraintText}
	case ConstraintBool, ConstraintTime:
		a.Back = Constraint{Kind: kind}
	case ConstraintInstanceOf:
		class, err := obj.GetKey("class")
		if err != nil {
			return Attr{}, err
		}
		a.Back = Constraint{Kind: kind, Class: class}
	default:
		return Attr{}, fmt.Errorf("unknown constraint kind %q", kind)
	}
	return a, nil
}

// encodeDescriptors sorts by id so the encoding is order-insensitive.
func encodeDescriptors(attrs []Attr) ir.Arr {
	sorted := append([]Attr(nil), attrs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID.Compare(sorted[j].ID) < 0 })
	arr := make(ir.Arr, len(sorted))
	for i, a := range sorted {
		arr[i] = encodeDescriptor(a)
	}
	return arr
}

func decodeDescriptors(arr ir.Arr) ([]Attr, error) {
	if len(arr) == 0 {
		return nil, nil
	}
	out := make([]Attr, 0, len(arr))
	for i, raw := range arr {
		obj, ok := raw.(ir.Obj)
		if !ok {
			return nil, fmt.Errorf("descriptor %d is not an object", i)
		}
		a, err := decodeDescriptor(obj)
		if err != nil {
			return nil, fmt.Errorf("descriptor %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func encodeKeys(keys []ir.Key) ir.Arr {
	sorted := ir.NewKeySet(keys...).Sorted()
	arr := make(ir.Arr, len(sorted))
	for i, k := range sorted {
		arr[i] = ir.Str(k.String())
	}
	return arr
}

func decodeKeys(arr ir.Arr) ([]ir.Key, error) {
	if len(arr) == 0 {
		return nil, nil
	}
	out := make([]ir.Key, 0, len(arr))
	for i, raw := range arr {
		s, ok := raw.(ir.Str)
		if !ok {
			return nil, fmt.Errorf("key %d is not a string", i)
		}
		k, err := ir.ParseKey(string(s))
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}
