package ledger

import "github.com/roach88/mnemos/internal/ir"

// Resolver is the read-only handle a validator uses to inspect other
// items. During validation of a candidate form it resolves the candidate
// itself, so invariants can be checked against the state the commit would
// produce.
type Resolver[T any] interface {
	// Resolve returns the current form of key, or false when absent.
	Resolve(key ir.Key) (T, bool)
}

// Item is the capability set an item type exposes to the engine.
//
// T is the item type itself, M its modifier type. All methods are pure:
// no side effects, no I/O, no wall-clock reads. The engine is the only
// caller.
type Item[T, M any] interface {
	// ItemKey returns the stable identifier.
	ItemKey() ir.Key

	// Apply runs one modifier against the item and returns the new form.
	// Apply is total: inapplicable modifiers return an error rather than
	// panic. The receiver must not be mutated.
	Apply(mod M) (T, error)

	// Refs returns the outgoing references grouped by kind.
	Refs() ir.RefMap

	// Properties returns the indexable properties of the current form.
	Properties() []ir.Property

	// Validate checks invariants that involve other items. The resolver
	// reflects the candidate state being validated.
	Validate(res Resolver[T]) error
}

// Model binds an item type to a category: its name, codecs, and the
// weakness predicate for reference kinds. The codecs must be canonical -
// EncodeItem(DecodeItem(b)) == b - because encoded payloads participate
// in chain hashes.
type Model[T Item[T, M], M any] struct {
	// Category names the event-log category (e.g. "cards", "reviews").
	Category string

	// EncodeItem / DecodeItem convert an item to and from canonical JSON.
	EncodeItem func(T) ([]byte, error)
	DecodeItem func([]byte) (T, error)

	// EncodeModifier / DecodeModifier convert a modifier to and from
	// canonical JSON.
	EncodeModifier func(M) ([]byte, error)
	DecodeModifier func([]byte) (M, error)

	// Weak reports whether edges of the given kind may dangle. A dangling
	// weak reference marks the item invalid instead of rejecting the
	// event. Nil means every kind is strong.
	Weak func(ir.RefKind) bool
}

func (m Model[T, M]) weak(kind ir.RefKind) bool {
	return m.Weak != nil && m.Weak(kind)
}
