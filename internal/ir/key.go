package ir

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Key is the 128-bit identifier of an item. Keys are stable for the life
// of the item and are never reused.
type Key uuid.UUID

// ZeroKey is the absent key. It never identifies an item.
var ZeroKey Key

// NewKey returns a fresh random key.
func NewKey() Key {
	return Key(uuid.New())
}

// ParseKey parses the canonical textual form of a key.
func ParseKey(s string) (Key, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return ZeroKey, fmt.Errorf("parse key %q: %w", s, err)
	}
	return Key(id), nil
}

// MustParseKey is like ParseKey but panics on error. Use only in tests or
// when the input is known to be valid.
func MustParseKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

// KeyFromBytes decodes a key from its 16-byte form.
func KeyFromBytes(b []byte) (Key, error) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return ZeroKey, fmt.Errorf("key from bytes: %w", err)
	}
	return Key(id), nil
}

// IsZero reports whether k is the absent key.
func (k Key) IsZero() bool {
	return k == ZeroKey
}

// String returns the canonical textual form of the key.
func (k Key) String() string {
	return uuid.UUID(k).String()
}

// Bytes returns the 16-byte form of the key.
func (k Key) Bytes() []byte {
	b := uuid.UUID(k)
	return b[:]
}

// MarshalText implements encoding.TextMarshaler.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Key) UnmarshalText(text []byte) error {
	parsed, err := ParseKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Compare orders keys bytewise. Used for deterministic iteration.
func (k Key) Compare(other Key) int {
	a, b := uuid.UUID(k), uuid.UUID(other)
	for i := range a {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// KeySet is a set of keys.
type KeySet map[Key]struct{}

// NewKeySet builds a set from the given keys.
func NewKeySet(keys ...Key) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Add inserts k into the set.
func (s KeySet) Add(k Key) {
	s[k] = struct{}{}
}

// Has reports membership.
func (s KeySet) Has(k Key) bool {
	_, ok := s[k]
	return ok
}

// Clone returns an independent copy of the set.
func (s KeySet) Clone() KeySet {
	out := make(KeySet, len(s))
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

// Union adds every key of other to s and returns s.
func (s KeySet) Union(other KeySet) KeySet {
	for k := range other {
		s[k] = struct{}{}
	}
	return s
}

// Intersect keeps only keys present in both sets and returns the result.
func (s KeySet) Intersect(other KeySet) KeySet {
	out := make(KeySet)
	for k := range s {
		if other.Has(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// Subtract removes every key of other from s and returns the result.
func (s KeySet) Subtract(other KeySet) KeySet {
	out := make(KeySet)
	for k := range s {
		if !other.Has(k) {
			out[k] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in bytewise key order.
func (s KeySet) Sorted() []Key {
	out := make([]Key, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.SortFunc(out, Key.Compare)
	return out
}
