package ir

import (
	"encoding/json"
	"fmt"
)

// Op identifies the kind of mutation an event carries.
type Op string

const (
	// OpCreate introduces a new item. The payload is the item's initial form.
	OpCreate Op = "create"
	// OpModify applies one modifier to an existing item.
	OpModify Op = "modify"
	// OpDelete removes an item. The payload is empty.
	OpDelete Op = "delete"
)

// ParseOp validates an op string.
func ParseOp(s string) (Op, error) {
	switch Op(s) {
	case OpCreate, OpModify, OpDelete:
		return Op(s), nil
	}
	return "", fmt.Errorf("unknown op %q", s)
}

// Event is one submitted mutation addressed to a single item.
// Payload is the canonical JSON encoding of the initial form (create) or
// the modifier (modify); it is empty for delete.
type Event struct {
	Target    Key
	Op        Op
	Payload   []byte
	Timestamp int64 // unix seconds
}

// ContentHash identifies the event independent of its chain position.
// Merge imports deduplicate on it.
func (e Event) ContentHash() string {
	body, _ := MarshalCanonical(Obj{
		"op":      Str(e.Op),
		"payload": Str(e.Payload),
		"target":  Str(e.Target.String()),
		"ts":      Int(e.Timestamp),
	})
	return hashWithDomain(DomainEvent, body)
}

// Entry is an event bound to its position in a hash chain.
type Entry struct {
	Index     uint64 `json:"index"`
	Prev      string `json:"prev"` // hash of the previous entry, "" at index 0
	Timestamp int64  `json:"ts"`
	Target    Key    `json:"target"`
	Op        Op     `json:"op"`
	Payload   []byte `json:"-"`
	Hash      string `json:"hash"` // derived, not part of the hashed bytes
}

// Event strips the chain fields.
func (e Entry) Event() Event {
	return Event{
		Target:    e.Target,
		Op:        e.Op,
		Payload:   e.Payload,
		Timestamp: e.Timestamp,
	}
}

// EncodeEntry produces the canonical wire form of an entry:
// a canonical JSON object of (index, op, payload, prev, target, ts).
// The hash field is NOT included; it is derived from these bytes.
func EncodeEntry(e Entry) ([]byte, error) {
	payload := Value(nil)
	if len(e.Payload) > 0 {
		v, err := UnmarshalValue(e.Payload)
		if err != nil {
			return nil, fmt.Errorf("entry %d: payload is not canonical JSON: %w", e.Index, err)
		}
		payload = v
	}

	obj := Obj{
		"index":  Int(e.Index),
		"op":     Str(e.Op),
		"prev":   Str(e.Prev),
		"target": Str(e.Target.String()),
		"ts":     Int(e.Timestamp),
	}
	if payload != nil {
		obj["payload"] = payload
	}
	return MarshalCanonical(obj)
}

// EntryHash computes the chain hash of an entry from its canonical bytes.
func EntryHash(e Entry) (string, error) {
	encoded, err := EncodeEntry(e)
	if err != nil {
		return "", err
	}
	return hashWithDomain(DomainEntry, encoded), nil
}

// DecodeEntry parses the canonical wire form back into an Entry and
// recomputes its hash.
func DecodeEntry(data []byte) (Entry, error) {
	var raw struct {
		Index   uint64          `json:"index"`
		Op      string          `json:"op"`
		Prev    string          `json:"prev"`
		Target  string          `json:"target"`
		Ts      int64           `json:"ts"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Entry{}, fmt.Errorf("decode entry: %w", err)
	}

	op, err := ParseOp(raw.Op)
	if err != nil {
		return Entry{}, fmt.Errorf("decode entry %d: %w", raw.Index, err)
	}
	target, err := ParseKey(raw.Target)
	if err != nil {
		return Entry{}, fmt.Errorf("decode entry %d: %w", raw.Index, err)
	}

	entry := Entry{
		Index:     raw.Index,
		Prev:      raw.Prev,
		Timestamp: raw.Ts,
		Target:    target,
		Op:        op,
		Payload:   []byte(raw.Payload),
	}
	entry.Hash, err = EntryHash(entry)
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}
