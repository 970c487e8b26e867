// Package review defines the review-history item category.
//
// A review item is keyed by the card it tracks and holds the append-only
// list of recall grades. It runs on the same ledger engine as cards but
// in its own category: the card core never reads review records, and
// review items carry no references into the card graph - the shared key
// is the only coupling.
package review

import (
	"fmt"

	"github.com/roach88/mnemos/internal/ir"
	"github.com/roach88/mnemos/internal/ledger"
)

// Grade is the recall quality of one review, from 1 (failed) to 4
// (perfect).
type Grade int64

const (
	GradeFailed  Grade = 1
	GradeHard    Grade = 2
	GradeGood    Grade = 3
	GradePerfect Grade = 4
)

func (g Grade) valid() bool {
	return g >= GradeFailed && g <= GradePerfect
}

// Entry is one recorded review.
type Entry struct {
	Timestamp int64
	Grade     Grade
}

// Review is the per-card review history. The item key IS the card key.
type Review struct {
	ID      ir.Key
	Entries []Entry
}

// New returns an empty history for a card.
func New(id ir.Key) Review {
	return Review{ID: id}
}

// ItemKey implements the ledger item interface.
func (r Review) ItemKey() ir.Key { return r.ID }

// Action is the review modifier: appending one entry.
type Action struct {
	Timestamp int64
	Grade     Grade
}

// Apply appends the entry. Histories only grow; grades must be in range
// and timestamps must not go backwards.
func (r Review) Apply(a Action) (Review, error) {
	if !a.Grade.valid() {
		return Review{}, fmt.Errorf("grade %d out of range", a.Grade)
	}
	if n := len(r.Entries); n > 0 && a.Timestamp < r.Entries[n-1].Timestamp {
		return Review{}, fmt.Errorf("review timestamp %d before latest %d", a.Timestamp, r.Entries[n-1].Timestamp)
	}

	out := r
	out.Entries = append(append([]Entry(nil), r.Entries...), Entry{Timestamp: a.Timestamp, Grade: a.Grade})
	return out, nil
}

// Refs returns no edges: review items do not participate in the card
// DAG.
func (r Review) Refs() ir.RefMap { return nil }

// Properties indexes whether the card has been reviewed at all and the
// latest grade.
func (r Review) Properties() []ir.Property {
	if len(r.Entries) == 0 {
		return []ir.Property{ir.Prop("reviewed", "false")}
	}
	latest := r.Entries[len(r.Entries)-1]
	return []ir.Property{
		ir.Prop("reviewed", "true"),
		ir.Prop("last_grade", fmt.Sprintf("%d", latest.Grade)),
	}
}

// Validate re-checks the growth invariants on the whole history, since a
// Create payload arrives unchecked.
func (r Review) Validate(ledger.Resolver[Review]) error {
	prev := int64(0)
	for i, entry := range r.Entries {
		if !entry.Grade.valid() {
			return fmt.Errorf("entry %d: grade %d out of range", i, entry.Grade)
		}
		if i > 0 && entry.Timestamp < prev {
			return fmt.Errorf("entry %d: timestamp %d before %d", i, entry.Timestamp, prev)
		}
		prev = entry.Timestamp
	}
	return nil
}

// Model binds the review type to the "reviews" ledger category.
func Model() ledger.Model[Review, Action] {
	return ledger.Model[Review, Action]{
		Category:       "reviews",
		EncodeItem:     encode,
		DecodeItem:     decode,
		EncodeModifier: encodeAction,
		DecodeModifier: decodeAction,
	}
}

func encode(r Review) ([]byte, error) {
	entries := make(ir.Arr, len(r.Entries))
	for i, entry := range r.Entries {
		entries[i] = ir.Obj{
			"ts":    ir.Int(entry.Timestamp),
			"grade": ir.Int(entry.Grade),
		}
	}
	obj := ir.Obj{"id": ir.Str(r.ID.String())}
	if len(entries) > 0 {
		obj["entries"] = entries
	}
	return ir.MarshalCanonical(obj)
}

func decode(data []byte) (Review, error) {
	v, err := ir.UnmarshalValue(data)
	if err != nil {
		return Review{}, err
	}
	obj, ok := v.(ir.Obj)
	if !ok {
		return Review{}, fmt.Errorf("review payload is not an object")
	}

	id, err := obj.GetKey("id")
	if err != nil {
		return Review{}, err
	}
	r := Review{ID: id}
	for i, raw := range obj.GetArr("entries") {
		entry, ok := raw.(ir.Obj)
		if !ok {
			return Review{}, fmt.Errorf("entry %d is not an object", i)
		}
		r.Entries = append(r.Entries, Entry{
			Timestamp: entry.GetInt("ts"),
			Grade:     Grade(entry.GetInt("grade")),
		})
	}
	return r, nil
}

func encodeAction(a Action) ([]byte, error) {
	return ir.MarshalCanonical(ir.Obj{
		"ts":    ir.Int(a.Timestamp),
		"grade": ir.Int(a.Grade),
	})
}

func decodeAction(data []byte) (Action, error) {
	v, err := ir.UnmarshalValue(data)
	if err != nil {
		return Action{}, err
	}
	obj, ok := v.(ir.Obj)
	if !ok {
		return Action{}, fmt.Errorf("review action payload is not an object")
	}
	return Action{Timestamp: obj.GetInt("ts"), Grade: Grade(obj.GetInt("grade"))}, nil
}
