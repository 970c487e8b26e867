// Package eventlog maintains the ordered, hash-chained event sequence of
// one item category on top of the blob store's append log.
//
// Every record carries the hash of its predecessor; Open walks the whole
// chain and recomputes hashes, refusing to load a category whose chain
// does not verify. Given the same records, replay is byte-deterministic.
package eventlog

import (
	"bufio"
	"fmt"
	"io"

	"github.com/roach88/mnemos/internal/blob"
	"github.com/roach88/mnemos/internal/ir"
)

// ChainError reports a hash-chain mismatch. It is fatal: the category
// must not be loaded past the corrupt record.
type ChainError struct {
	Category string
	Index    uint64
	Want     string
	Got      string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("hash chain mismatch in %q at index %d: want prev %s, got %s",
		e.Category, e.Index, e.Want, e.Got)
}

// Log is the hash-chained event sequence of one category.
type Log struct {
	store    blob.Store
	category string
	ns       string
	head     string
	count    uint64
}

func namespace(category string) string {
	return "entries/" + category
}

// Open loads the chain for category, verifying every record.
func Open(store blob.Store, category string) (*Log, error) {
	l := &Log{
		store:    store,
		category: category,
		ns:       namespace(category),
	}

	n, err := store.Len(l.ns)
	if err != nil {
		return nil, err
	}

	prev := ""
	for i := uint64(0); i < n; i++ {
		raw, ok, err := store.Read(l.ns, i)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("event log %q: missing record at index %d", category, i)
		}

		entry, err := ir.DecodeEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("event log %q: %w", category, err)
		}
		if entry.Index != i {
			return nil, fmt.Errorf("event log %q: record at %d claims index %d", category, i, entry.Index)
		}
		if entry.Prev != prev {
			return nil, &ChainError{Category: category, Index: i, Want: prev, Got: entry.Prev}
		}
		prev = entry.Hash
	}

	l.head = prev
	l.count = n
	return l, nil
}

// Append binds ev to the head of the chain and stores it.
func (l *Log) Append(ev ir.Event) (ir.Entry, error) {
	entry := ir.Entry{
		Index:     l.count,
		Prev:      l.head,
		Timestamp: ev.Timestamp,
		Target:    ev.Target,
		Op:        ev.Op,
		Payload:   ev.Payload,
	}

	var err error
	entry.Hash, err = ir.EntryHash(entry)
	if err != nil {
		return ir.Entry{}, fmt.Errorf("event log %q: %w", l.category, err)
	}

	encoded, err := ir.EncodeEntry(entry)
	if err != nil {
		return ir.Entry{}, fmt.Errorf("event log %q: %w", l.category, err)
	}

	idx, err := l.store.Append(l.ns, encoded)
	if err != nil {
		return ir.Entry{}, err
	}
	if idx != entry.Index {
		return ir.Entry{}, fmt.Errorf("event log %q: store assigned index %d, chain expected %d",
			l.category, idx, entry.Index)
	}

	l.head = entry.Hash
	l.count++
	return entry, nil
}

// Reset discards the whole chain. Only merge imports re-link a chain;
// everything else is append-only.
func (l *Log) Reset() error {
	if err := l.store.Reset(l.ns); err != nil {
		return err
	}
	l.head = ""
	l.count = 0
	return nil
}

// Entry returns the record at index.
func (l *Log) Entry(index uint64) (ir.Entry, bool, error) {
	raw, ok, err := l.store.Read(l.ns, index)
	if err != nil || !ok {
		return ir.Entry{}, false, err
	}
	entry, err := ir.DecodeEntry(raw)
	if err != nil {
		return ir.Entry{}, false, fmt.Errorf("event log %q: %w", l.category, err)
	}
	return entry, true, nil
}

// Len returns the number of records in the chain.
func (l *Log) Len() uint64 {
	return l.count
}

// Head returns the hash of the latest record, or "" for an empty chain.
func (l *Log) Head() string {
	return l.head
}

// Category returns the category this log belongs to.
func (l *Log) Category() string {
	return l.category
}

// Walk visits records [from, Len) in order.
func (l *Log) Walk(from uint64, fn func(ir.Entry) error) error {
	for i := from; i < l.count; i++ {
		entry, ok, err := l.Entry(i)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("event log %q: missing record at index %d", l.category, i)
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return nil
}

// Export writes the chain as newline-separated canonical records.
// The stream round-trips through ReadRecords.
func (l *Log) Export(w io.Writer) error {
	return l.Walk(0, func(entry ir.Entry) error {
		encoded, err := ir.EncodeEntry(entry)
		if err != nil {
			return err
		}
		if _, err := w.Write(encoded); err != nil {
			return err
		}
		_, err = w.Write([]byte("\n"))
		return err
	})
}

// ReadRecords parses an exported stream and verifies its internal chain.
func ReadRecords(category string, r io.Reader) ([]ir.Entry, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var entries []ir.Entry
	prev := ""
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		entry, err := ir.DecodeEntry(line)
		if err != nil {
			return nil, fmt.Errorf("import %q: %w", category, err)
		}
		if entry.Index != uint64(len(entries)) {
			return nil, fmt.Errorf("import %q: record %d out of order (claims %d)",
				category, len(entries), entry.Index)
		}
		if entry.Prev != prev {
			return nil, &ChainError{Category: category, Index: entry.Index, Want: prev, Got: entry.Prev}
		}
		prev = entry.Hash
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("import %q: %w", category, err)
	}
	return entries, nil
}
