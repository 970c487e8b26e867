package ledger

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/roach88/mnemos/internal/eventlog"
	"github.com/roach88/mnemos/internal/ir"
)

// ImportStrategy selects how an incoming log is reconciled with the
// local one.
type ImportStrategy string

const (
	// FastForward requires the incoming log to be a strict extension of
	// the local chain and appends the new tail.
	FastForward ImportStrategy = "fast-forward"

	// Merge accepts overlapping logs: events are deduplicated by content
	// hash, ordered by (timestamp, content hash) past the common prefix,
	// and replayed through the full pipeline. The chain is re-linked.
	Merge ImportStrategy = "merge"

	// Reject refuses any difference between the logs.
	Reject ImportStrategy = "reject"
)

// ParseImportStrategy validates a strategy string.
func ParseImportStrategy(s string) (ImportStrategy, error) {
	switch ImportStrategy(s) {
	case FastForward, Merge, Reject:
		return ImportStrategy(s), nil
	}
	return "", fmt.Errorf("unknown import strategy %q", s)
}

// RejectedEvent records an event dropped during a merge replay.
type RejectedEvent struct {
	Event  ir.Event
	Reason error
}

// ImportReport summarizes an import.
type ImportReport struct {
	// Applied counts events the pipeline applied during reconciliation.
	// FastForward counts only the new tail; Merge counts the whole
	// re-linked chain.
	Applied int
	// Duplicates counts incoming events already present locally.
	Duplicates int
	// Rejected lists merge-replay events the pipeline refused. Only a
	// Merge import can populate this.
	Rejected []RejectedEvent
	// Cascade aggregates validation-status changes surfaced while
	// applying the incoming events.
	Cascade []Invalidation
}

// ExportLog streams the category's chain as canonical records.
func (e *Engine[T, M]) ExportLog(w io.Writer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.log.Export(w)
}

// ImportLog reconciles an exported stream with the local chain.
func (e *Engine[T, M]) ImportLog(r io.Reader, strategy ImportStrategy) (ImportReport, error) {
	remote, err := eventlog.ReadRecords(e.model.Category, r)
	if err != nil {
		return ImportReport{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch strategy {
	case FastForward:
		return e.importFastForward(remote)
	case Merge:
		return e.importMerge(remote)
	case Reject:
		return e.importReject(remote)
	default:
		return ImportReport{}, fmt.Errorf("unknown import strategy %q", strategy)
	}
}

// divergencePoint returns the first index where the local chain and the
// remote records disagree. Equal prefixes compare hashes only, which is
// sufficient because each hash covers the whole prefix.
func (e *Engine[T, M]) divergencePoint(remote []ir.Entry) (uint64, bool, error) {
	local := e.log.Len()
	limit := min(local, uint64(len(remote)))
	for i := uint64(0); i < limit; i++ {
		entry, ok, err := e.log.Entry(i)
		if err != nil {
			return 0, false, err
		}
		if !ok {
			return 0, false, fmt.Errorf("missing local record at index %d", i)
		}
		if entry.Hash != remote[i].Hash {
			return i, true, nil
		}
	}
	return limit, false, nil
}

func (e *Engine[T, M]) importFastForward(remote []ir.Entry) (ImportReport, error) {
	point, diverged, err := e.divergencePoint(remote)
	if err != nil {
		return ImportReport{}, err
	}
	if diverged || uint64(len(remote)) < e.log.Len() {
		return ImportReport{}, &RejectError{
			Code:        CodeChainDivergence,
			LocalIndex:  point,
			RemoteIndex: point,
		}
	}

	report := ImportReport{Duplicates: int(point)}
	for _, entry := range remote[point:] {
		cascade, err := e.handle(entry.Event())
		if err != nil {
			return report, fmt.Errorf("fast-forward at index %d: %w", entry.Index, err)
		}
		appended, err := e.log.Append(entry.Event())
		if err != nil {
			return report, err
		}
		// Determinism check: replaying the remote event must reproduce
		// the remote hash, because the envelope fields are identical.
		if appended.Hash != entry.Hash {
			return report, fmt.Errorf("fast-forward at index %d: chain hash mismatch after apply", entry.Index)
		}
		report.Applied++
		report.Cascade = append(report.Cascade, cascade...)
	}
	return report, nil
}

func (e *Engine[T, M]) importReject(remote []ir.Entry) (ImportReport, error) {
	point, diverged, err := e.divergencePoint(remote)
	if err != nil {
		return ImportReport{}, err
	}
	if diverged || uint64(len(remote)) != e.log.Len() {
		return ImportReport{}, &RejectError{
			Code:        CodeChainDivergence,
			LocalIndex:  point,
			RemoteIndex: point,
		}
	}
	return ImportReport{Duplicates: len(remote)}, nil
}

func (e *Engine[T, M]) importMerge(remote []ir.Entry) (ImportReport, error) {
	point, _, err := e.divergencePoint(remote)
	if err != nil {
		return ImportReport{}, err
	}

	// Events up to the common prefix stay as they are; both tails are
	// deduplicated by content hash and re-ordered deterministically.
	var prefix []ir.Event
	seen := make(map[string]struct{})
	for i := uint64(0); i < point; i++ {
		entry, _, err := e.log.Entry(i)
		if err != nil {
			return ImportReport{}, err
		}
		prefix = append(prefix, entry.Event())
		seen[entry.Event().ContentHash()] = struct{}{}
	}

	type tailEvent struct {
		ev   ir.Event
		hash string
	}
	var tail []tailEvent
	duplicates := 0
	appendTail := func(ev ir.Event) {
		hash := ev.ContentHash()
		if _, dup := seen[hash]; dup {
			duplicates++
			return
		}
		seen[hash] = struct{}{}
		tail = append(tail, tailEvent{ev: ev, hash: hash})
	}

	localLen := e.log.Len()
	for i := point; i < localLen; i++ {
		entry, _, err := e.log.Entry(i)
		if err != nil {
			return ImportReport{}, err
		}
		appendTail(entry.Event())
	}
	for _, entry := range remote[point:] {
		appendTail(entry.Event())
	}

	slices.SortFunc(tail, func(a, b tailEvent) int {
		if a.ev.Timestamp != b.ev.Timestamp {
			if a.ev.Timestamp < b.ev.Timestamp {
				return -1
			}
			return 1
		}
		return strings.Compare(a.hash, b.hash)
	})

	// Re-link: wipe the chain and all projected state, then replay the
	// merged sequence through the full pipeline.
	if err := e.resetState(); err != nil {
		return ImportReport{}, err
	}

	report := ImportReport{Duplicates: duplicates}
	apply := func(ev ir.Event, rejectable bool) error {
		cascade, err := e.handle(ev)
		if err != nil {
			if rejectable && IsReject(err) {
				report.Rejected = append(report.Rejected, RejectedEvent{Event: ev, Reason: err})
				return nil
			}
			return err
		}
		if _, err := e.log.Append(ev); err != nil {
			return err
		}
		report.Applied++
		report.Cascade = append(report.Cascade, cascade...)
		return nil
	}

	for _, ev := range prefix {
		if err := apply(ev, false); err != nil {
			return report, fmt.Errorf("merge: common prefix replay failed: %w", err)
		}
	}
	for _, te := range tail {
		if err := apply(te.ev, true); err != nil {
			return report, err
		}
	}
	return report, nil
}

// resetState drops every projected structure and the chain itself.
// Only importMerge calls this, under the write lock.
func (e *Engine[T, M]) resetState() error {
	var keys []string
	err := e.store.Scan(e.itemNS, func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	})
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := e.store.Delete(e.itemNS, key); err != nil {
			return err
		}
	}

	if err := e.log.Reset(); err != nil {
		return err
	}

	e.present = make(ir.KeySet)
	e.deps = make(map[ir.Key]ir.RefMap)
	e.rdeps = make(map[ir.RefKind]map[ir.Key]ir.KeySet)
	e.props = make(map[ir.Property]ir.KeySet)
	e.itemProps = make(map[ir.Key]map[ir.Property]struct{})
	e.invalid = make(map[ir.Key]string)
	e.cache.purge()
	return nil
}
