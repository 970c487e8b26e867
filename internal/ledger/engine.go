package ledger

import (
	"fmt"
	"sync"
	"time"

	"github.com/roach88/mnemos/internal/blob"
	"github.com/roach88/mnemos/internal/eventlog"
	"github.com/roach88/mnemos/internal/ir"
)

// Clock supplies event timestamps. The engine never reads wall-clock
// time directly so tests and replays stay deterministic.
type Clock interface {
	Now() int64
}

type wallClock struct{}

func (wallClock) Now() int64 { return time.Now().Unix() }

// Config tunes an engine. The zero value selects wall-clock timestamps
// and the default cache size.
type Config struct {
	Clock     Clock
	CacheSize int
}

const defaultCacheSize = 512

// Engine owns the event log and every index of one item category.
//
// All mutation goes through Submit; reads take a shared lock and may run
// in parallel with each other. The engine is a value owned by its
// creator - multiple engines (categories) can coexist in one process.
type Engine[T Item[T, M], M any] struct {
	mu     sync.RWMutex
	model  Model[T, M]
	store  blob.Store
	log    *eventlog.Log
	clock  Clock
	itemNS string

	present ir.KeySet
	// deps is the outgoing-edge index; rdeps the inverse, per kind.
	deps  map[ir.Key]ir.RefMap
	rdeps map[ir.RefKind]map[ir.Key]ir.KeySet
	// props maps (name, value) to the keys carrying it; itemProps is the
	// per-item view used to compute deltas.
	props     map[ir.Property]ir.KeySet
	itemProps map[ir.Key]map[ir.Property]struct{}
	// invalid holds the reason for every currently-invalid item.
	invalid map[ir.Key]string

	cache *itemCache[T]
}

// Invalidation reports an item (the target or one of its dependents)
// whose validation status changed as a consequence of an accepted event.
type Invalidation struct {
	Key    ir.Key
	Reason string // "" means the item became valid again
}

// Result describes an accepted event.
type Result struct {
	Entry ir.Entry
	// Cascade lists the items whose validation status changed: the
	// target's own change first (if any), then dependents. The event is
	// accepted regardless; these are surfaced warnings.
	Cascade []Invalidation
}

// Open loads the category from the store, verifying the hash chain and
// replaying every event to rebuild the indices.
func Open[T Item[T, M], M any](store blob.Store, model Model[T, M]) (*Engine[T, M], error) {
	return OpenWith(store, model, Config{})
}

// OpenWith is Open with explicit configuration.
func OpenWith[T Item[T, M], M any](store blob.Store, model Model[T, M], cfg Config) (*Engine[T, M], error) {
	if cfg.Clock == nil {
		cfg.Clock = wallClock{}
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}

	log, err := eventlog.Open(store, model.Category)
	if err != nil {
		return nil, err
	}

	e := &Engine[T, M]{
		model:     model,
		store:     store,
		log:       log,
		clock:     cfg.Clock,
		itemNS:    "state/items/" + model.Category,
		present:   make(ir.KeySet),
		deps:      make(map[ir.Key]ir.RefMap),
		rdeps:     make(map[ir.RefKind]map[ir.Key]ir.KeySet),
		props:     make(map[ir.Property]ir.KeySet),
		itemProps: make(map[ir.Key]map[ir.Property]struct{}),
		invalid:   make(map[ir.Key]string),
		cache:     newItemCache[T](cfg.CacheSize),
	}

	if err := e.replay(); err != nil {
		return nil, err
	}
	return e, nil
}

// replay folds the whole log into fresh state. Events in the log were
// accepted once, so a rejection here means the log or the code changed
// underneath us.
func (e *Engine[T, M]) replay() error {
	return e.log.Walk(0, func(entry ir.Entry) error {
		if _, err := e.handle(entry.Event()); err != nil {
			return fmt.Errorf("replay %q at index %d: %w", e.model.Category, entry.Index, err)
		}
		return nil
	})
}

// Category returns the item category this engine owns.
func (e *Engine[T, M]) Category() string {
	return e.model.Category
}

// LogLen returns the number of accepted events.
func (e *Engine[T, M]) LogLen() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.log.Len()
}

// LogHead returns the chain hash of the latest accepted event.
func (e *Engine[T, M]) LogHead() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.log.Head()
}

// LogEntries returns every accepted entry in order.
func (e *Engine[T, M]) LogEntries() ([]ir.Entry, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]ir.Entry, 0, e.log.Len())
	err := e.log.Walk(0, func(entry ir.Entry) error {
		out = append(out, entry)
		return nil
	})
	return out, err
}

// Submit tries to extend the log with ev. On success the event is
// durable and every index reflects it; on rejection no state changes.
func (e *Engine[T, M]) Submit(ev ir.Event) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ev.Timestamp == 0 {
		ev.Timestamp = e.clock.Now()
	}

	cascade, err := e.handle(ev)
	if err != nil {
		return Result{}, err
	}

	entry, err := e.log.Append(ev)
	if err != nil {
		return Result{}, err
	}
	return Result{Entry: entry, Cascade: cascade}, nil
}

// SubmitCreate submits a Create event carrying item as the initial form.
func (e *Engine[T, M]) SubmitCreate(item T) (Result, error) {
	payload, err := e.model.EncodeItem(item)
	if err != nil {
		return Result{}, rejectMalformed(item.ItemKey(), err)
	}
	return e.Submit(ir.Event{Target: item.ItemKey(), Op: ir.OpCreate, Payload: payload})
}

// SubmitModify submits a Modify event carrying one modifier.
func (e *Engine[T, M]) SubmitModify(key ir.Key, mod M) (Result, error) {
	payload, err := e.model.EncodeModifier(mod)
	if err != nil {
		return Result{}, rejectMalformed(key, err)
	}
	return e.Submit(ir.Event{Target: key, Op: ir.OpModify, Payload: payload})
}

// SubmitDelete submits a Delete event.
func (e *Engine[T, M]) SubmitDelete(key ir.Key) (Result, error) {
	return e.Submit(ir.Event{Target: key, Op: ir.OpDelete})
}

// Get returns the current form of key.
func (e *Engine[T, M]) Get(key ir.Key) (T, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	item, ok, _ := e.loadItem(key)
	return item, ok
}

// Has reports whether key identifies a live item.
func (e *Engine[T, M]) Has(key ir.Key) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.present.Has(key)
}

// Keys returns every live key.
func (e *Engine[T, M]) Keys() ir.KeySet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.present.Clone()
}

// Dependencies returns the outgoing edges of key, all kinds merged.
func (e *Engine[T, M]) Dependencies(key ir.Key) ir.KeySet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.deps[key].Merged()
}

// Dependents returns the keys that reference key, all kinds merged.
func (e *Engine[T, M]) Dependents(key ir.Key) ir.KeySet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dependentsOf(key)
}

// References returns the outgoing edges of key filtered by kind.
// ir.AnyKind merges every kind.
func (e *Engine[T, M]) References(key ir.Key, kind ir.RefKind) ir.KeySet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if kind == ir.AnyKind {
		return e.deps[key].Merged()
	}
	return e.deps[key][kind].Clone()
}

// Referencing returns the incoming edges of key filtered by kind.
func (e *Engine[T, M]) Referencing(key ir.Key, kind ir.RefKind) ir.KeySet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if kind == ir.AnyKind {
		return e.dependentsOf(key)
	}
	return e.rdeps[kind][key].Clone()
}

// ByProperty returns the keys carrying (name, value).
func (e *Engine[T, M]) ByProperty(name, value string) ir.KeySet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.props[ir.Prop(name, value)].Clone()
}

// ValidationStatus returns the current status of key. The reason is ""
// for valid items.
func (e *Engine[T, M]) ValidationStatus(key ir.Key) (valid bool, reason string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	reason, bad := e.invalid[key]
	return !bad, reason
}

// dependentsOf merges the inverse index across kinds. Callers hold the
// lock.
func (e *Engine[T, M]) dependentsOf(key ir.Key) ir.KeySet {
	out := make(ir.KeySet)
	for _, byTarget := range e.rdeps {
		out.Union(byTarget[key])
	}
	return out
}

// loadItem reads an item through the cache. Callers hold at least the
// read lock.
func (e *Engine[T, M]) loadItem(key ir.Key) (T, bool, error) {
	var zero T
	if !e.present.Has(key) {
		return zero, false, nil
	}
	if item, ok := e.cache.get(key); ok {
		return item, true, nil
	}

	raw, ok, err := e.store.Get(e.itemNS, key.String())
	if err != nil || !ok {
		return zero, false, err
	}
	item, err := e.model.DecodeItem(raw)
	if err != nil {
		return zero, false, fmt.Errorf("decode item %s: %w", key, err)
	}
	e.cache.put(key, item)
	return item, true, nil
}

// Close releases nothing directly - the blob store is owned by the
// caller - but purges the cache so a half-closed engine fails loudly.
func (e *Engine[T, M]) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache.purge()
	e.present = make(ir.KeySet)
}
