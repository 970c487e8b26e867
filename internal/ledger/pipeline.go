package ledger

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/mnemos/internal/ir"
)

// ValidProperty is the engine-maintained property reflecting validation
// status. Item models must not declare a property with this name.
const ValidProperty = "valid"

// handle runs the apply pipeline for one event and commits it. The log
// append is the caller's job. Callers hold the write lock.
func (e *Engine[T, M]) handle(ev ir.Event) ([]Invalidation, error) {
	switch ev.Op {
	case ir.OpCreate, ir.OpModify:
		return e.handleUpsert(ev)
	case ir.OpDelete:
		return e.handleDelete(ev)
	default:
		return nil, rejectMalformed(ev.Target, fmt.Errorf("unknown op %q", ev.Op))
	}
}

func (e *Engine[T, M]) handleUpsert(ev ir.Event) ([]Invalidation, error) {
	key := ev.Target

	// 1. Resolve current item.
	var candidate T
	switch ev.Op {
	case ir.OpCreate:
		if e.present.Has(key) {
			return nil, rejectKeyExists(key)
		}
		item, err := e.model.DecodeItem(ev.Payload)
		if err != nil {
			return nil, rejectMalformed(key, err)
		}
		if item.ItemKey() != key {
			return nil, rejectMalformed(key, fmt.Errorf("payload key %s does not match target", item.ItemKey()))
		}
		candidate = item

	case ir.OpModify:
		current, ok, err := e.loadItem(key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, rejectUnknownKey(key)
		}
		mod, err := e.model.DecodeModifier(ev.Payload)
		if err != nil {
			return nil, rejectMalformed(key, err)
		}
		// 2. Run the modifier against a copy.
		candidate, err = current.Apply(mod)
		if err != nil {
			return nil, rejectInvalidModifier(key, err)
		}
		if candidate.ItemKey() != key {
			return nil, rejectInvalidModifier(key, fmt.Errorf("modifier changed item key to %s", candidate.ItemKey()))
		}
	}

	// 3. Extract candidate references.
	refs := candidate.Refs()

	// 4. Existence check. Weak kinds may dangle (the item is marked
	// invalid below); strong kinds reject.
	dangle, err := e.checkExistence(key, refs)
	if err != nil {
		return nil, err
	}

	// 5. Cycle check over the index with the candidate's edges
	// substituted for its old ones.
	if path := e.findCycle(key, refs); path != nil {
		return nil, rejectCycle(key, path)
	}

	// 7 (before commit). Validate the candidate against the state the
	// commit would produce; rejection here means nothing was written.
	res := overlay[T, M]{engine: e, key: key, item: candidate}
	if err := candidate.Validate(res); err != nil {
		return nil, rejectInvariant(key, err)
	}

	// 6. Commit: item blob, edge indices, property indices.
	if err := e.commitUpsert(key, candidate, refs); err != nil {
		return nil, err
	}

	// Record the candidate's own status: weak dangles invalidate without
	// rejecting.
	var changes []Invalidation
	if change, ok := e.setStatus(key, dangle.reason()); ok {
		changes = append(changes, change)
	}

	// 8. Cascade validate dependents; new invalidations are surfaced,
	// never rejected.
	changes = append(changes, e.cascadeValidate(key)...)
	return changes, nil
}

func (e *Engine[T, M]) handleDelete(ev ir.Event) ([]Invalidation, error) {
	key := ev.Target
	if !e.present.Has(key) {
		return nil, rejectUnknownKey(key)
	}

	if orphans := e.dependentsOf(key); len(orphans) > 0 {
		return nil, rejectOrphans(key, orphans.Sorted())
	}

	if err := e.commitDelete(key); err != nil {
		return nil, err
	}

	// Items that referenced the victim weakly would be cascade
	// candidates, but delete requires an empty dependent set, so the
	// cascade is vacuous here by construction of invariant 8.
	return nil, nil
}

// weakDangle describes a tolerated missing weak reference.
type weakDangle struct {
	kind    ir.RefKind
	missing ir.Key
}

// checkExistence verifies every referenced key resolves. A missing
// strong reference rejects; the first missing weak one is returned so the
// caller can mark the item invalid.
func (e *Engine[T, M]) checkExistence(key ir.Key, refs ir.RefMap) (*weakDangle, error) {
	kinds := make([]string, 0, len(refs))
	for kind := range refs {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	var dangle *weakDangle
	for _, k := range kinds {
		kind := ir.RefKind(k)
		for _, to := range refs[kind].Sorted() {
			if to == key || e.present.Has(to) {
				continue
			}
			if !e.model.weak(kind) {
				return nil, rejectDangling(key, to, kind)
			}
			if dangle == nil {
				dangle = &weakDangle{kind: kind, missing: to}
			}
		}
	}
	return dangle, nil
}

// reason renders the dangle for the validation-status index. Nil means
// no dangle and reads as valid.
func (d *weakDangle) reason() string {
	if d == nil {
		return ""
	}
	return fmt.Sprintf("unresolved %s reference to %s", d.kind, d.missing)
}

// commitUpsert applies the index and storage deltas for a new form.
func (e *Engine[T, M]) commitUpsert(key ir.Key, item T, refs ir.RefMap) error {
	encoded, err := e.model.EncodeItem(item)
	if err != nil {
		return fmt.Errorf("encode item %s: %w", key, err)
	}
	if err := e.store.Put(e.itemNS, key.String(), encoded); err != nil {
		return err
	}

	old := e.deps[key]
	e.applyEdgeDelta(key, old, refs)
	e.applyPropertyDelta(key, item.Properties())

	e.present.Add(key)
	e.cache.put(key, item)
	return nil
}

func (e *Engine[T, M]) commitDelete(key ir.Key) error {
	if err := e.store.Delete(e.itemNS, key.String()); err != nil {
		return err
	}

	e.applyEdgeDelta(key, e.deps[key], nil)
	delete(e.deps, key)

	for prop := range e.itemProps[key] {
		e.dropProp(prop, key)
	}
	delete(e.itemProps, key)
	e.dropStatusProps(key)
	delete(e.invalid, key)

	delete(e.present, key)
	e.cache.invalidate(key)
	return nil
}

// applyEdgeDelta moves the outgoing and inverse indices from old to new.
func (e *Engine[T, M]) applyEdgeDelta(key ir.Key, old, new ir.RefMap) {
	for kind, targets := range old {
		for to := range targets {
			if new[kind].Has(to) {
				continue
			}
			if byTarget := e.rdeps[kind]; byTarget != nil {
				delete(byTarget[to], key)
				if len(byTarget[to]) == 0 {
					delete(byTarget, to)
				}
			}
		}
	}
	for kind, targets := range new {
		for to := range targets {
			if old[kind].Has(to) {
				continue
			}
			byTarget := e.rdeps[kind]
			if byTarget == nil {
				byTarget = make(map[ir.Key]ir.KeySet)
				e.rdeps[kind] = byTarget
			}
			if byTarget[to] == nil {
				byTarget[to] = make(ir.KeySet)
			}
			byTarget[to].Add(key)
		}
	}

	if new == nil {
		delete(e.deps, key)
	} else {
		e.deps[key] = new
	}
}

// applyPropertyDelta updates the property index incrementally:
// (old - new) removed, (new - old) added.
func (e *Engine[T, M]) applyPropertyDelta(key ir.Key, newProps []ir.Property) {
	next := make(map[ir.Property]struct{}, len(newProps))
	for _, p := range newProps {
		next[p] = struct{}{}
	}

	for p := range e.itemProps[key] {
		if _, keep := next[p]; !keep {
			e.dropProp(p, key)
		}
	}
	for p := range next {
		if e.props[p] == nil {
			e.props[p] = make(ir.KeySet)
		}
		e.props[p].Add(key)
	}
	e.itemProps[key] = next
}

func (e *Engine[T, M]) dropProp(p ir.Property, key ir.Key) {
	if set := e.props[p]; set != nil {
		delete(set, key)
		if len(set) == 0 {
			delete(e.props, p)
		}
	}
}

// setStatus records the validation status of key and maintains the
// "valid" property. Returns the change when the status actually moved.
func (e *Engine[T, M]) setStatus(key ir.Key, reason string) (Invalidation, bool) {
	prev := e.invalid[key]

	if reason == "" {
		delete(e.invalid, key)
	} else {
		e.invalid[key] = reason
	}

	e.dropStatusProps(key)
	if e.present.Has(key) {
		p := ir.Prop(ValidProperty, fmt.Sprintf("%t", reason == ""))
		if e.props[p] == nil {
			e.props[p] = make(ir.KeySet)
		}
		e.props[p].Add(key)
	}

	if reason == prev {
		return Invalidation{}, false
	}
	return Invalidation{Key: key, Reason: reason}, true
}

func (e *Engine[T, M]) dropStatusProps(key ir.Key) {
	e.dropProp(ir.Prop(ValidProperty, "true"), key)
	e.dropProp(ir.Prop(ValidProperty, "false"), key)
}

// cascadeValidate re-runs validation on every transitive dependent of
// key, in deterministic order, recording status changes.
func (e *Engine[T, M]) cascadeValidate(key ir.Key) []Invalidation {
	var changes []Invalidation
	visited := ir.NewKeySet(key)

	frontier := e.dependentsOf(key).Sorted()
	for len(frontier) > 0 {
		var next []ir.Key
		for _, dep := range frontier {
			if visited.Has(dep) {
				continue
			}
			visited.Add(dep)

			if change, ok := e.revalidate(dep); ok {
				changes = append(changes, change)
			}
			next = append(next, e.dependentsOf(dep).Sorted()...)
		}
		frontier = next
	}
	return changes
}

// revalidate recomputes the status of one committed item.
func (e *Engine[T, M]) revalidate(key ir.Key) (Invalidation, bool) {
	item, ok, err := e.loadItem(key)
	if err != nil || !ok {
		return Invalidation{}, false
	}

	reason := ""
	dangle, exErr := e.checkExistence(key, item.Refs())
	switch {
	case exErr != nil:
		// A strong reference went missing out from under a committed
		// item. Deletes forbid this, so it only happens on divergent
		// merge replays; surface it as invalidity rather than dropping
		// the item.
		var re *RejectError
		if errors.As(exErr, &re) {
			reason = re.Detail
		} else {
			reason = exErr.Error()
		}
	case dangle != nil:
		reason = dangle.reason()
	default:
		if err := item.Validate(committedView[T, M]{engine: e}); err != nil {
			reason = err.Error()
		}
	}
	return e.setStatus(key, reason)
}

// committedView adapts the engine's committed state to the Resolver
// interface. Callers hold the engine lock.
type committedView[T Item[T, M], M any] struct {
	engine *Engine[T, M]
}

func (c committedView[T, M]) Resolve(key ir.Key) (T, bool) {
	item, ok, _ := c.engine.loadItem(key)
	return item, ok
}

// overlay is the resolver view used while validating a candidate: it
// resolves the candidate itself instead of the committed form.
type overlay[T Item[T, M], M any] struct {
	engine *Engine[T, M]
	key    ir.Key
	item   T
}

func (o overlay[T, M]) Resolve(key ir.Key) (T, bool) {
	if key == o.key {
		return o.item, true
	}
	item, ok, _ := o.engine.loadItem(key)
	return item, ok
}
