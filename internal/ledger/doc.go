// Package ledger implements the event-sourced engine at the heart of
// mnemos.
//
// The engine folds an append-only, hash-chained event log into the
// current form of every item of one category, and maintains the
// dependency, dependent, property, and validation indices over it.
//
// ARCHITECTURE:
//
// Single-Writer Apply Pipeline:
// All submissions are serialized under one exclusive lock. Each event
// runs the full pipeline - resolve, apply modifier, extract references,
// existence check, cycle check, validate, commit, cascade-validate
// dependents, append to the log. Rejected events leave no trace. Reads
// take a shared lock and may proceed in parallel with each other.
//
// The engine is generic over the item model (Item and Model): the card
// category and the review category run on the same code. The engine
// never inspects item internals beyond the Item interface.
//
// Determinism: replaying the same event sequence into an empty engine
// reproduces every item form, every index, and every validation status
// exactly. Nothing in the pipeline reads wall-clock time or iterates a
// map without sorting.
package ledger
