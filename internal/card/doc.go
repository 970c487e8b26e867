// Package card defines the concrete item model of the cards category:
// the ontological flashcard.
//
// A card is one of six mutually exclusive kinds - class, instance,
// attribute answer, normal, statement, unfinished - sharing a display
// front, an explicit dependency set, an optional namespace, and the
// suspended/trivial flags. Kind-specific fields live on the same struct
// and are meaningful only for their kind; the codec omits them otherwise.
//
// The package implements the ledger item capability set: Apply for the
// Action modifier taxonomy, Refs for reference extraction, Properties for
// the index, and Validate for the ontological invariants. All of them are
// pure; the engine supplies the resolver.
package card
