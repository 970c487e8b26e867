// Package blob provides the keyed blob store backing the ledger.
//
// A Store is a durable map from (namespace, key) to opaque bytes plus an
// append-only byte log per namespace. The ledger engine persists item
// state through the keyed map and the event log through the append log;
// everything else it keeps in memory.
//
// Two backends are provided:
//   - SQLite (the durable default, WAL mode, single writer)
//   - in-memory (tests and the scenario harness)
//
// Durability contract: on successful return from Put/Append the value is
// readable by any subsequent Get/Read in the same process. Crash
// durability is backend policy, not part of the contract.
package blob
