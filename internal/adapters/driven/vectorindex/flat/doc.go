// Package flat provides an exact, in-memory vector index partitioned by
// company and snapshotted to a SQLite file.
//
// Each company partition is immutable once published. Upserts copy the
// partition, apply the batch and swap the copy in, so a concurrent search
// sees either the whole batch or none of it. Writers for one company are
// serialised; different companies proceed in parallel.
//
// # Persistence
//
// Persist writes every partition to a temporary database next to the
// snapshot path and renames it over the previous snapshot. A failed
// persist leaves the previous snapshot untouched. The snapshot records the
// embedding model and vector size; Load refuses a snapshot built with a
// different model.
package flat
