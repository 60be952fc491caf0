// Package store provides SQLite-backed durable storage for entity run results.
//
// The store is an append-only log with two tables:
//   - runs: one row per entity run, successful or failed
//   - outputs: one row per published output port, keyed to its run
//
// # Ordering
//
// Rows are stamped with seq from a logical clock, never wall time. The
// clock resumes from the highest stored seq when a database is reopened.
// All reads order by seq ASC, instance ASC COLLATE BINARY.
//
// # Outputs
//
// Output data is stored in the canonical JSON encoding of ir.Payload
// together with its payload digest, so results of two runs with equal
// outputs can be matched by digest alone.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Outputs must reference a recorded run
package store
