// Package store records harness runs and their observed events in SQLite
// so a run can be inspected or replayed offline.
//
// Events are keyed by (run_id, seq). seq is the engine's logical arrival
// order and is the only ordering used; the host's timeStamp attribute is
// stored but never sorted on. Every read orders by seq ASC.
//
// Attributes are stored as RFC 8785 canonical JSON together with a
// domain-separated SHA-256 hash, so a recording can be checked for
// tampering before it is replayed.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
