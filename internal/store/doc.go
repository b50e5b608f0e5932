// Package store provides the SQLite-backed topology store.
//
// The store keeps two planes of hwvtep state:
//   - declared: intent written by the controller
//   - observed: state reported by devices
//
// Each plane holds whole nodes (global and physical-switch) and the
// sub-entity records owned by them (logical switches, locators, MACs).
//
// # Critical Patterns
//
// Batching:
//   - Update runs a function against one SQL transaction
//   - Changes are published to subscribers only after commit, in write order
//
// Idempotent Writes:
//   - Every row stores the digest of its canonical JSON body
//   - A write with an unchanged digest is a no-op: no revision bump, no change
//
// Logical Revision:
//   - Each effective write is stamped with a monotonic seq
//   - Revision() returns the last seq; it is the write counter used by tests
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s for locks
//   - Single connection: reads inside an Update must go through the Txn
package store
