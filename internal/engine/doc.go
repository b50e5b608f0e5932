// Package engine runs HA reconciliation work on a single consumer goroutine.
//
// ARCHITECTURE:
//
// Serializing Scheduler:
// Store change notifications arrive on whatever goroutine performed the
// write. Listeners never reconcile inline; they submit a Task and return.
// The Scheduler executes tasks one at a time in submission order, so the
// downward and upward flows never observe each other half-applied.
//
// Task Processing Flow:
// 1. A listener calls Scheduler.Submit (safe from any goroutine)
// 2. The task is stamped with a sequence number from Clock.Next()
// 3. Scheduler.Run dequeues tasks one at a time
// 4. The task reads the store, consults the membership registry, and writes
// 5. Errors are classified by ReconcileError code, logged, and dropped
//
// There is no priority, coalescing or per-task cancellation. A failed task is
// not retried; the next change to the same node re-attempts the work.
//
// CRITICAL PATTERNS:
//
// Logical Clock:
// Tasks are ordered by the monotonic seq from Clock, never by wall time.
//
// Log And Continue:
// A task error or panic never stops the consumer loop.
package engine
