// Package ha keeps HA parent nodes and their children in sync.
//
// Declared state flows down: records and node attributes written on a
// parent's declared plane are copied to every child. Observed state flows
// up: each connected child's records are merged into the parent's observed
// node, and the parent's aggregate is fanned back out to connected siblings.
//
// Store listeners classify changes through the dispatch tables and submit
// tasks to a single engine.Scheduler; all reconciliation runs there.
package ha
