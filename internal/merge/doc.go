// Package merge holds the per-type strategies used to copy a sub-entity
// record from one node to another.
//
// A strategy is a pure transform: it returns a structurally identical record
// whose node-scoped references (logical switch, locator) point at the target
// node. The references the target still lacks are found by RefCache, which
// produces the records to create alongside the transformed one.
//
// Remote unicast MACs are per-device facts. Their strategy reports
// Upward() == false and the engine never promotes them into an HA parent.
package merge
