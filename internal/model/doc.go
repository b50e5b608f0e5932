// Package model defines the records the HA engine replicates.
//
// This package contains value types only. All other internal packages
// import model; model imports nothing internal.
//
// Key design constraints:
//   - NodePath carries its NodeKind, resolved once at construction
//   - Node-scoped references (logical switch, locator) carry their owning node
//   - All JSON tags use snake_case
//   - Record equality is canonical-JSON equality, never reflect.DeepEqual
package model
