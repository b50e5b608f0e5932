// Package harness runs HA replication scenarios against a real store and
// manager.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: ha-pair-bootstrap
//	description: "What this scenario validates"
//	steps:
//	  - action: connect
//	    node: a
//	    ha_id: ha1
//	    db_version: "1.0"
//	  - action: put-entity
//	    plane: observed
//	    node: a
//	    entity: {type: local-ucast-mac, mac: "aa:bb:cc:dd:ee:ff", logical_switch: ls1}
//	expect:
//	  - type: entity_keys
//	    plane: observed
//	    node: "ha:ha1"
//	    entity: local-ucast-mac
//	    keys: ["aa:bb:cc:dd:ee:ff/ls1"]
//
// # Node References
//
// Steps and expectations name nodes by reference rather than full path:
//
//   - "a" is the global node hwvtep://uuid/a
//   - "ha:ha1" is the HA parent derived from ha_id "ha1"
//   - "a/tor1" and "ha:ha1/tor1" are physical switches under those nodes
//   - a full hwvtep:// path is used as is
//
// # Determinism
//
// The manager drains its queue after every step, so the store sees the
// same writes in the same order on every run. The final state is rendered
// with references in place of paths and compared against golden files in
// testdata/golden.
package harness
