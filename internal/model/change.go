package model

import "errors"

// ErrNotFound is returned when a node or record does not exist.
var ErrNotFound = errors.New("not found")

// ChangeKind classifies a change by its before/after pair.
type ChangeKind int

const (
	ChangeAdd ChangeKind = iota + 1
	ChangeUpdate
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdd:
		return "add"
	case ChangeUpdate:
		return "update"
	case ChangeDelete:
		return "delete"
	default:
		return "none"
	}
}

// Change is one committed modification of the topology store.
//
// A whole-node change has an empty Entity and carries NodeBefore/NodeAfter.
// A sub-entity change names the record by Entity/Key and carries
// Before/After.
type Change struct {
	Seq   int64
	Plane Plane
	Path  NodePath
	// Tag is the batch tag of the write that produced the change.
	Tag string

	Entity EntityType
	Key    string

	NodeBefore *Node
	NodeAfter  *Node
	Before     Entity
	After      Entity
}

// IsNode reports whether c is a whole-node change.
func (c Change) IsNode() bool { return c.Entity == "" }

// Kind classifies c.
func (c Change) Kind() ChangeKind {
	var before, after bool
	if c.IsNode() {
		before, after = c.NodeBefore != nil, c.NodeAfter != nil
	} else {
		before, after = c.Before != nil, c.After != nil
	}
	switch {
	case !before && after:
		return ChangeAdd
	case before && after:
		return ChangeUpdate
	case before && !after:
		return ChangeDelete
	default:
		return 0
	}
}

// EntityPath returns the record path of a sub-entity change.
func (c Change) EntityPath() EntityPath {
	return EntityPath{Node: c.Path, Type: c.Entity, Key: c.Key}
}
