package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NodeKind distinguishes global nodes from physical-switch nodes.
type NodeKind int

const (
	// KindUnknown is the zero value; a parsed path never has it.
	KindUnknown NodeKind = iota
	// KindGlobal is a device's global node (hwvtep://uuid/<id>).
	KindGlobal
	// KindPhysicalSwitch is a switch nested under a global node.
	KindPhysicalSwitch
)

// String returns the kind name used in logs and the store.
func (k NodeKind) String() string {
	switch k {
	case KindGlobal:
		return "global"
	case KindPhysicalSwitch:
		return "physical-switch"
	default:
		return "unknown"
	}
}

const (
	// PathScheme prefixes every node path.
	PathScheme = "hwvtep://"

	uuidPrefix    = PathScheme + "uuid/"
	switchSegment = "/physicalswitch/"
)

// haNamespace seeds the name-based UUIDs of HA parent nodes.
var haNamespace = uuid.MustParse("6d1f4a0c-5b1e-4c47-9a8e-2f2f1d5e7a10")

// NodePath identifies a node in the topology.
//
// The kind is resolved by ParseNodePath (or the constructors) and carried
// with the value, so callers never inspect the string to classify a node.
// NodePath is comparable and usable as a map key.
type NodePath struct {
	id   string
	kind NodeKind
}

// ParseNodePath parses and classifies a node path.
func ParseNodePath(s string) (NodePath, error) {
	if !strings.HasPrefix(s, PathScheme) || len(s) == len(PathScheme) {
		return NodePath{}, fmt.Errorf("invalid node path %q: missing %s prefix", s, PathScheme)
	}
	if i := strings.Index(s, switchSegment); i >= 0 {
		global, name := s[:i], s[i+len(switchSegment):]
		if len(global) <= len(PathScheme) || name == "" || strings.Contains(name, "/") {
			return NodePath{}, fmt.Errorf("invalid physical switch path %q", s)
		}
		return NodePath{id: s, kind: KindPhysicalSwitch}, nil
	}
	return NodePath{id: s, kind: KindGlobal}, nil
}

// MustParseNodePath is like ParseNodePath but panics on error.
// Use only in tests or for constants.
func MustParseNodePath(s string) NodePath {
	p, err := ParseNodePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// GlobalPath returns the global node path for a device uuid.
func GlobalPath(id string) NodePath {
	return NodePath{id: uuidPrefix + id, kind: KindGlobal}
}

// ParentPathForHAID derives the HA parent node path from an ha_id tag.
// The same ha_id always yields the same path.
func ParentPathForHAID(haID string) NodePath {
	return GlobalPath(uuid.NewSHA1(haNamespace, []byte(haID)).String())
}

// String returns the path in its canonical text form.
func (p NodePath) String() string { return p.id }

// Kind returns the node kind.
func (p NodePath) Kind() NodeKind { return p.kind }

// IsZero reports whether p is the zero NodePath.
func (p NodePath) IsZero() bool { return p.id == "" }

// IsGlobal reports whether p names a global node.
func (p NodePath) IsGlobal() bool { return p.kind == KindGlobal }

// IsSwitch reports whether p names a physical switch.
func (p NodePath) IsSwitch() bool { return p.kind == KindPhysicalSwitch }

// Global returns the managing global node. For a global path it returns p.
func (p NodePath) Global() NodePath {
	if p.kind != KindPhysicalSwitch {
		return p
	}
	i := strings.Index(p.id, switchSegment)
	return NodePath{id: p.id[:i], kind: KindGlobal}
}

// SwitchName returns the switch name, or "" for a global path.
func (p NodePath) SwitchName() string {
	if p.kind != KindPhysicalSwitch {
		return ""
	}
	return p.id[strings.Index(p.id, switchSegment)+len(switchSegment):]
}

// Switch returns the path of the named physical switch under p's global node.
func (p NodePath) Switch(name string) NodePath {
	return NodePath{id: p.Global().id + switchSegment + name, kind: KindPhysicalSwitch}
}

// Rebase moves p under another global node, keeping the switch name.
func (p NodePath) Rebase(global NodePath) NodePath {
	if p.kind == KindPhysicalSwitch {
		return global.Switch(p.SwitchName())
	}
	return global.Global()
}

// MarshalText implements encoding.TextMarshaler.
func (p NodePath) MarshalText() ([]byte, error) {
	return []byte(p.id), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *NodePath) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*p = NodePath{}
		return nil
	}
	parsed, err := ParseNodePath(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Plane selects one of the two data planes of the topology store.
type Plane int

const (
	// PlaneDeclared holds intent: what should exist.
	PlaneDeclared Plane = iota + 1
	// PlaneObserved holds facts reported by devices.
	PlaneObserved
)

// Planes lists both planes in a stable order.
func Planes() []Plane { return []Plane{PlaneDeclared, PlaneObserved} }

// String returns the plane name.
func (p Plane) String() string {
	switch p {
	case PlaneDeclared:
		return "declared"
	case PlaneObserved:
		return "observed"
	default:
		return fmt.Sprintf("plane(%d)", int(p))
	}
}

// ParsePlane parses a plane name.
func ParsePlane(s string) (Plane, error) {
	switch s {
	case "declared", "config":
		return PlaneDeclared, nil
	case "observed", "operational":
		return PlaneObserved, nil
	default:
		return 0, fmt.Errorf("unknown plane %q", s)
	}
}
