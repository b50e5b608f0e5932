package merge

import (
	"fmt"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// RefPair links a reference of a source record to its rewritten target.
type RefPair struct {
	From model.EntityPath
	To   model.EntityPath
}

// Strategy copies one sub-entity type between nodes.
type Strategy interface {
	// Type is the entity type handled.
	Type() model.EntityType
	// Describe names the strategy for logs.
	Describe() string
	// Upward reports whether child records may be promoted into the parent.
	Upward() bool
	// Transform rewrites src for the target node.
	Transform(target model.NodePath, src model.Entity) (model.Entity, error)
	// Identify returns the path of a transformed record on the target.
	Identify(target model.NodePath, rec model.Entity) model.EntityPath
	// Refs lists the references of src with their rewritten targets.
	Refs(target model.NodePath, src model.Entity) []RefPair
}

var strategies = map[model.EntityType]Strategy{}

func register(s Strategy) { strategies[s.Type()] = s }

func init() {
	register(logicalSwitchStrategy{})
	register(locatorStrategy{})
	register(ucastStrategy{
		typ:    model.EntityLocalUcastMac,
		upward: true,
		unwrap: func(e model.Entity) (model.UcastMac, bool) {
			v, ok := e.(model.LocalUcastMac)
			return v.UcastMac, ok
		},
		wrap: func(m model.UcastMac) model.Entity { return model.LocalUcastMac{UcastMac: m} },
	})
	register(ucastStrategy{
		typ:    model.EntityRemoteUcastMac,
		upward: false,
		unwrap: func(e model.Entity) (model.UcastMac, bool) {
			v, ok := e.(model.RemoteUcastMac)
			return v.UcastMac, ok
		},
		wrap: func(m model.UcastMac) model.Entity { return model.RemoteUcastMac{UcastMac: m} },
	})
	register(mcastStrategy{
		typ: model.EntityLocalMcastMac,
		unwrap: func(e model.Entity) (model.McastMac, bool) {
			v, ok := e.(model.LocalMcastMac)
			return v.McastMac, ok
		},
		wrap: func(m model.McastMac) model.Entity { return model.LocalMcastMac{McastMac: m} },
	})
	register(mcastStrategy{
		typ: model.EntityRemoteMcastMac,
		unwrap: func(e model.Entity) (model.McastMac, bool) {
			v, ok := e.(model.RemoteMcastMac)
			return v.McastMac, ok
		},
		wrap: func(m model.McastMac) model.Entity { return model.RemoteMcastMac{McastMac: m} },
	})
}

// For returns the strategy for an entity type.
func For(t model.EntityType) (Strategy, bool) {
	s, ok := strategies[t]
	return s, ok
}

// All returns every strategy in model.EntityTypes order.
func All() []Strategy {
	out := make([]Strategy, 0, len(strategies))
	for _, t := range model.EntityTypes() {
		if s, ok := strategies[t]; ok {
			out = append(out, s)
		}
	}
	return out
}

func typeMismatch(want model.EntityType, got model.Entity) error {
	return fmt.Errorf("merge %s: unexpected record type %T", want, got)
}
