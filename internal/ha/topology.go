package ha

import (
	"context"

	"github.com/opendaylight/netvirt-sub025/internal/merge"
	"github.com/opendaylight/netvirt-sub025/internal/model"
	"github.com/opendaylight/netvirt-sub025/internal/store"
)

// Topology is the store surface the manager needs. *store.Store implements it.
type Topology interface {
	merge.Reader

	ReadNode(ctx context.Context, plane model.Plane, path model.NodePath) (*model.Node, error)
	ListNodes(ctx context.Context, plane model.Plane, prefix string) ([]*model.Node, error)
	ListEntities(ctx context.Context, plane model.Plane, node model.NodePath, t model.EntityType) ([]model.Entity, error)
	Update(ctx context.Context, tag string, fn func(*store.Txn) error) error
	Subscribe(plane model.Plane, prefix string, listener store.Listener) (func(), error)
	Revision() int64
}

var _ Topology = (*store.Store)(nil)
