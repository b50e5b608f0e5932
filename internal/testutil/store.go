package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opendaylight/netvirt-sub025/internal/model"
	"github.com/opendaylight/netvirt-sub025/internal/store"
)

// OpenStore opens a store in a per-test temp dir, closed on cleanup.
func OpenStore(t testing.TB) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "topology.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// MustPutNode writes a node or fails the test.
func MustPutNode(t testing.TB, s *store.Store, plane model.Plane, n *model.Node) {
	t.Helper()
	require.NoError(t, s.PutNode(context.Background(), plane, n))
}

// MustPutEntity writes a record or fails the test.
func MustPutEntity(t testing.TB, s *store.Store, plane model.Plane, node model.NodePath, e model.Entity) {
	t.Helper()
	require.NoError(t, s.PutEntity(context.Background(), plane, node, e))
}

// ReadNode returns a node or nil when absent.
func ReadNode(t testing.TB, s *store.Store, plane model.Plane, path model.NodePath) *model.Node {
	t.Helper()
	n, err := s.ReadNode(context.Background(), plane, path)
	if err != nil {
		require.ErrorIs(t, err, model.ErrNotFound)
		return nil
	}
	return n
}

// ReadEntity returns a record or nil when absent.
func ReadEntity(t testing.TB, s *store.Store, plane model.Plane, p model.EntityPath) model.Entity {
	t.Helper()
	e, err := s.ReadEntity(context.Background(), plane, p.Node, p.Type, p.Key)
	if err != nil {
		require.ErrorIs(t, err, model.ErrNotFound)
		return nil
	}
	return e
}

// Keys lists the keys of node's records of type typ.
func Keys(t testing.TB, s *store.Store, plane model.Plane, node model.NodePath, typ model.EntityType) []string {
	t.Helper()
	records, err := s.ListEntities(context.Background(), plane, node, typ)
	require.NoError(t, err)
	keys := make([]string, 0, len(records))
	for _, r := range records {
		keys = append(keys, r.Key())
	}
	return keys
}
