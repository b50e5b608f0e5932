package store

import (
	"path/filepath"
	"testing"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// recorder collects changes delivered to a listener.
type recorder struct {
	changes []model.Change
}

func (r *recorder) listen(c model.Change) { r.changes = append(r.changes, c) }

func testGlobal(id, dbVersion string) *model.Node {
	n := model.NewGlobalNode(model.GlobalPath(id))
	n.Global.DBVersion = dbVersion
	return n
}

func testMac(node model.NodePath, mac string) model.LocalUcastMac {
	return model.LocalUcastMac{UcastMac: model.UcastMac{
		MAC:           mac,
		IP:            "10.0.0.1",
		LogicalSwitch: model.LogicalSwitchRef{Node: node, Name: "ls1"},
		Locator:       model.LocatorRef{Node: node, ID: model.LocatorID("", "192.168.1.1")},
	}}
}
