package store

import (
	"context"
	"testing"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

func TestListNodes_PrefixAndOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	d1 := model.GlobalPath("d1")
	nodes := []*model.Node{
		testGlobal("d2", ""),
		testGlobal("d1", ""),
		model.NewSwitchNode(d1.Switch("tor1")),
	}
	for _, n := range nodes {
		if err := s.PutNode(ctx, model.PlaneObserved, n); err != nil {
			t.Fatalf("PutNode() failed: %v", err)
		}
	}

	all, err := s.ListNodes(ctx, model.PlaneObserved, "")
	if err != nil {
		t.Fatalf("ListNodes() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListNodes() returned %d nodes, want 3", len(all))
	}
	wantOrder := []string{"hwvtep://uuid/d1", "hwvtep://uuid/d1/physicalswitch/tor1", "hwvtep://uuid/d2"}
	for i, n := range all {
		if n.Path.String() != wantOrder[i] {
			t.Errorf("node %d = %s, want %s", i, n.Path, wantOrder[i])
		}
	}

	under, err := s.ListNodes(ctx, model.PlaneObserved, d1.String()+"/")
	if err != nil {
		t.Fatalf("ListNodes() failed: %v", err)
	}
	if len(under) != 1 || !under[0].Path.IsSwitch() {
		t.Errorf("prefix listing = %+v, want the switch only", under)
	}

	empty, err := s.ListNodes(ctx, model.PlaneDeclared, "")
	if err != nil {
		t.Fatalf("ListNodes() failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("ListNodes() on empty plane = %v, want empty non-nil slice", empty)
	}
}

func TestListEntities_ByType(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	node := model.GlobalPath("d1")

	err := s.Update(ctx, "", func(txn *Txn) error {
		records := []model.Entity{
			testMac(node, "00:00:00:00:00:02"),
			testMac(node, "00:00:00:00:00:01"),
			model.LogicalSwitch{Name: "ls1", TunnelKey: "100"},
			model.PhysicalLocator{EncapType: model.EncapVXLANOverIPv4, DstIP: "192.168.1.1"},
		}
		for _, r := range records {
			if _, err := txn.PutEntity(model.PlaneObserved, node, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update() failed: %v", err)
	}

	macs, err := s.ListEntities(ctx, model.PlaneObserved, node, model.EntityLocalUcastMac)
	if err != nil {
		t.Fatalf("ListEntities() failed: %v", err)
	}
	if len(macs) != 2 {
		t.Fatalf("ListEntities() returned %d macs, want 2", len(macs))
	}
	if macs[0].Key() >= macs[1].Key() {
		t.Errorf("records not ordered by key: %s, %s", macs[0].Key(), macs[1].Key())
	}

	all, err := s.ListEntities(ctx, model.PlaneObserved, node, "")
	if err != nil {
		t.Fatalf("ListEntities() failed: %v", err)
	}
	if len(all) != 4 {
		t.Errorf("ListEntities() returned %d records, want 4", len(all))
	}

	ls, err := s.ReadEntity(ctx, model.PlaneObserved, node, model.EntityLogicalSwitch, "ls1")
	if err != nil {
		t.Fatalf("ReadEntity() failed: %v", err)
	}
	if ls.(model.LogicalSwitch).TunnelKey != "100" {
		t.Errorf("ReadEntity() = %+v", ls)
	}
}

func TestSubscribe_FiltersAndCancel(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	d1 := &recorder{}
	all := &recorder{}
	cancelD1, err := s.Subscribe(model.PlaneObserved, "hwvtep://uuid/d1", d1.listen)
	if err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}
	if _, err := s.Subscribe(model.PlaneObserved, "", all.listen); err != nil {
		t.Fatalf("Subscribe() failed: %v", err)
	}

	if err := s.PutNode(ctx, model.PlaneObserved, testGlobal("d1", "")); err != nil {
		t.Fatal(err)
	}
	if err := s.PutNode(ctx, model.PlaneObserved, testGlobal("d2", "")); err != nil {
		t.Fatal(err)
	}
	if err := s.PutNode(ctx, model.PlaneDeclared, testGlobal("d1", "")); err != nil {
		t.Fatal(err)
	}

	if len(d1.changes) != 1 {
		t.Errorf("prefixed listener got %d changes, want 1", len(d1.changes))
	}
	if len(all.changes) != 2 {
		t.Errorf("plane listener got %d changes, want 2", len(all.changes))
	}

	cancelD1()
	cancelD1()
	if err := s.PutNode(ctx, model.PlaneObserved, testGlobal("d1", "2.0")); err != nil {
		t.Fatal(err)
	}
	if len(d1.changes) != 1 {
		t.Errorf("cancelled listener still receives changes")
	}
}

func TestSubscribe_Validation(t *testing.T) {
	s := createTestStore(t)
	if _, err := s.Subscribe(model.PlaneObserved, "", nil); err == nil {
		t.Error("expected error for nil listener")
	}
	if _, err := s.Subscribe(model.Plane(0), "", func(model.Change) {}); err == nil {
		t.Error("expected error for invalid plane")
	}
}
