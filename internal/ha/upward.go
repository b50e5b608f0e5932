package ha

import (
	"context"
	"errors"
	"fmt"

	"github.com/opendaylight/netvirt-sub025/internal/engine"
	"github.com/opendaylight/netvirt-sub025/internal/merge"
	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// parentOf resolves the parent of a connected child, or reports missing
// membership.
func (m *Manager) parentOf(op string, child model.NodePath) (model.NodePath, error) {
	parent, ok := m.registry.ParentOf(child)
	if !ok {
		return model.NodePath{}, engine.NewMissingMembershipError(op, child)
	}
	return parent, nil
}

// aggregateUp merges a connected child's observed record change into the
// parent. The parent must already be bootstrapped.
func (m *Manager) aggregateUp(ctx context.Context, c model.Change) error {
	op := "upward.entity-" + c.Kind().String()
	s, ok := merge.For(c.Entity)
	if !ok {
		return fmt.Errorf("aggregate %s: no merge strategy", c.Entity)
	}
	if !s.Upward() {
		m.metrics.Skipped(c.Plane.String(), engine.DirectionUpward, 1)
		return nil
	}

	child := c.Path.Global()
	if !m.registry.IsConnected(child) {
		m.logger.Debug("ignoring record of disconnected child", "child", child, "type", c.Entity, "key", c.Key)
		return nil
	}
	parent, err := m.parentOf(op, child)
	if err != nil {
		return err
	}
	if _, err := m.topo.ReadNode(ctx, model.PlaneObserved, parent); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return engine.NewMissingMembershipError(op, parent)
		}
		return engine.NewTransientError(op, parent, err)
	}

	b := newBatch(op, model.PlaneObserved, engine.DirectionUpward, child)
	if c.Kind() == model.ChangeDelete {
		err = m.stageEntityDelete(b, s, parent, c.Before)
	} else {
		err = m.stageEntity(ctx, b, s, parent, c.After)
	}
	if err != nil {
		return err
	}
	return m.commit(ctx, b)
}

// childConnected runs the connect-side work for a child:
//  1. create or merge the parent's observed node
//  2. write the child's database version back to the parent's declared node
//  3. copy the child's qualifying records up and the parent's aggregate down
//  4. bootstrap the child's declared node from the parent's
func (m *Manager) childConnected(ctx context.Context, child model.NodePath) error {
	const op = "upward.connect"
	// The listeners own the Connected Set. A child deleted while this task
	// was queued stays disconnected.
	if !m.registry.IsConnected(child) {
		return engine.NewMissingMembershipError(op, child)
	}

	parent, err := m.parentOf(op, child)
	if err != nil {
		return err
	}
	cn, err := m.topo.ReadNode(ctx, model.PlaneObserved, child)
	if errors.Is(err, model.ErrNotFound) {
		return engine.NewMissingMembershipError(op, child)
	}
	if err != nil {
		return engine.NewTransientError(op, child, err)
	}
	m.logger.Info("ha child connected", "child", child, "parent", parent)

	if err := m.mergeParent(ctx, op, parent, cn); err != nil {
		return err
	}
	declared, err := m.writeBackVersion(ctx, parent, cn)
	if err != nil {
		return err
	}
	if err := m.copyChildUp(ctx, parent, child); err != nil {
		return err
	}
	if err := m.copyAggregateDown(ctx, parent, child); err != nil {
		return err
	}
	if declared != nil {
		return m.copyDeclared(ctx, parent, child)
	}
	return nil
}

// lateChildConnected runs the connect work for a child registered after it
// connected, including the switches it already reported.
func (m *Manager) lateChildConnected(ctx context.Context, child model.NodePath) error {
	if err := m.childConnected(ctx, child); err != nil {
		return err
	}
	cn, err := m.topo.ReadNode(ctx, model.PlaneObserved, child)
	if err != nil {
		return engine.NewTransientError("upward.connect", child, err)
	}
	for _, sw := range cn.Global.Switches {
		if !m.registry.IsConnected(sw) {
			continue
		}
		if err := m.childSwitchConnected(ctx, sw); err != nil {
			return err
		}
	}
	return nil
}

// mergeChildNode handles an attribute update of a connected child.
func (m *Manager) mergeChildNode(ctx context.Context, child model.NodePath) error {
	const op = "upward.node-update"
	parent, err := m.parentOf(op, child)
	if err != nil {
		return err
	}
	cn, err := m.topo.ReadNode(ctx, model.PlaneObserved, child)
	if errors.Is(err, model.ErrNotFound) {
		return engine.NewMissingMembershipError(op, child)
	}
	if err != nil {
		return engine.NewTransientError(op, child, err)
	}
	if err := m.mergeParent(ctx, op, parent, cn); err != nil {
		return err
	}
	_, err = m.writeBackVersion(ctx, parent, cn)
	return err
}

// mergeParent creates the parent's observed global node from child, or adds
// child's managers and switches to it.
func (m *Manager) mergeParent(ctx context.Context, op string, parent model.NodePath, child *model.Node) error {
	existing, err := m.readOptional(ctx, model.PlaneObserved, parent)
	if err != nil {
		return engine.NewTransientError(op, parent, err)
	}
	var desired *model.Node
	if existing == nil {
		desired = parentFromChild(parent, child)
		m.logger.Info("ha parent bootstrapped", "parent", parent, "from", child.Path)
	} else {
		desired = mergeChildIntoParent(existing, child)
	}
	b := newBatch(op, model.PlaneObserved, engine.DirectionUpward, child.Path)
	if err := m.stageNode(ctx, b, desired); err != nil {
		return err
	}
	return m.commit(ctx, b)
}

// writeBackVersion makes the parent's declared database version follow the
// version the child reports. Returns the parent's declared node, or nil if
// it has none.
func (m *Manager) writeBackVersion(ctx context.Context, parent model.NodePath, child *model.Node) (*model.Node, error) {
	const op = "upward.version-writeback"
	declared, err := m.readOptional(ctx, model.PlaneDeclared, parent)
	if err != nil {
		return nil, engine.NewTransientError(op, parent, err)
	}
	if declared == nil || child.Global == nil || child.Global.DBVersion == "" {
		return declared, nil
	}
	if declared.Global == nil {
		declared.Global = &model.GlobalAttrs{}
	}
	if declared.Global.DBVersion == child.Global.DBVersion {
		return declared, nil
	}

	skew := engine.NewSkewedStateError(op, parent,
		fmt.Errorf("declared db version %q, child %s reports %q",
			declared.Global.DBVersion, child.Path, child.Global.DBVersion))
	m.logger.Info("writing back observed db version", "parent", parent, "child", child.Path,
		"from", declared.Global.DBVersion, "to", child.Global.DBVersion, "reason", skew)

	updated := declared.Clone()
	updated.Global.DBVersion = child.Global.DBVersion
	b := newBatch(op, model.PlaneDeclared, engine.DirectionUpward, child.Path)
	b.nodes = append(b.nodes, updated)
	if err := m.commit(ctx, b); err != nil {
		return nil, err
	}
	return updated, nil
}

// copyChildUp copies every record of child that qualifies for upward
// propagation into the parent's observed node.
func (m *Manager) copyChildUp(ctx context.Context, parent, child model.NodePath) error {
	const op = "upward.copy-records"
	b := newBatch(op, model.PlaneObserved, engine.DirectionUpward, child)
	for _, s := range merge.All() {
		if !s.Upward() {
			continue
		}
		records, err := m.topo.ListEntities(ctx, model.PlaneObserved, child, s.Type())
		if err != nil {
			return engine.NewTransientError(op, child, err)
		}
		for _, rec := range records {
			if err := m.stageEntity(ctx, b, s, parent, rec); err != nil {
				return err
			}
		}
	}
	return m.commit(ctx, b)
}

// copyAggregateDown gives a newly connected child the parent's observed
// records contributed by its siblings.
func (m *Manager) copyAggregateDown(ctx context.Context, parent, child model.NodePath) error {
	const op = "downward.copy-aggregate"
	b := newBatch(op, model.PlaneObserved, engine.DirectionDownward, parent)
	for _, s := range merge.All() {
		records, err := m.topo.ListEntities(ctx, model.PlaneObserved, parent, s.Type())
		if err != nil {
			return engine.NewTransientError(op, parent, err)
		}
		for _, rec := range records {
			if err := m.stageEntity(ctx, b, s, child, rec); err != nil {
				return err
			}
		}
	}
	return m.commit(ctx, b)
}

// childSwitchConnected merges a child's observed switch into the parent and
// bootstraps the child's declared switch.
func (m *Manager) childSwitchConnected(ctx context.Context, sw model.NodePath) error {
	const op = "upward.switch"
	parent, err := m.parentOf(op, sw)
	if err != nil {
		return err
	}
	if _, err := m.topo.ReadNode(ctx, model.PlaneObserved, parent); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return engine.NewMissingMembershipError(op, parent)
		}
		return engine.NewTransientError(op, parent, err)
	}
	observed, err := m.topo.ReadNode(ctx, model.PlaneObserved, sw)
	if errors.Is(err, model.ErrNotFound) {
		return engine.NewMissingMembershipError(op, sw)
	}
	if err != nil {
		return engine.NewTransientError(op, sw, err)
	}

	target := sw.Rebase(parent)
	existing, err := m.readOptional(ctx, model.PlaneObserved, target)
	if err != nil {
		return engine.NewTransientError(op, target, err)
	}
	up := newBatch(op, model.PlaneObserved, engine.DirectionUpward, sw.Global())
	if err := m.stageNode(ctx, up, mergeSwitchUp(target, existing, observed)); err != nil {
		return err
	}
	if err := m.commit(ctx, up); err != nil {
		return err
	}

	// Declared side: follow the parent's declared switch when there is one,
	// otherwise seed from what the device reports.
	parentDeclared, err := m.readOptional(ctx, model.PlaneDeclared, target)
	if err != nil {
		return engine.NewTransientError(op, target, err)
	}
	childDeclared, err := m.readOptional(ctx, model.PlaneDeclared, sw)
	if err != nil {
		return engine.NewTransientError(op, sw, err)
	}
	var desired *model.Node
	switch {
	case parentDeclared != nil:
		desired = switchDown(parentDeclared, sw)
	case childDeclared == nil:
		desired = switchFromObserved(observed)
	default:
		return nil
	}
	down := newBatch(op, model.PlaneDeclared, engine.DirectionDownward, parent)
	if err := m.stageNode(ctx, down, desired); err != nil {
		return err
	}
	return m.commit(ctx, down)
}

// childDisconnected removes the parent's observed state once its last
// connected child is gone.
func (m *Manager) childDisconnected(ctx context.Context, child model.NodePath) error {
	const op = "upward.disconnect"
	parent, err := m.parentOf(op, child)
	if err != nil {
		return err
	}
	if remaining := m.registry.ConnectedChildren(parent); len(remaining) > 0 {
		m.logger.Info("ha child disconnected", "child", child, "parent", parent, "still_connected", len(remaining))
		return nil
	}

	switches, err := m.topo.ListNodes(ctx, model.PlaneObserved, parent.String()+"/")
	if err != nil {
		return engine.NewTransientError(op, parent, err)
	}
	b := newBatch(op, model.PlaneObserved, engine.DirectionUpward, child)
	for _, sw := range switches {
		b.nodeDeletes = append(b.nodeDeletes, sw.Path)
	}
	b.nodeDeletes = append(b.nodeDeletes, parent)
	if err := m.commit(ctx, b); err != nil {
		return err
	}
	m.logger.Info("last ha child disconnected, parent observed state removed", "child", child, "parent", parent)
	return nil
}
