package ha

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/opendaylight/netvirt-sub025/internal/engine"
	"github.com/opendaylight/netvirt-sub025/internal/merge"
	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// replicateDown copies a parent's record change to its children.
//
// Declared changes go to every known child. Observed changes are the
// parent's aggregate and go to connected children only. Deletes always go
// to connected children only: a disconnected child keeps its stale copy
// rather than race with its own reconnect.
func (m *Manager) replicateDown(ctx context.Context, c model.Change) error {
	s, ok := merge.For(c.Entity)
	if !ok {
		return fmt.Errorf("replicate %s: no merge strategy", c.Entity)
	}
	parent := c.Path.Global()

	var children []model.NodePath
	if c.Plane == model.PlaneObserved || c.Kind() == model.ChangeDelete {
		children = m.registry.ConnectedChildren(parent)
	} else {
		children = m.registry.ChildrenOf(parent)
	}
	if len(children) == 0 {
		return nil
	}

	op := "downward.entity-" + c.Kind().String()
	var errs error
	for _, child := range children {
		b := newBatch(op, c.Plane, engine.DirectionDownward, parent)
		var err error
		if c.Kind() == model.ChangeDelete {
			err = m.stageEntityDelete(b, s, child, c.Before)
		} else {
			err = m.stageEntity(ctx, b, s, child, c.After)
		}
		if err == nil {
			err = m.commit(ctx, b)
		}
		errs = multierr.Append(errs, err)
	}
	return fanOutError(op, parent, errs)
}

// copyToChildren copies a parent's whole declared node to every known
// child, deferring disconnected children until they connect.
func (m *Manager) copyToChildren(ctx context.Context, parent model.NodePath) error {
	var errs error
	for _, child := range m.registry.ChildrenOf(parent) {
		errs = multierr.Append(errs, m.copyWhenConnected(ctx, parent, child))
	}
	return fanOutError("downward.node-add", parent, errs)
}

func (m *Manager) copyWhenConnected(ctx context.Context, parent, child model.NodePath) error {
	if m.registry.IsConnected(child) {
		return m.copyDeclared(ctx, parent, child)
	}
	m.logger.Debug("child not connected, deferring copy", "parent", parent, "child", child,
		"already_pending", m.waitlist.Pending(child))
	m.RunAfterConnected(child, "declared-copy", func(ctx context.Context, _ *model.Node) error {
		return m.copyDeclared(ctx, parent, child)
	})
	return nil
}

// copyDeclared writes the parent's declared global node, switches and
// records onto child's declared plane in one batch.
func (m *Manager) copyDeclared(ctx context.Context, parent, child model.NodePath) error {
	const op = "downward.copy-node"
	pn, err := m.topo.ReadNode(ctx, model.PlaneDeclared, parent)
	if errors.Is(err, model.ErrNotFound) {
		return engine.NewMissingMembershipError(op, parent)
	}
	if err != nil {
		return engine.NewTransientError(op, parent, err)
	}
	existing, err := m.readOptional(ctx, model.PlaneDeclared, child)
	if err != nil {
		return engine.NewTransientError(op, child, err)
	}

	b := newBatch(op, model.PlaneDeclared, engine.DirectionDownward, parent)
	if err := m.stageNode(ctx, b, declaredChildNode(pn, child, existing)); err != nil {
		return err
	}

	switches, err := m.topo.ListNodes(ctx, model.PlaneDeclared, parent.String()+"/")
	if err != nil {
		return engine.NewTransientError(op, parent, err)
	}
	for _, sw := range switches {
		if err := m.stageNode(ctx, b, switchDown(sw, sw.Path.Rebase(child))); err != nil {
			return err
		}
	}

	for _, s := range merge.All() {
		records, err := m.topo.ListEntities(ctx, model.PlaneDeclared, parent, s.Type())
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

// forwardDelta applies a parent's declared attribute change to each child.
// Children without a declared node yet get a full copy instead.
func (m *Manager) forwardDelta(ctx context.Context, parent model.NodePath, before, after *model.Node) error {
	const op = "downward.node-update"
	var errs error
	for _, child := range m.registry.ChildrenOf(parent) {
		existing, err := m.readOptional(ctx, model.PlaneDeclared, child)
		if err != nil {
			errs = multierr.Append(errs, engine.NewTransientError(op, child, err))
			continue
		}
		if existing == nil {
			errs = multierr.Append(errs, m.copyWhenConnected(ctx, parent, child))
			continue
		}
		b := newBatch(op, model.PlaneDeclared, engine.DirectionDownward, parent)
		err = m.stageNode(ctx, b, applyDelta(existing, before, after))
		if err == nil {
			err = m.commit(ctx, b)
		}
		errs = multierr.Append(errs, err)
	}
	return fanOutError(op, parent, errs)
}

// copySwitchToChildren copies one declared parent switch to each child.
func (m *Manager) copySwitchToChildren(ctx context.Context, sw model.NodePath) error {
	const op = "downward.switch"
	parent := sw.Global()
	var errs error
	for _, child := range m.registry.ChildrenOf(parent) {
		target := sw.Rebase(child)
		job := func(ctx context.Context, _ *model.Node) error {
			return m.copySwitch(ctx, sw, target)
		}
		if !m.registry.IsConnected(child) {
			m.RunAfterConnected(child, "switch-copy", job)
			continue
		}
		errs = multierr.Append(errs, job(ctx, nil))
	}
	return fanOutError(op, parent, errs)
}

func (m *Manager) copySwitch(ctx context.Context, sw, target model.NodePath) error {
	const op = "downward.switch"
	pn, err := m.topo.ReadNode(ctx, model.PlaneDeclared, sw)
	if errors.Is(err, model.ErrNotFound) {
		return engine.NewMissingMembershipError(op, sw)
	}
	if err != nil {
		return engine.NewTransientError(op, sw, err)
	}
	b := newBatch(op, model.PlaneDeclared, engine.DirectionDownward, sw.Global())
	if err := m.stageNode(ctx, b, switchDown(pn, target)); err != nil {
		return err
	}
	return m.commit(ctx, b)
}

// deleteFromChildren removes the children's copies of a deleted parent
// node. Deleting a global node removes the child's switches as well.
func (m *Manager) deleteFromChildren(ctx context.Context, path model.NodePath) error {
	const op = "downward.node-delete"
	var errs error
	for _, child := range m.registry.ChildrenOf(path) {
		b := newBatch(op, model.PlaneDeclared, engine.DirectionDownward, path.Global())
		target := path.Rebase(child)
		if target.IsGlobal() {
			switches, err := m.topo.ListNodes(ctx, model.PlaneDeclared, target.String()+"/")
			if err != nil {
				errs = multierr.Append(errs, engine.NewTransientError(op, child, err))
				continue
			}
			for _, sw := range switches {
				b.nodeDeletes = append(b.nodeDeletes, sw.Path)
			}
		}
		b.nodeDeletes = append(b.nodeDeletes, target)
		errs = multierr.Append(errs, m.commit(ctx, b))
	}
	return fanOutError(op, path, errs)
}

// readOptional reads a node, returning nil without error when absent.
func (m *Manager) readOptional(ctx context.Context, plane model.Plane, path model.NodePath) (*model.Node, error) {
	n, err := m.topo.ReadNode(ctx, plane, path)
	if errors.Is(err, model.ErrNotFound) {
		return nil, nil
	}
	return n, err
}

// fanOutError folds several per-child failures into one transient error.
// A single failure keeps its own classification.
func fanOutError(op string, node model.NodePath, errs error) error {
	all := multierr.Errors(errs)
	switch len(all) {
	case 0:
		return nil
	case 1:
		return all[0]
	default:
		return engine.NewTransientError(op, node, fmt.Errorf("%d children failed: %w", len(all), errs))
	}
}
