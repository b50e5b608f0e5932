package ha

import (
	"context"
	"errors"

	"github.com/opendaylight/netvirt-sub025/internal/engine"
	"github.com/opendaylight/netvirt-sub025/internal/merge"
	"github.com/opendaylight/netvirt-sub025/internal/model"
	"github.com/opendaylight/netvirt-sub025/internal/store"
)

type entityPut struct {
	node model.NodePath
	rec  model.Entity
}

// batch collects the writes of one task against one plane. Records that
// already match the target are counted as skipped and never written.
type batch struct {
	op        string
	plane     model.Plane
	direction string
	tag       string

	nodes       []*model.Node
	nodeDeletes []model.NodePath
	puts        []entityPut
	deletes     []model.EntityPath
	refs        []model.EntityPath
	skipped     int
}

func newBatch(op string, plane model.Plane, direction string, source model.NodePath) *batch {
	return &batch{op: op, plane: plane, direction: direction, tag: source.String()}
}

func (b *batch) empty() bool {
	return len(b.nodes) == 0 && len(b.nodeDeletes) == 0 && len(b.puts) == 0 && len(b.deletes) == 0
}

// stageNode queues n unless the stored node already equals it.
func (m *Manager) stageNode(ctx context.Context, b *batch, n *model.Node) error {
	existing, err := m.topo.ReadNode(ctx, b.plane, n.Path)
	switch {
	case errors.Is(err, model.ErrNotFound):
	case err != nil:
		return engine.NewTransientError(b.op, n.Path, err)
	case model.EqualNodes(existing, n):
		b.skipped++
		return nil
	}
	b.nodes = append(b.nodes, n)
	return nil
}

// stageEntity transforms src for target and queues it together with the
// references it needs, unless the target already holds an equal record.
func (m *Manager) stageEntity(ctx context.Context, b *batch, s merge.Strategy, target model.NodePath, src model.Entity) error {
	rec, err := s.Transform(target, src)
	if err != nil {
		return err
	}
	p := s.Identify(target, rec)

	existing, err := m.topo.ReadEntity(ctx, b.plane, p.Node, p.Type, p.Key)
	switch {
	case errors.Is(err, model.ErrNotFound):
	case err != nil:
		return engine.NewTransientError(b.op, target, err)
	case model.EqualEntities(existing, rec):
		b.skipped++
		m.logger.Debug("record already current", "op", b.op, "strategy", s.Describe(), "record", p)
		return nil
	}

	created, err := m.refs.Missing(ctx, b.plane, s.Refs(target, src))
	if err != nil {
		return engine.NewTransientError(b.op, target, err)
	}
	for _, c := range created {
		b.puts = append(b.puts, entityPut{node: c.Path.Node, rec: c.Record})
		b.refs = append(b.refs, c.Path)
	}
	b.puts = append(b.puts, entityPut{node: p.Node, rec: rec})
	m.logger.Debug("record staged", "op", b.op, "strategy", s.Describe(), "record", p, "refs_created", len(created))
	return nil
}

// stageEntityDelete queues the deletion of the target's copy of src.
func (m *Manager) stageEntityDelete(b *batch, s merge.Strategy, target model.NodePath, src model.Entity) error {
	rec, err := s.Transform(target, src)
	if err != nil {
		return err
	}
	b.deletes = append(b.deletes, s.Identify(target, rec))
	return nil
}

// commit writes the batch in one store transaction.
func (m *Manager) commit(ctx context.Context, b *batch) error {
	plane := b.plane.String()
	if b.empty() {
		m.metrics.Skipped(plane, b.direction, b.skipped)
		return nil
	}

	written := 0
	err := m.topo.Update(ctx, b.tag, func(txn *store.Txn) error {
		for _, n := range b.nodes {
			changed, err := txn.PutNode(b.plane, n)
			if err != nil {
				return err
			}
			if changed {
				written++
			}
		}
		for _, p := range b.puts {
			changed, err := txn.PutEntity(b.plane, p.node, p.rec)
			if err != nil {
				return err
			}
			if changed {
				written++
			}
		}
		for _, p := range b.deletes {
			changed, err := txn.DeleteEntity(b.plane, p)
			if err != nil {
				return err
			}
			if changed {
				written++
			}
		}
		for _, path := range b.nodeDeletes {
			changed, err := txn.DeleteNode(b.plane, path)
			if err != nil {
				return err
			}
			if changed {
				written++
			}
		}
		return nil
	})
	if err != nil {
		node, _ := model.ParseNodePath(b.tag)
		return engine.NewTransientError(b.op, node, err)
	}

	m.refs.Remember(b.plane, b.refs...)
	for _, p := range b.deletes {
		if p.Type == model.EntityLogicalSwitch || p.Type == model.EntityPhysicalLocator {
			m.refs.Forget(b.plane, p)
		}
	}
	for _, path := range b.nodeDeletes {
		m.refs.ForgetNode(b.plane, path)
	}

	m.metrics.Wrote(plane, b.direction, written)
	m.metrics.Skipped(plane, b.direction, b.skipped)
	m.logger.Debug("batch committed", "op", b.op, "plane", plane, "tag", b.tag, "written", written, "skipped", b.skipped)
	return nil
}
