package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// Txn is a write batch. It is only valid inside the Update callback.
//
// Reads made through the Txn see the batch's own uncommitted writes.
type Txn struct {
	ctx     context.Context
	tx      *sql.Tx
	tag     string
	seq     int64
	changes []model.Change
}

// Update runs fn in one transaction tagged with tag. If fn returns an error
// the batch is rolled back and nothing is published. On commit, the batch's
// changes are delivered to subscribers in write order before Update returns.
//
// Listeners run on the caller's goroutine and must not write to the store.
func (s *Store) Update(ctx context.Context, tag string, fn func(*Txn) error) error {
	if s.closed.Load() {
		return ErrClosed
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update %s: begin tx: %w", tag, err)
	}
	defer tx.Rollback() // No-op if committed

	txn := &Txn{ctx: ctx, tx: tx, tag: tag, seq: s.rev.Load()}
	if err := fn(txn); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update %s: commit: %w", tag, err)
	}
	s.rev.Store(txn.seq)

	s.publish(txn.changes)
	return nil
}

// PutNode writes one node in its own batch.
func (s *Store) PutNode(ctx context.Context, plane model.Plane, n *model.Node) error {
	return s.Update(ctx, "", func(txn *Txn) error {
		_, err := txn.PutNode(plane, n)
		return err
	})
}

// DeleteNode deletes one node and its records in its own batch.
func (s *Store) DeleteNode(ctx context.Context, plane model.Plane, path model.NodePath) error {
	return s.Update(ctx, "", func(txn *Txn) error {
		_, err := txn.DeleteNode(plane, path)
		return err
	})
}

// PutEntity writes one record owned by node in its own batch.
func (s *Store) PutEntity(ctx context.Context, plane model.Plane, node model.NodePath, e model.Entity) error {
	return s.Update(ctx, "", func(txn *Txn) error {
		_, err := txn.PutEntity(plane, node, e)
		return err
	})
}

// DeleteEntity deletes one record in its own batch.
func (s *Store) DeleteEntity(ctx context.Context, plane model.Plane, p model.EntityPath) error {
	return s.Update(ctx, "", func(txn *Txn) error {
		_, err := txn.DeleteEntity(plane, p)
		return err
	})
}

// Tag returns the batch tag.
func (t *Txn) Tag() string { return t.tag }

// ReadNode reads a node within the batch.
func (t *Txn) ReadNode(plane model.Plane, path model.NodePath) (*model.Node, error) {
	n, _, err := readNode(t.ctx, t.tx, plane, path)
	return n, err
}

// ReadEntity reads a record within the batch.
func (t *Txn) ReadEntity(plane model.Plane, p model.EntityPath) (model.Entity, error) {
	e, _, err := readEntity(t.ctx, t.tx, plane, p)
	return e, err
}

// ListEntities lists records within the batch.
func (t *Txn) ListEntities(plane model.Plane, node model.NodePath, typ model.EntityType) ([]model.Entity, error) {
	return listEntities(t.ctx, t.tx, plane, node, typ)
}

// PutNode upserts n. Returns false when the stored node already has the same
// digest, in which case nothing is written.
func (t *Txn) PutNode(plane model.Plane, n *model.Node) (bool, error) {
	if n == nil || n.Path.IsZero() {
		return false, errors.New("put node: missing path")
	}
	body, digest, err := encodeNode(n)
	if err != nil {
		return false, fmt.Errorf("put node %s: %w", n.Path, err)
	}

	before, oldDigest, err := readNode(t.ctx, t.tx, plane, n.Path)
	switch {
	case errors.Is(err, model.ErrNotFound):
		before = nil
	case err != nil:
		return false, fmt.Errorf("put node: %w", err)
	case oldDigest == digest:
		return false, nil
	}

	t.seq++
	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO nodes (plane, path, kind, body, digest, seq)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(plane, path) DO UPDATE SET
			kind = excluded.kind,
			body = excluded.body,
			digest = excluded.digest,
			seq = excluded.seq
	`, plane.String(), n.Path.String(), n.Path.Kind().String(), body, digest, t.seq)
	if err != nil {
		return false, fmt.Errorf("put node %s: %w", n.Path, err)
	}

	t.record(model.Change{Plane: plane, Path: n.Path, NodeBefore: before, NodeAfter: n.Clone()})
	return true, nil
}

// DeleteNode removes the node at path together with the records it owns.
// Returns false when the node did not exist. Only the node-level change is
// published; its records are implied.
func (t *Txn) DeleteNode(plane model.Plane, path model.NodePath) (bool, error) {
	before, _, err := readNode(t.ctx, t.tx, plane, path)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete node: %w", err)
	}

	if _, err := t.tx.ExecContext(t.ctx, `
		DELETE FROM entities WHERE plane = ? AND path = ?
	`, plane.String(), path.String()); err != nil {
		return false, fmt.Errorf("delete node %s: entities: %w", path, err)
	}
	if _, err := t.tx.ExecContext(t.ctx, `
		DELETE FROM nodes WHERE plane = ? AND path = ?
	`, plane.String(), path.String()); err != nil {
		return false, fmt.Errorf("delete node %s: %w", path, err)
	}

	t.seq++
	t.record(model.Change{Plane: plane, Path: path, NodeBefore: before})
	return true, nil
}

// PutEntity upserts a record owned by node. Returns false when the stored
// record already has the same digest.
func (t *Txn) PutEntity(plane model.Plane, node model.NodePath, e model.Entity) (bool, error) {
	if e == nil || node.IsZero() {
		return false, errors.New("put entity: missing node or record")
	}
	p := model.PathOf(node, e)
	body, digest, err := encodeEntity(e)
	if err != nil {
		return false, fmt.Errorf("put %s: %w", p, err)
	}

	before, oldDigest, err := readEntity(t.ctx, t.tx, plane, p)
	switch {
	case errors.Is(err, model.ErrNotFound):
		before = nil
	case err != nil:
		return false, fmt.Errorf("put entity: %w", err)
	case oldDigest == digest:
		return false, nil
	}

	t.seq++
	_, err = t.tx.ExecContext(t.ctx, `
		INSERT INTO entities (plane, path, type, key, body, digest, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(plane, path, type, key) DO UPDATE SET
			body = excluded.body,
			digest = excluded.digest,
			seq = excluded.seq
	`, plane.String(), node.String(), string(p.Type), p.Key, body, digest, t.seq)
	if err != nil {
		return false, fmt.Errorf("put %s: %w", p, err)
	}

	t.record(model.Change{Plane: plane, Path: node, Entity: p.Type, Key: p.Key, Before: before, After: e})
	return true, nil
}

// DeleteEntity removes one record. Returns false when it did not exist.
func (t *Txn) DeleteEntity(plane model.Plane, p model.EntityPath) (bool, error) {
	before, _, err := readEntity(t.ctx, t.tx, plane, p)
	if errors.Is(err, model.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("delete entity: %w", err)
	}

	if _, err := t.tx.ExecContext(t.ctx, `
		DELETE FROM entities WHERE plane = ? AND path = ? AND type = ? AND key = ?
	`, plane.String(), p.Node.String(), string(p.Type), p.Key); err != nil {
		return false, fmt.Errorf("delete %s: %w", p, err)
	}

	t.seq++
	t.record(model.Change{Plane: plane, Path: p.Node, Entity: p.Type, Key: p.Key, Before: before})
	return true, nil
}

func (t *Txn) record(c model.Change) {
	c.Seq = t.seq
	c.Tag = t.tag
	t.changes = append(t.changes, c)
}
