package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReadNode returns the node at path on plane, or model.ErrNotFound.
func (s *Store) ReadNode(ctx context.Context, plane model.Plane, path model.NodePath) (*model.Node, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	n, _, err := readNode(ctx, s.db, plane, path)
	return n, err
}

// ListNodes returns the nodes on plane whose path starts with prefix,
// ordered by path. An empty prefix lists every node.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ListNodes(ctx context.Context, plane model.Plane, prefix string) ([]*model.Node, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return listNodes(ctx, s.db, plane, prefix)
}

// ReadEntity returns one sub-entity record, or model.ErrNotFound.
func (s *Store) ReadEntity(ctx context.Context, plane model.Plane, node model.NodePath, t model.EntityType, key string) (model.Entity, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	e, _, err := readEntity(ctx, s.db, plane, model.EntityPath{Node: node, Type: t, Key: key})
	return e, err
}

// ListEntities returns the records of type t owned by node, ordered by key.
// An empty t lists every type, ordered by type then key.
func (s *Store) ListEntities(ctx context.Context, plane model.Plane, node model.NodePath, t model.EntityType) ([]model.Entity, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return listEntities(ctx, s.db, plane, node, t)
}

func readNode(ctx context.Context, q querier, plane model.Plane, path model.NodePath) (*model.Node, string, error) {
	var body, digest string
	err := q.QueryRowContext(ctx, `
		SELECT body, digest FROM nodes WHERE plane = ? AND path = ?
	`, plane.String(), path.String()).Scan(&body, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("read node %s %s: %w", plane, path, model.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read node %s %s: %w", plane, path, err)
	}
	n, err := decodeNode(body)
	if err != nil {
		return nil, "", fmt.Errorf("read node %s %s: %w", plane, path, err)
	}
	return n, digest, nil
}

func listNodes(ctx context.Context, q querier, plane model.Plane, prefix string) ([]*model.Node, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT body FROM nodes
		WHERE plane = ? AND substr(path, 1, ?) = ?
		ORDER BY path COLLATE BINARY ASC
	`, plane.String(), len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	nodes := []*model.Node{}
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n, err := decodeNode(body)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return nodes, nil
}

func readEntity(ctx context.Context, q querier, plane model.Plane, p model.EntityPath) (model.Entity, string, error) {
	var body, digest string
	err := q.QueryRowContext(ctx, `
		SELECT body, digest FROM entities
		WHERE plane = ? AND path = ? AND type = ? AND key = ?
	`, plane.String(), p.Node.String(), string(p.Type), p.Key).Scan(&body, &digest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("read %s %s: %w", plane, p, model.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("read %s %s: %w", plane, p, err)
	}
	e, err := decodeEntity(p.Type, body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s %s: %w", plane, p, err)
	}
	return e, digest, nil
}

func listEntities(ctx context.Context, q querier, plane model.Plane, node model.NodePath, t model.EntityType) ([]model.Entity, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT type, body FROM entities
		WHERE plane = ? AND path = ? AND (? = '' OR type = ?)
		ORDER BY type COLLATE BINARY ASC, key COLLATE BINARY ASC
	`, plane.String(), node.String(), string(t), string(t))
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	records := []model.Entity{}
	for rows.Next() {
		var typ, body string
		if err := rows.Scan(&typ, &body); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		e, err := decodeEntity(model.EntityType(typ), body)
		if err != nil {
			return nil, err
		}
		records = append(records, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return records, nil
}
