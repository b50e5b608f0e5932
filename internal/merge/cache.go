package merge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// Default reference cache sizing.
const (
	DefaultCacheSize = 4096
	DefaultCacheTTL  = 10 * time.Minute
)

// Reader reads sub-entity records. Implemented by *store.Store.
type Reader interface {
	ReadEntity(ctx context.Context, plane model.Plane, node model.NodePath, t model.EntityType, key string) (model.Entity, error)
}

// Creation is a referenced record that must be written before the record
// referencing it.
type Creation struct {
	Path   model.EntityPath
	Record model.Entity
}

type cacheKey struct {
	plane model.Plane
	path  model.EntityPath
}

// RefCache resolves the logical switches and locators a transformed record
// references on its target node, and remembers the ones known to exist.
//
// Entries expire after the configured TTL so a reference deleted behind the
// engine's back is eventually re-created.
type RefCache struct {
	reader Reader
	known  *expirable.LRU[cacheKey, struct{}]
}

// NewRefCache creates a cache over reader. Non-positive size or ttl select
// the defaults.
func NewRefCache(reader Reader, size int, ttl time.Duration) *RefCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RefCache{
		reader: reader,
		known:  expirable.NewLRU[cacheKey, struct{}](size, nil, ttl),
	}
}

// Missing returns the records to create so that every target of refs exists
// on plane. Logical switches are copied from their source node; locators are
// built from their id.
func (c *RefCache) Missing(ctx context.Context, plane model.Plane, refs []RefPair) ([]Creation, error) {
	var out []Creation
	seen := make(map[model.EntityPath]bool, len(refs))
	for _, ref := range refs {
		if seen[ref.To] {
			continue
		}
		seen[ref.To] = true

		if c.known.Contains(cacheKey{plane, ref.To}) {
			continue
		}
		_, err := c.reader.ReadEntity(ctx, plane, ref.To.Node, ref.To.Type, ref.To.Key)
		if err == nil {
			c.known.Add(cacheKey{plane, ref.To}, struct{}{})
			continue
		}
		if !errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("resolve %s: %w", ref.To, err)
		}

		rec, err := c.build(ctx, plane, ref)
		if err != nil {
			return nil, err
		}
		out = append(out, Creation{Path: ref.To, Record: rec})
	}
	return out, nil
}

func (c *RefCache) build(ctx context.Context, plane model.Plane, ref RefPair) (model.Entity, error) {
	switch ref.To.Type {
	case model.EntityPhysicalLocator:
		loc, err := model.ParseLocatorID(ref.To.Key)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", ref.To, err)
		}
		return loc, nil
	case model.EntityLogicalSwitch:
		src, err := c.reader.ReadEntity(ctx, plane, ref.From.Node, ref.From.Type, ref.From.Key)
		switch {
		case err == nil:
			return src, nil
		case errors.Is(err, model.ErrNotFound):
			return model.LogicalSwitch{Name: ref.To.Key}, nil
		default:
			return nil, fmt.Errorf("resolve %s: read source %s: %w", ref.To, ref.From, err)
		}
	default:
		return nil, fmt.Errorf("resolve %s: not a referenceable type", ref.To)
	}
}

// Remember records that paths exist on plane.
func (c *RefCache) Remember(plane model.Plane, paths ...model.EntityPath) {
	for _, p := range paths {
		c.known.Add(cacheKey{plane, p}, struct{}{})
	}
}

// Forget drops one record from the cache.
func (c *RefCache) Forget(plane model.Plane, path model.EntityPath) {
	c.known.Remove(cacheKey{plane, path})
}

// ForgetNode drops every cached record of node on plane.
func (c *RefCache) ForgetNode(plane model.Plane, node model.NodePath) {
	for _, k := range c.known.Keys() {
		if k.plane == plane && k.path.Node == node.Global() {
			c.known.Remove(k)
		}
	}
}

// Len returns the number of cached records.
func (c *RefCache) Len() int { return c.known.Len() }
