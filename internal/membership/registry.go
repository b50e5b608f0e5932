// Package membership indexes HA parent/child relationships and tracks which
// nodes are currently connected on the observed plane.
//
// The registry is a derived secondary index. The source of truth is the
// ha_id / ha_children manager tags in the topology store; the registry only
// remembers what the engine has already seen of them.
//
// Thread-safety: every method is safe for concurrent use. Listener callbacks
// read and write the registry outside the serialized task queue.
package membership

import (
	"sort"
	"sync"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// Registry is the bidirectional parent/children index plus the connected set.
//
// All keys are global node paths; physical-switch paths are reduced to their
// managing global node.
type Registry struct {
	mu        sync.RWMutex
	parentOf  map[model.NodePath]model.NodePath
	children  map[model.NodePath]map[model.NodePath]struct{}
	connected map[model.NodePath]struct{}
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		parentOf:  make(map[model.NodePath]model.NodePath),
		children:  make(map[model.NodePath]map[model.NodePath]struct{}),
		connected: make(map[model.NodePath]struct{}),
	}
}

// AddChild records child as a member of parent's HA group.
// A child belongs to at most one parent; re-adding it under a different
// parent moves it. Returns true if the relationship is new.
func (r *Registry) AddChild(parent, child model.NodePath) bool {
	parent, child = parent.Global(), child.Global()

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.parentOf[child]; ok {
		if old == parent {
			return false
		}
		delete(r.children[old], child)
		if len(r.children[old]) == 0 {
			delete(r.children, old)
		}
	}
	r.parentOf[child] = parent
	set, ok := r.children[parent]
	if !ok {
		set = make(map[model.NodePath]struct{})
		r.children[parent] = set
	}
	set[child] = struct{}{}
	return true
}

// ParentOf returns the parent of child, if any.
func (r *Registry) ParentOf(child model.NodePath) (model.NodePath, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parentOf[child.Global()]
	return p, ok
}

// ChildrenOf returns the children of parent sorted by path.
// Returns an empty slice (not nil) if parent has none.
func (r *Registry) ChildrenOf(parent model.NodePath) []model.NodePath {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedPaths(r.children[parent.Global()])
}

// IsParent reports whether path is known as an HA parent.
func (r *Registry) IsParent(path model.NodePath) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.children[path.Global()]) > 0
}

// IsChild reports whether path is known as an HA child.
func (r *Registry) IsChild(path model.NodePath) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.parentOf[path.Global()]
	return ok
}

// MarkConnected adds path to the connected set.
// Returns true if path was not connected before.
func (r *Registry) MarkConnected(path model.NodePath) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.connected[path]; ok {
		return false
	}
	r.connected[path] = struct{}{}
	return true
}

// MarkDisconnected removes path from the connected set.
// Returns true if path was connected.
func (r *Registry) MarkDisconnected(path model.NodePath) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.connected[path]; !ok {
		return false
	}
	delete(r.connected, path)
	return true
}

// IsConnected reports whether path is in the connected set.
func (r *Registry) IsConnected(path model.NodePath) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.connected[path]
	return ok
}

// ConnectedChildren returns the children of parent that are connected.
func (r *Registry) ConnectedChildren(parent model.NodePath) []model.NodePath {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []model.NodePath{}
	for _, c := range sortedPaths(r.children[parent.Global()]) {
		if _, ok := r.connected[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Group is one parent with its children, as reported by Snapshot.
type Group struct {
	Parent    model.NodePath
	Children  []model.NodePath
	Connected []model.NodePath
}

// Snapshot returns every HA group sorted by parent path.
func (r *Registry) Snapshot() []Group {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parents := make(map[model.NodePath]struct{}, len(r.children))
	for p := range r.children {
		parents[p] = struct{}{}
	}
	groups := make([]Group, 0, len(parents))
	for _, p := range sortedPaths(parents) {
		g := Group{Parent: p, Children: sortedPaths(r.children[p]), Connected: []model.NodePath{}}
		for _, c := range g.Children {
			if _, ok := r.connected[c]; ok {
				g.Connected = append(g.Connected, c)
			}
		}
		groups = append(groups, g)
	}
	return groups
}

func sortedPaths(set map[model.NodePath]struct{}) []model.NodePath {
	out := make([]model.NodePath, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
