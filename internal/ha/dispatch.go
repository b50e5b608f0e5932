package ha

import (
	"context"

	"github.com/opendaylight/netvirt-sub025/internal/engine"
	"github.com/opendaylight/netvirt-sub025/internal/model"
	"github.com/opendaylight/netvirt-sub025/internal/store"
)

// nodeHandlers reacts to whole-node changes of one (plane, kind).
// Handlers run on the store writer's goroutine: they may only touch the
// registry and submit tasks.
type nodeHandlers struct {
	OnAdd    func(c model.Change)
	OnUpdate func(c model.Change)
	OnDelete func(c model.Change)
}

type nodeKey struct {
	plane model.Plane
	kind  model.NodeKind
}

// role is a node's position in an HA group.
type role int

const (
	roleNone role = iota
	roleParent
	roleChild
)

type entityKey struct {
	plane model.Plane
	role  role
}

type entityHandler func(c model.Change)

func (m *Manager) buildTables() {
	m.nodeTable = map[nodeKey]nodeHandlers{
		{model.PlaneDeclared, model.KindGlobal}: {
			OnAdd:    m.onDeclaredGlobalAdd,
			OnUpdate: m.onDeclaredGlobalUpdate,
			OnDelete: m.onDeclaredNodeDelete,
		},
		{model.PlaneDeclared, model.KindPhysicalSwitch}: {
			OnAdd:    m.onDeclaredSwitchChange,
			OnUpdate: m.onDeclaredSwitchChange,
			OnDelete: m.onDeclaredNodeDelete,
		},
		{model.PlaneObserved, model.KindGlobal}: {
			OnAdd:    m.onObservedGlobalAdd,
			OnUpdate: m.onObservedGlobalUpdate,
			OnDelete: m.onObservedGlobalDelete,
		},
		{model.PlaneObserved, model.KindPhysicalSwitch}: {
			OnAdd:    m.onObservedSwitchChange,
			OnUpdate: m.onObservedSwitchChange,
			OnDelete: m.onObservedSwitchDelete,
		},
	}

	m.entityTable = map[entityKey]entityHandler{
		{model.PlaneDeclared, roleParent}: m.onParentEntity,
		{model.PlaneObserved, roleParent}: m.onParentEntity,
		{model.PlaneObserved, roleChild}:  m.onChildEntity,
	}
}

func (m *Manager) listener(plane model.Plane) store.Listener {
	return func(c model.Change) {
		if c.Plane != plane {
			return
		}
		m.dispatch(c)
	}
}

// dispatch classifies c and hands it to the matching handler.
func (m *Manager) dispatch(c model.Change) {
	if c.IsNode() {
		h, ok := m.nodeTable[nodeKey{c.Plane, c.Path.Kind()}]
		if !ok {
			return
		}
		var fn func(model.Change)
		switch c.Kind() {
		case model.ChangeAdd:
			fn = h.OnAdd
		case model.ChangeUpdate:
			fn = h.OnUpdate
		case model.ChangeDelete:
			fn = h.OnDelete
		}
		if fn != nil {
			fn(c)
		}
		return
	}

	if fn, ok := m.entityTable[entityKey{c.Plane, m.roleOf(c.Path)}]; ok {
		fn(c)
	}
}

func (m *Manager) roleOf(path model.NodePath) role {
	switch {
	case m.registry.IsParent(path):
		return roleParent
	case m.registry.IsChild(path):
		return roleChild
	default:
		return roleNone
	}
}

func (m *Manager) submit(name string, node model.NodePath, fn engine.TaskFunc) {
	if !m.sched.Submit(name, node, fn) {
		m.logger.Debug("task rejected: scheduler stopped", "task", name, "node", node)
	}
}

// registerChildren records the ha_children of a declared parent node. A
// child that connected before it was listed gets its connect work now.
func (m *Manager) registerChildren(n *model.Node) {
	for _, child := range n.HAChildren() {
		if !m.registry.AddChild(n.Path, child) {
			continue
		}
		m.logger.Info("ha child registered", "parent", n.Path, "child", child, "source", "ha_children")
		if m.registry.IsConnected(child) {
			m.submit("upward.connect", child, func(ctx context.Context) error {
				return m.lateChildConnected(ctx, child)
			})
		}
	}
}

// registerByHAID records n as a child of the parent derived from its ha_id.
// Returns true if the relationship is new.
func (m *Manager) registerByHAID(n *model.Node) bool {
	id := n.HAID()
	if id == "" {
		return false
	}
	parent := model.ParentPathForHAID(id)
	if parent == n.Path.Global() {
		// The parent's own observed node carries its children's tags.
		return false
	}
	if m.registry.AddChild(parent, n.Path) {
		m.logger.Info("ha child registered", "parent", parent, "child", n.Path, "ha_id", id)
		return true
	}
	return false
}

// Declared plane.

func (m *Manager) onDeclaredGlobalAdd(c model.Change) {
	m.registerChildren(c.NodeAfter)
	if !m.registry.IsParent(c.Path) {
		return
	}
	parent := c.Path
	m.submit("downward.node-add", parent, func(ctx context.Context) error {
		return m.copyToChildren(ctx, parent)
	})
}

func (m *Manager) onDeclaredGlobalUpdate(c model.Change) {
	m.registerChildren(c.NodeAfter)
	if !m.registry.IsParent(c.Path) {
		return
	}
	parent, before, after := c.Path, c.NodeBefore, c.NodeAfter
	m.submit("downward.node-update", parent, func(ctx context.Context) error {
		return m.forwardDelta(ctx, parent, before, after)
	})
}

func (m *Manager) onDeclaredSwitchChange(c model.Change) {
	if !m.registry.IsParent(c.Path) {
		return
	}
	sw := c.Path
	m.submit("downward.switch", sw, func(ctx context.Context) error {
		return m.copySwitchToChildren(ctx, sw)
	})
}

func (m *Manager) onDeclaredNodeDelete(c model.Change) {
	if !m.registry.IsParent(c.Path) {
		return
	}
	path := c.Path
	m.submit("downward.node-delete", path, func(ctx context.Context) error {
		return m.deleteFromChildren(ctx, path)
	})
}

// Observed plane.

func (m *Manager) onObservedGlobalAdd(c model.Change) {
	m.registerByHAID(c.NodeAfter)
	m.connect(c.Path)
}

func (m *Manager) onObservedGlobalUpdate(c model.Change) {
	if m.registerByHAID(c.NodeAfter) || !m.registry.IsConnected(c.Path) {
		// Newly tagged or never seen: treat as a connect.
		m.connect(c.Path)
		return
	}
	if !m.registry.IsChild(c.Path) {
		return
	}
	child := c.Path
	m.submit("upward.node-update", child, func(ctx context.Context) error {
		return m.mergeChildNode(ctx, child)
	})
}

func (m *Manager) onObservedGlobalDelete(c model.Change) {
	m.registry.MarkDisconnected(c.Path)
	if !m.registry.IsChild(c.Path) {
		return
	}
	child := c.Path
	m.submit("upward.disconnect", child, func(ctx context.Context) error {
		return m.childDisconnected(ctx, child)
	})
}

// connect submits the connect task before marking the node connected so
// that jobs drained afterwards queue behind it.
func (m *Manager) connect(path model.NodePath) {
	if m.registry.IsChild(path) {
		m.submit("upward.connect", path, func(ctx context.Context) error {
			return m.childConnected(ctx, path)
		})
	}
	m.registry.MarkConnected(path)
	m.drain(path)
}

func (m *Manager) onObservedSwitchChange(c model.Change) {
	sw := c.Path
	if m.registry.IsChild(sw) {
		m.submit("upward.switch", sw, func(ctx context.Context) error {
			return m.childSwitchConnected(ctx, sw)
		})
	}
	if m.registry.MarkConnected(sw) {
		m.drain(sw)
	}
}

func (m *Manager) onObservedSwitchDelete(c model.Change) {
	m.registry.MarkDisconnected(c.Path)
}

// Sub-entities.

func (m *Manager) onParentEntity(c model.Change) {
	m.submit("downward.entity-"+c.Kind().String(), c.Path, func(ctx context.Context) error {
		return m.replicateDown(ctx, c)
	})
}

func (m *Manager) onChildEntity(c model.Change) {
	m.submit("upward.entity-"+c.Kind().String(), c.Path, func(ctx context.Context) error {
		return m.aggregateUp(ctx, c)
	})
}
