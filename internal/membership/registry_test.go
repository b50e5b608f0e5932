package membership

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

var (
	parent = model.GlobalPath("p")
	childA = model.GlobalPath("a")
	childB = model.GlobalPath("b")
)

func TestRegistry_AddChild(t *testing.T) {
	r := New()

	assert.True(t, r.AddChild(parent, childA))
	assert.False(t, r.AddChild(parent, childA), "second add is a no-op")
	assert.True(t, r.AddChild(parent, childB))

	got, ok := r.ParentOf(childA)
	assert.True(t, ok)
	assert.Equal(t, parent, got)
	assert.Equal(t, []model.NodePath{childA, childB}, r.ChildrenOf(parent))
	assert.True(t, r.IsParent(parent))
	assert.True(t, r.IsChild(childB))
	assert.False(t, r.IsChild(parent))
	assert.False(t, r.IsParent(childA))
}

func TestRegistry_SwitchPathsResolveToGlobal(t *testing.T) {
	r := New()
	r.AddChild(parent.Switch("tor1"), childA.Switch("tor1"))

	got, ok := r.ParentOf(childA.Switch("tor1"))
	assert.True(t, ok)
	assert.Equal(t, parent, got)
	assert.True(t, r.IsParent(parent.Switch("other")))
}

func TestRegistry_ChildMovesToNewParent(t *testing.T) {
	r := New()
	other := model.GlobalPath("q")

	r.AddChild(parent, childA)
	assert.True(t, r.AddChild(other, childA))

	got, _ := r.ParentOf(childA)
	assert.Equal(t, other, got)
	assert.Empty(t, r.ChildrenOf(parent))
	assert.False(t, r.IsParent(parent))
}

func TestRegistry_ChildrenOfUnknownIsEmpty(t *testing.T) {
	r := New()
	children := r.ChildrenOf(parent)
	assert.NotNil(t, children)
	assert.Empty(t, children)
}

func TestRegistry_ConnectedSet(t *testing.T) {
	r := New()
	r.AddChild(parent, childA)
	r.AddChild(parent, childB)

	assert.True(t, r.MarkConnected(childA))
	assert.False(t, r.MarkConnected(childA))
	assert.True(t, r.IsConnected(childA))
	assert.Equal(t, []model.NodePath{childA}, r.ConnectedChildren(parent))

	assert.True(t, r.MarkDisconnected(childA))
	assert.False(t, r.MarkDisconnected(childA))
	assert.Empty(t, r.ConnectedChildren(parent))

	// Membership survives a disconnect.
	assert.True(t, r.IsChild(childA))
}

func TestRegistry_Snapshot(t *testing.T) {
	r := New()
	r.AddChild(parent, childB)
	r.AddChild(parent, childA)
	r.MarkConnected(childB)

	groups := r.Snapshot()
	assert.Equal(t, []Group{{
		Parent:    parent,
		Children:  []model.NodePath{childA, childB},
		Connected: []model.NodePath{childB},
	}}, groups)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := model.GlobalPath(fmt.Sprintf("c%d", i))
			r.AddChild(parent, c)
			r.MarkConnected(c)
			_ = r.ChildrenOf(parent)
			_ = r.ConnectedChildren(parent)
			r.IsChild(c)
		}(i)
	}
	wg.Wait()

	assert.Len(t, r.ChildrenOf(parent), 50)
	assert.Len(t, r.ConnectedChildren(parent), 50)
}
