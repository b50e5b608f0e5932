package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNode_HATags(t *testing.T) {
	child := NewGlobalNode(GlobalPath("a"))
	child.Global.Managers = []Manager{
		{Target: "tcp:10.0.0.10:6640"},
		{Target: "tcp:10.0.0.11:6640", OtherConfig: map[string]string{OtherConfigHAID: "group-1"}},
	}
	assert.Equal(t, "group-1", child.HAID())

	parent := NewGlobalNode(GlobalPath("p"))
	parent.Global.Managers = []Manager{{
		Target: "tcp:10.0.0.10:6640",
		OtherConfig: map[string]string{
			OtherConfigHAChildren: "hwvtep://uuid/a, hwvtep://uuid/b,bogus,hwvtep://uuid/a",
		},
	}}
	assert.Equal(t, []NodePath{GlobalPath("a"), GlobalPath("b")}, parent.HAChildren())

	var nilNode *Node
	assert.Empty(t, nilNode.HAID())
	assert.Empty(t, nilNode.HAChildren())
}

func TestNode_CloneIsDeep(t *testing.T) {
	n := NewGlobalNode(GlobalPath("a"))
	n.Global.Managers = []Manager{{Target: "t1", OtherConfig: map[string]string{"k": "v"}}}
	n.Global.Switches = []NodePath{GlobalPath("a").Switch("s1")}

	cp := n.Clone()
	cp.Global.Managers[0].OtherConfig["k"] = "changed"
	cp.Global.Switches[0] = GlobalPath("b")

	assert.Equal(t, "v", n.Global.Managers[0].OtherConfig["k"])
	assert.Equal(t, GlobalPath("a").Switch("s1"), n.Global.Switches[0])
}

func TestMergeManagers_Additive(t *testing.T) {
	dst := []Manager{{Target: "b", Connected: true}}
	src := []Manager{{Target: "a"}, {Target: "b", Connected: false}}

	out := MergeManagers(dst, src)

	assert.Equal(t, []Manager{{Target: "a"}, {Target: "b", Connected: true}}, out)
}

func TestUnionStrings(t *testing.T) {
	assert.Equal(t, []string{"1", "2", "3"}, UnionStrings([]string{"3", "1"}, []string{"2", "1"}))
	assert.Nil(t, UnionStrings(nil, nil))
}
