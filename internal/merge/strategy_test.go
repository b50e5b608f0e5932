package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

var (
	child  = model.GlobalPath("a")
	parent = model.GlobalPath("p")
)

func ucast(node model.NodePath) model.UcastMac {
	return model.UcastMac{
		MAC:           "aa:bb:cc:dd:ee:ff",
		IP:            "10.1.1.5",
		LogicalSwitch: model.LogicalSwitchRef{Node: node, Name: "ls1"},
		Locator:       model.LocatorRef{Node: node, ID: "vxlan_over_ipv4:192.168.0.1"},
	}
}

func TestAll_CoversEveryType(t *testing.T) {
	all := All()
	require.Len(t, all, len(model.EntityTypes()))
	for i, typ := range model.EntityTypes() {
		assert.Equal(t, typ, all[i].Type())
		assert.NotEmpty(t, all[i].Describe())
	}
}

func TestUpward_RemoteUcastExcluded(t *testing.T) {
	for _, s := range All() {
		want := s.Type() != model.EntityRemoteUcastMac
		assert.Equal(t, want, s.Upward(), s.Describe())
	}
}

func TestUcastTransform_RewritesReferences(t *testing.T) {
	s, ok := For(model.EntityLocalUcastMac)
	require.True(t, ok)

	src := model.LocalUcastMac{UcastMac: ucast(child)}
	got, err := s.Transform(parent, src)
	require.NoError(t, err)

	want := model.LocalUcastMac{UcastMac: ucast(parent)}
	assert.True(t, model.EqualEntities(want, got))
	assert.Equal(t, model.EntityPath{Node: parent, Type: model.EntityLocalUcastMac, Key: "aa:bb:cc:dd:ee:ff/ls1"}, s.Identify(parent, got))

	// The source is left untouched.
	assert.Equal(t, child, src.Locator.Node)
}

func TestUcastTransform_SwitchTargetUsesGlobal(t *testing.T) {
	s, _ := For(model.EntityRemoteUcastMac)
	got, err := s.Transform(parent.Switch("tor1"), model.RemoteUcastMac{UcastMac: ucast(child)})
	require.NoError(t, err)
	assert.Equal(t, parent, got.(model.RemoteUcastMac).Locator.Node)
}

func TestTransform_TypeMismatch(t *testing.T) {
	s, _ := For(model.EntityLocalUcastMac)
	_, err := s.Transform(parent, model.RemoteUcastMac{UcastMac: ucast(child)})
	assert.Error(t, err)

	s, _ = For(model.EntityLogicalSwitch)
	_, err = s.Transform(parent, model.PhysicalLocator{})
	assert.Error(t, err)
}

func TestMcastTransform_DoesNotAliasSource(t *testing.T) {
	s, _ := For(model.EntityRemoteMcastMac)
	src := model.RemoteMcastMac{McastMac: model.McastMac{
		MAC:           "unknown-dst",
		LogicalSwitch: model.LogicalSwitchRef{Node: child, Name: "ls1"},
		Locators: []model.LocatorRef{
			{Node: child, ID: "vxlan_over_ipv4:192.168.0.1"},
			{Node: child, ID: "vxlan_over_ipv4:192.168.0.2"},
		},
	}}

	got, err := s.Transform(parent, src)
	require.NoError(t, err)

	m := got.(model.RemoteMcastMac)
	for _, loc := range m.Locators {
		assert.Equal(t, parent, loc.Node)
	}
	for _, loc := range src.Locators {
		assert.Equal(t, child, loc.Node)
	}

	refs := s.Refs(parent, src)
	require.Len(t, refs, 3)
	assert.Equal(t, model.EntityPath{Node: child, Type: model.EntityLogicalSwitch, Key: "ls1"}, refs[0].From)
	assert.Equal(t, model.EntityPath{Node: parent, Type: model.EntityLogicalSwitch, Key: "ls1"}, refs[0].To)
	assert.Equal(t, model.EntityPath{Node: parent, Type: model.EntityPhysicalLocator, Key: "vxlan_over_ipv4:192.168.0.2"}, refs[2].To)
}

func TestLogicalSwitchAndLocator_Identity(t *testing.T) {
	s, _ := For(model.EntityLogicalSwitch)
	ls := model.LogicalSwitch{Name: "ls1", TunnelKey: "100"}
	got, err := s.Transform(parent, ls)
	require.NoError(t, err)
	assert.Equal(t, ls, got)
	assert.Empty(t, s.Refs(parent, ls))

	s, _ = For(model.EntityPhysicalLocator)
	loc := model.PhysicalLocator{EncapType: model.EncapVXLANOverIPv4, DstIP: "1.1.1.1"}
	got, err = s.Transform(parent, loc)
	require.NoError(t, err)
	assert.Equal(t, loc, got)
}
