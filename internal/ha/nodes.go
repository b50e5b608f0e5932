package ha

import (
	"slices"
	"strings"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// rebasePaths moves switch paths under global, sorted and de-duplicated.
func rebasePaths(paths []model.NodePath, global model.NodePath) []model.NodePath {
	if len(paths) == 0 {
		return nil
	}
	out := make([]model.NodePath, 0, len(paths))
	for _, p := range paths {
		out = append(out, p.Rebase(global))
	}
	slices.SortFunc(out, func(a, b model.NodePath) int { return strings.Compare(a.String(), b.String()) })
	return slices.Compact(out)
}

// parentFromChild bootstraps a parent's observed global node from the first
// child that connects.
func parentFromChild(parent model.NodePath, child *model.Node) *model.Node {
	n := model.NewGlobalNode(parent)
	if child.Global == nil {
		return n
	}
	c := child.Clone()
	n.Global.DBVersion = c.Global.DBVersion
	n.Global.Managers = model.MergeManagers(nil, c.Global.Managers)
	n.Global.Switches = rebasePaths(c.Global.Switches, parent)
	return n
}

// mergeChildIntoParent adds a further child's managers and switches to an
// existing parent node. Existing values win.
func mergeChildIntoParent(existing, child *model.Node) *model.Node {
	n := existing.Clone()
	if n.Global == nil {
		n.Global = &model.GlobalAttrs{}
	}
	if child.Global == nil {
		return n
	}
	if n.Global.DBVersion == "" {
		n.Global.DBVersion = child.Global.DBVersion
	}
	n.Global.Managers = model.MergeManagers(n.Global.Managers, child.Global.Managers)
	n.Global.Switches = rebasePaths(append(slices.Clone(n.Global.Switches), child.Global.Switches...), n.Path)
	return n
}

// mergeSwitchUp creates or extends the parent's observed switch from a
// child's observed switch. Addresses and ports are unioned.
func mergeSwitchUp(target model.NodePath, existing, child *model.Node) *model.Node {
	var n *model.Node
	if existing == nil {
		n = child.Clone()
		n.Path = target
		if n.Switch == nil {
			n.Switch = &model.SwitchAttrs{}
		}
		n.Switch.Name = target.SwitchName()
		n.Switch.ManagedBy = target.Global()
		return n
	}

	n = existing.Clone()
	if n.Switch == nil {
		n.Switch = &model.SwitchAttrs{Name: target.SwitchName(), ManagedBy: target.Global()}
	}
	if child.Switch == nil {
		return n
	}
	if n.Switch.Description == "" {
		n.Switch.Description = child.Switch.Description
	}
	n.Switch.TunnelIPs = model.UnionStrings(n.Switch.TunnelIPs, child.Switch.TunnelIPs)
	n.Switch.ManagementIPs = model.UnionStrings(n.Switch.ManagementIPs, child.Switch.ManagementIPs)
	n.Switch.Ports = model.UnionStrings(n.Switch.Ports, child.Switch.Ports)
	return n
}

// declaredChildNode builds a child's declared global node from the parent's.
// The child keeps its own managers so it never inherits ha_children.
func declaredChildNode(parent *model.Node, child model.NodePath, existing *model.Node) *model.Node {
	n := model.NewGlobalNode(child)
	if existing != nil && existing.Global != nil {
		n.Global.Managers = existing.Clone().Global.Managers
	}
	if parent.Global != nil {
		n.Global.DBVersion = parent.Global.DBVersion
		n.Global.Switches = rebasePaths(parent.Global.Switches, child)
	}
	return n
}

// applyDelta forwards the attributes that changed between before and after
// onto a child's declared node.
func applyDelta(existing, before, after *model.Node) *model.Node {
	n := existing.Clone()
	if n.Global == nil {
		n.Global = &model.GlobalAttrs{}
	}
	var b, a model.GlobalAttrs
	if before != nil && before.Global != nil {
		b = *before.Global
	}
	if after.Global != nil {
		a = *after.Global
	}
	if b.DBVersion != a.DBVersion {
		n.Global.DBVersion = a.DBVersion
	}
	if !slices.Equal(b.Switches, a.Switches) {
		n.Global.Switches = rebasePaths(a.Switches, n.Path)
	}
	return n
}

// switchDown copies a parent's declared switch to a child.
func switchDown(parentSwitch *model.Node, target model.NodePath) *model.Node {
	n := parentSwitch.Clone()
	n.Path = target
	if n.Switch == nil {
		n.Switch = &model.SwitchAttrs{}
	}
	n.Switch.Name = target.SwitchName()
	n.Switch.ManagedBy = target.Global()
	return n
}

// switchFromObserved seeds a child's declared switch with the tunnel
// addresses the device reports.
func switchFromObserved(observed *model.Node) *model.Node {
	n := model.NewSwitchNode(observed.Path)
	if observed.Switch != nil {
		n.Switch.TunnelIPs = slices.Clone(observed.Switch.TunnelIPs)
	}
	return n
}
