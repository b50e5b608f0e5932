package model

import (
	"slices"
	"sort"
	"strings"
)

// Manager other-config keys carrying HA membership.
const (
	// OtherConfigHAID tags a child's manager with the id of its HA group.
	OtherConfigHAID = "ha_id"
	// OtherConfigHAChildren lists the child paths on a parent's manager.
	OtherConfigHAChildren = "ha_children"
)

// Node is a whole-node record: a global node or a physical switch.
// Exactly one of Global and Switch is set, matching Path.Kind().
type Node struct {
	Path   NodePath     `json:"path"`
	Global *GlobalAttrs `json:"global,omitempty"`
	Switch *SwitchAttrs `json:"switch,omitempty"`
}

// GlobalAttrs are the attributes of a global node.
type GlobalAttrs struct {
	DBVersion string     `json:"db_version,omitempty"`
	Managers  []Manager  `json:"managers,omitempty"`
	Switches  []NodePath `json:"switches,omitempty"`
}

// Manager is one manager entry of a global node.
type Manager struct {
	Target      string            `json:"target"`
	Connected   bool              `json:"connected,omitempty"`
	OtherConfig map[string]string `json:"other_config,omitempty"`
}

// SwitchAttrs are the attributes of a physical switch node.
type SwitchAttrs struct {
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	ManagedBy     NodePath `json:"managed_by"`
	TunnelIPs     []string `json:"tunnel_ips,omitempty"`
	ManagementIPs []string `json:"management_ips,omitempty"`
	Ports         []string `json:"ports,omitempty"`
}

// NewGlobalNode returns an empty global node at path.
func NewGlobalNode(path NodePath) *Node {
	return &Node{Path: path, Global: &GlobalAttrs{}}
}

// NewSwitchNode returns an empty physical switch node at path.
func NewSwitchNode(path NodePath) *Node {
	return &Node{Path: path, Switch: &SwitchAttrs{Name: path.SwitchName(), ManagedBy: path.Global()}}
}

// HAID returns the ha_id tag of the first manager carrying one.
func (n *Node) HAID() string {
	if n == nil || n.Global == nil {
		return ""
	}
	for _, m := range n.Global.Managers {
		if id := m.OtherConfig[OtherConfigHAID]; id != "" {
			return id
		}
	}
	return ""
}

// HAChildren returns the child paths listed by the ha_children tag.
// Unparseable entries are skipped.
func (n *Node) HAChildren() []NodePath {
	if n == nil || n.Global == nil {
		return nil
	}
	var out []NodePath
	for _, m := range n.Global.Managers {
		for _, s := range strings.Split(m.OtherConfig[OtherConfigHAChildren], ",") {
			p, err := ParseNodePath(strings.TrimSpace(s))
			if err != nil || !p.IsGlobal() {
				continue
			}
			if !slices.Contains(out, p) {
				out = append(out, p)
			}
		}
	}
	return out
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	out := &Node{Path: n.Path}
	if g := n.Global; g != nil {
		cp := &GlobalAttrs{DBVersion: g.DBVersion, Switches: slices.Clone(g.Switches)}
		for _, m := range g.Managers {
			cp.Managers = append(cp.Managers, m.clone())
		}
		out.Global = cp
	}
	if s := n.Switch; s != nil {
		cp := *s
		cp.TunnelIPs = slices.Clone(s.TunnelIPs)
		cp.ManagementIPs = slices.Clone(s.ManagementIPs)
		cp.Ports = slices.Clone(s.Ports)
		out.Switch = &cp
	}
	return out
}

func (m Manager) clone() Manager {
	out := Manager{Target: m.Target, Connected: m.Connected}
	if m.OtherConfig != nil {
		out.OtherConfig = make(map[string]string, len(m.OtherConfig))
		for k, v := range m.OtherConfig {
			out.OtherConfig[k] = v
		}
	}
	return out
}

// MergeManagers adds the managers of src whose target is not yet in dst.
// Existing entries are kept as they are. The result is sorted by target.
func MergeManagers(dst, src []Manager) []Manager {
	out := make([]Manager, 0, len(dst)+len(src))
	seen := make(map[string]bool, len(dst))
	for _, m := range dst {
		seen[m.Target] = true
		out = append(out, m.clone())
	}
	for _, m := range src {
		if seen[m.Target] {
			continue
		}
		seen[m.Target] = true
		out = append(out, m.clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}

// UnionStrings returns the sorted, de-duplicated union of a and b.
func UnionStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := append(slices.Clone(a), b...)
	slices.Sort(out)
	return slices.Compact(out)
}
