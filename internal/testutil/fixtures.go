package testutil

import (
	"fmt"
	"strings"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// DefaultTunnelIP is the locator address used when a fixture needs one.
const DefaultTunnelIP = "192.168.100.1"

// ChildNode builds a device's observed global node tagged with haID.
func ChildNode(id, haID, dbVersion string) *model.Node {
	n := model.NewGlobalNode(model.GlobalPath(id))
	n.Global.DBVersion = dbVersion
	mgr := model.Manager{Target: fmt.Sprintf("tcp:%s:6640", id), Connected: true}
	if haID != "" {
		mgr.OtherConfig = map[string]string{model.OtherConfigHAID: haID}
	}
	n.Global.Managers = []model.Manager{mgr}
	return n
}

// ParentNode builds a declared HA parent listing its children.
func ParentNode(path model.NodePath, dbVersion string, children ...model.NodePath) *model.Node {
	n := model.NewGlobalNode(path)
	n.Global.DBVersion = dbVersion
	ids := make([]string, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.String())
	}
	n.Global.Managers = []model.Manager{{
		Target:      "ptcp:6640",
		OtherConfig: map[string]string{model.OtherConfigHAChildren: strings.Join(ids, ",")},
	}}
	return n
}

// SwitchNode builds a physical switch under global.
func SwitchNode(global model.NodePath, name string, tunnelIPs ...string) *model.Node {
	n := model.NewSwitchNode(global.Switch(name))
	n.Switch.TunnelIPs = tunnelIPs
	return n
}

// LogicalSwitch builds a logical switch record.
func LogicalSwitch(name, tunnelKey string) model.LogicalSwitch {
	return model.LogicalSwitch{Name: name, TunnelKey: tunnelKey}
}

// Ucast builds the unicast MAC body owned by node.
func Ucast(node model.NodePath, mac, ls, tunnelIP string) model.UcastMac {
	if tunnelIP == "" {
		tunnelIP = DefaultTunnelIP
	}
	return model.UcastMac{
		MAC:           mac,
		LogicalSwitch: model.LogicalSwitchRef{Node: node, Name: ls},
		Locator:       model.LocatorRef{Node: node, ID: model.LocatorID(model.EncapVXLANOverIPv4, tunnelIP)},
	}
}

// LocalMac builds a local unicast MAC owned by node.
func LocalMac(node model.NodePath, mac, ls string) model.LocalUcastMac {
	return model.LocalUcastMac{UcastMac: Ucast(node, mac, ls, "")}
}

// RemoteMac builds a remote unicast MAC owned by node.
func RemoteMac(node model.NodePath, mac, ls, tunnelIP string) model.RemoteUcastMac {
	return model.RemoteUcastMac{UcastMac: Ucast(node, mac, ls, tunnelIP)}
}

// LocalMcast builds a local multicast MAC owned by node.
func LocalMcast(node model.NodePath, mac, ls string, tunnelIPs ...string) model.LocalMcastMac {
	m := model.McastMac{MAC: mac, LogicalSwitch: model.LogicalSwitchRef{Node: node, Name: ls}}
	for _, ip := range tunnelIPs {
		m.Locators = append(m.Locators, model.LocatorRef{Node: node, ID: model.LocatorID(model.EncapVXLANOverIPv4, ip)})
	}
	return model.LocalMcastMac{McastMac: m}
}
