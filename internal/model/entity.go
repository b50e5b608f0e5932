package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntityType names a kind of sub-entity record.
type EntityType string

const (
	EntityLogicalSwitch   EntityType = "logical-switch"
	EntityPhysicalLocator EntityType = "physical-locator"
	EntityLocalUcastMac   EntityType = "local-ucast-mac"
	EntityRemoteUcastMac  EntityType = "remote-ucast-mac"
	EntityLocalMcastMac   EntityType = "local-mcast-mac"
	EntityRemoteMcastMac  EntityType = "remote-mcast-mac"
)

// EntityTypes lists every sub-entity type. Referenced types (logical
// switches, locators) come first so that a full copy in this order never
// writes a dangling reference.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityLogicalSwitch,
		EntityPhysicalLocator,
		EntityLocalUcastMac,
		EntityRemoteUcastMac,
		EntityLocalMcastMac,
		EntityRemoteMcastMac,
	}
}

// Entity is a keyed record owned by one node.
type Entity interface {
	Type() EntityType
	Key() string
}

// EntityPath identifies a sub-entity record.
type EntityPath struct {
	Node NodePath
	Type EntityType
	Key  string
}

func (p EntityPath) String() string {
	return fmt.Sprintf("%s/%s/%s", p.Node, p.Type, p.Key)
}

// PathOf returns the path of e under node.
func PathOf(node NodePath, e Entity) EntityPath {
	return EntityPath{Node: node, Type: e.Type(), Key: e.Key()}
}

// LogicalSwitchRef points at a logical switch of a node.
type LogicalSwitchRef struct {
	Node NodePath `json:"node"`
	Name string   `json:"name"`
}

// Path returns the referenced entity path.
func (r LogicalSwitchRef) Path() EntityPath {
	return EntityPath{Node: r.Node, Type: EntityLogicalSwitch, Key: r.Name}
}

// LocatorRef points at a physical locator of a node.
type LocatorRef struct {
	Node NodePath `json:"node"`
	ID   string   `json:"id"`
}

// Path returns the referenced entity path.
func (r LocatorRef) Path() EntityPath {
	return EntityPath{Node: r.Node, Type: EntityPhysicalLocator, Key: r.ID}
}

// LogicalSwitch is a layer-2 broadcast domain.
type LogicalSwitch struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	TunnelKey       string `json:"tunnel_key,omitempty"`
	ReplicationMode string `json:"replication_mode,omitempty"`
}

func (LogicalSwitch) Type() EntityType { return EntityLogicalSwitch }
func (l LogicalSwitch) Key() string    { return l.Name }

// Encapsulation types of physical locators.
const EncapVXLANOverIPv4 = "vxlan_over_ipv4"

// PhysicalLocator is a tunnel endpoint.
type PhysicalLocator struct {
	EncapType string `json:"encap_type"`
	DstIP     string `json:"dst_ip"`
}

func (PhysicalLocator) Type() EntityType { return EntityPhysicalLocator }
func (l PhysicalLocator) Key() string    { return LocatorID(l.EncapType, l.DstIP) }

// LocatorID builds a locator key from its encapsulation and destination.
func LocatorID(encap, ip string) string {
	if encap == "" {
		encap = EncapVXLANOverIPv4
	}
	return encap + ":" + ip
}

// ParseLocatorID splits a locator key into encapsulation and destination.
func ParseLocatorID(id string) (PhysicalLocator, error) {
	encap, ip, ok := strings.Cut(id, ":")
	if !ok || encap == "" || ip == "" {
		return PhysicalLocator{}, fmt.Errorf("invalid locator id %q", id)
	}
	return PhysicalLocator{EncapType: encap, DstIP: ip}, nil
}

// UcastMac is the body shared by local and remote unicast MAC entries.
type UcastMac struct {
	MAC           string           `json:"mac"`
	IP            string           `json:"ip,omitempty"`
	LogicalSwitch LogicalSwitchRef `json:"logical_switch"`
	Locator       LocatorRef       `json:"locator"`
}

func (m UcastMac) Key() string { return macKey(m.MAC, m.LogicalSwitch.Name) }

// LocalUcastMac is a unicast MAC learned by the device itself.
type LocalUcastMac struct{ UcastMac }

func (LocalUcastMac) Type() EntityType { return EntityLocalUcastMac }

// RemoteUcastMac is a unicast MAC programmed toward a remote locator.
type RemoteUcastMac struct{ UcastMac }

func (RemoteUcastMac) Type() EntityType { return EntityRemoteUcastMac }

// McastMac is the body shared by local and remote multicast MAC entries.
type McastMac struct {
	MAC           string           `json:"mac"`
	LogicalSwitch LogicalSwitchRef `json:"logical_switch"`
	Locators      []LocatorRef     `json:"locators,omitempty"`
}

func (m McastMac) Key() string { return macKey(m.MAC, m.LogicalSwitch.Name) }

// LocalMcastMac is a multicast MAC entry owned by the device.
type LocalMcastMac struct{ McastMac }

func (LocalMcastMac) Type() EntityType { return EntityLocalMcastMac }

// RemoteMcastMac is a multicast MAC entry programmed toward remote locators.
type RemoteMcastMac struct{ McastMac }

func (RemoteMcastMac) Type() EntityType { return EntityRemoteMcastMac }

func macKey(mac, ls string) string {
	return strings.ToLower(mac) + "/" + ls
}

// DecodeEntity decodes a stored record of the given type.
func DecodeEntity(t EntityType, data []byte) (Entity, error) {
	var (
		e   Entity
		err error
	)
	switch t {
	case EntityLogicalSwitch:
		var v LogicalSwitch
		err = json.Unmarshal(data, &v)
		e = v
	case EntityPhysicalLocator:
		var v PhysicalLocator
		err = json.Unmarshal(data, &v)
		e = v
	case EntityLocalUcastMac:
		var v LocalUcastMac
		err = json.Unmarshal(data, &v)
		e = v
	case EntityRemoteUcastMac:
		var v RemoteUcastMac
		err = json.Unmarshal(data, &v)
		e = v
	case EntityLocalMcastMac:
		var v LocalMcastMac
		err = json.Unmarshal(data, &v)
		e = v
	case EntityRemoteMcastMac:
		var v RemoteMcastMac
		err = json.Unmarshal(data, &v)
		e = v
	default:
		return nil, fmt.Errorf("unknown entity type %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", t, err)
	}
	return e, nil
}

// ParseEntityType validates an entity type name.
func ParseEntityType(s string) (EntityType, error) {
	for _, t := range EntityTypes() {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown entity type %q", s)
}
