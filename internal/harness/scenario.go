package harness

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/opendaylight/netvirt-sub025/internal/model"
	"github.com/opendaylight/netvirt-sub025/internal/testutil"
)

// Scenario is a sequence of device and operator writes followed by
// expectations on the converged state.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Steps are applied in order; the engine settles after each one.
	Steps []Step `yaml:"steps"`

	// Expect is checked against the final state.
	Expect []Expectation `yaml:"expect"`
}

// Step is one write to the topology store.
type Step struct {
	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	// Node is the node reference the step writes.
	Node string `yaml:"node"`

	// Plane defaults to observed, or declared for "declare".
	Plane string `yaml:"plane,omitempty"`

	HAID      string   `yaml:"ha_id,omitempty"`
	DBVersion string   `yaml:"db_version,omitempty"`
	Children  []string `yaml:"children,omitempty"`
	TunnelIPs []string `yaml:"tunnel_ips,omitempty"`

	// Entity is the record of put-entity and delete-entity.
	Entity *EntitySpec `yaml:"entity,omitempty"`
}

// EntitySpec describes a sub-entity record. The owner is the step's node.
type EntitySpec struct {
	Type string `yaml:"type"`

	// Name and TunnelKey describe a logical switch.
	Name      string `yaml:"name,omitempty"`
	TunnelKey string `yaml:"tunnel_key,omitempty"`

	// DstIP describes a physical locator.
	DstIP string `yaml:"dst_ip,omitempty"`

	// MAC records. Unicast entries use the first locator, or the default
	// tunnel address when none is given.
	MAC           string   `yaml:"mac,omitempty"`
	IP            string   `yaml:"ip,omitempty"`
	LogicalSwitch string   `yaml:"logical_switch,omitempty"`
	Locators      []string `yaml:"locators,omitempty"`
}

// Expectation checks one fact of the final state.
type Expectation struct {
	// Type is one of the Expect* constants.
	Type  string `yaml:"type"`
	Plane string `yaml:"plane,omitempty"`
	Node  string `yaml:"node"`

	// Entity and Keys are used by entity_keys. An empty Keys list expects
	// no records.
	Entity string   `yaml:"entity,omitempty"`
	Keys   []string `yaml:"keys,omitempty"`

	// Value is used by db_version; Values by tunnel_ips and
	// connected_children.
	Value  string   `yaml:"value,omitempty"`
	Values []string `yaml:"values,omitempty"`
}

// Step actions.
const (
	ActionConnect      = "connect"
	ActionDisconnect   = "disconnect"
	ActionDeclare      = "declare"
	ActionPutNode      = "put-node"
	ActionPutEntity    = "put-entity"
	ActionDeleteEntity = "delete-entity"
)

// Expectation types.
const (
	ExpectNodeExists        = "node_exists"
	ExpectNodeAbsent        = "node_absent"
	ExpectEntityKeys        = "entity_keys"
	ExpectDBVersion         = "db_version"
	ExpectTunnelIPs         = "tunnel_ips"
	ExpectConnectedChildren = "connected_children"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	for i, exp := range s.Expect {
		if err := validateExpectation(exp); err != nil {
			return fmt.Errorf("expect[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	if step.Node == "" {
		return fmt.Errorf("node is required")
	}
	path, err := ResolveRef(step.Node)
	if err != nil {
		return err
	}
	if _, err := step.plane(); err != nil {
		return err
	}

	switch step.Action {
	case ActionConnect, ActionDisconnect, ActionDeclare:
		if !path.IsGlobal() {
			return fmt.Errorf("%s needs a global node, got %q", step.Action, step.Node)
		}
		for _, c := range step.Children {
			if _, err := ResolveRef(c); err != nil {
				return fmt.Errorf("children: %w", err)
			}
		}
	case ActionPutNode:
	case ActionPutEntity, ActionDeleteEntity:
		if step.Entity == nil {
			return fmt.Errorf("entity is required for %s", step.Action)
		}
		if !path.IsGlobal() {
			return fmt.Errorf("records are owned by global nodes, got %q", step.Node)
		}
		if _, err := step.Entity.Build(path); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
	return nil
}

func validateExpectation(exp Expectation) error {
	if exp.Node == "" {
		return fmt.Errorf("node is required")
	}
	if _, err := ResolveRef(exp.Node); err != nil {
		return err
	}
	if exp.Plane != "" {
		if _, err := model.ParsePlane(exp.Plane); err != nil {
			return err
		}
	}

	switch exp.Type {
	case ExpectNodeExists, ExpectNodeAbsent, ExpectTunnelIPs, ExpectConnectedChildren:
	case ExpectDBVersion:
		if exp.Value == "" {
			return fmt.Errorf("value is required for %s", exp.Type)
		}
	case ExpectEntityKeys:
		if _, err := model.ParseEntityType(exp.Entity); err != nil {
			return err
		}
	case "":
		return fmt.Errorf("type is required")
	default:
		return fmt.Errorf("unknown expectation type %q", exp.Type)
	}
	return nil
}

func (s Step) plane() (model.Plane, error) {
	if s.Plane != "" {
		return model.ParsePlane(s.Plane)
	}
	if s.Action == ActionDeclare {
		return model.PlaneDeclared, nil
	}
	return model.PlaneObserved, nil
}

// ResolveRef turns a node reference into a path.
func ResolveRef(ref string) (model.NodePath, error) {
	if strings.HasPrefix(ref, model.PathScheme) {
		return model.ParseNodePath(ref)
	}
	global, sw, hasSwitch := strings.Cut(ref, "/")
	if global == "" || (hasSwitch && (sw == "" || strings.Contains(sw, "/"))) {
		return model.NodePath{}, fmt.Errorf("invalid node reference %q", ref)
	}

	var p model.NodePath
	if id, ok := strings.CutPrefix(global, "ha:"); ok {
		if id == "" {
			return model.NodePath{}, fmt.Errorf("invalid node reference %q: empty ha_id", ref)
		}
		p = model.ParentPathForHAID(id)
	} else {
		p = model.GlobalPath(global)
	}
	if hasSwitch {
		p = p.Switch(sw)
	}
	return p, nil
}

// Build returns the record owned by owner.
func (e EntitySpec) Build(owner model.NodePath) (model.Entity, error) {
	t, err := model.ParseEntityType(e.Type)
	if err != nil {
		return nil, err
	}

	switch t {
	case model.EntityLogicalSwitch:
		if e.Name == "" {
			return nil, fmt.Errorf("%s: name is required", t)
		}
		return testutil.LogicalSwitch(e.Name, e.TunnelKey), nil
	case model.EntityPhysicalLocator:
		if e.DstIP == "" {
			return nil, fmt.Errorf("%s: dst_ip is required", t)
		}
		return model.PhysicalLocator{EncapType: model.EncapVXLANOverIPv4, DstIP: e.DstIP}, nil
	}

	if e.MAC == "" || e.LogicalSwitch == "" {
		return nil, fmt.Errorf("%s: mac and logical_switch are required", t)
	}
	switch t {
	case model.EntityLocalUcastMac, model.EntityRemoteUcastMac:
		var ip string
		if len(e.Locators) > 0 {
			ip = e.Locators[0]
		}
		body := testutil.Ucast(owner, e.MAC, e.LogicalSwitch, ip)
		body.IP = e.IP
		if t == model.EntityLocalUcastMac {
			return model.LocalUcastMac{UcastMac: body}, nil
		}
		return model.RemoteUcastMac{UcastMac: body}, nil
	case model.EntityLocalMcastMac:
		return testutil.LocalMcast(owner, e.MAC, e.LogicalSwitch, e.Locators...), nil
	default:
		m := testutil.LocalMcast(owner, e.MAC, e.LogicalSwitch, e.Locators...)
		return model.RemoteMcastMac{McastMac: m.McastMac}, nil
	}
}
