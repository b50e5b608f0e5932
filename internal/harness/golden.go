package harness

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// Reader is the read side of the topology store used for rendering.
type Reader interface {
	ListNodes(ctx context.Context, plane model.Plane, prefix string) ([]*model.Node, error)
	ListEntities(ctx context.Context, plane model.Plane, node model.NodePath, t model.EntityType) ([]model.Entity, error)
}

// Namer renders a node path. NodePath.String is the plain form.
type Namer func(model.NodePath) string

// WriteState renders the nodes and records of each plane, one line per
// node followed by its records indented. Nodes are sorted by rendered name
// and records by type and key, so equal states render identically.
func WriteState(ctx context.Context, w io.Writer, r Reader, name Namer, planes ...model.Plane) error {
	if name == nil {
		name = model.NodePath.String
	}
	for _, plane := range planes {
		nodes, err := r.ListNodes(ctx, plane, model.PathScheme)
		if err != nil {
			return fmt.Errorf("render %s: %w", plane, err)
		}
		slices.SortFunc(nodes, func(a, b *model.Node) int {
			return strings.Compare(name(a.Path), name(b.Path))
		})

		fmt.Fprintf(w, "== %s ==\n", plane)
		for _, n := range nodes {
			fmt.Fprintf(w, "%s %s\n", name(n.Path), describeNode(n, name))
			if !n.Path.IsGlobal() {
				continue
			}
			records, err := r.ListEntities(ctx, plane, n.Path, "")
			if err != nil {
				return fmt.Errorf("render %s %s: %w", plane, n.Path, err)
			}
			for _, rec := range records {
				fmt.Fprintf(w, "  %s\n", describeEntity(rec, name))
			}
		}
	}
	return nil
}

func describeNode(n *model.Node, name Namer) string {
	parts := []string{n.Path.Kind().String()}
	if g := n.Global; g != nil {
		if g.DBVersion != "" {
			parts = append(parts, "db_version="+g.DBVersion)
		}
		if len(g.Managers) > 0 {
			targets := make([]string, 0, len(g.Managers))
			for _, m := range g.Managers {
				targets = append(targets, m.Target)
			}
			parts = append(parts, "managers="+strings.Join(targets, ","))
		}
		if len(g.Switches) > 0 {
			switches := make([]string, 0, len(g.Switches))
			for _, s := range g.Switches {
				switches = append(switches, name(s))
			}
			parts = append(parts, "switches="+strings.Join(switches, ","))
		}
	}
	if s := n.Switch; s != nil {
		parts = appendList(parts, "tunnel_ips", s.TunnelIPs)
		parts = appendList(parts, "management_ips", s.ManagementIPs)
		parts = appendList(parts, "ports", s.Ports)
	}
	return strings.Join(parts, " ")
}

func describeEntity(e model.Entity, name Namer) string {
	parts := []string{string(e.Type()), e.Key()}
	switch v := e.(type) {
	case model.LogicalSwitch:
		if v.TunnelKey != "" {
			parts = append(parts, "tunnel_key="+v.TunnelKey)
		}
	case model.LocalUcastMac:
		parts = append(parts, describeUcast(v.UcastMac, name)...)
	case model.RemoteUcastMac:
		parts = append(parts, describeUcast(v.UcastMac, name)...)
	case model.LocalMcastMac:
		parts = append(parts, describeMcast(v.McastMac, name)...)
	case model.RemoteMcastMac:
		parts = append(parts, describeMcast(v.McastMac, name)...)
	}
	return strings.Join(parts, " ")
}

func describeUcast(m model.UcastMac, name Namer) []string {
	out := []string{
		"ls=" + name(m.LogicalSwitch.Node) + "/" + m.LogicalSwitch.Name,
		"locator=" + name(m.Locator.Node) + "/" + m.Locator.ID,
	}
	if m.IP != "" {
		out = append(out, "ip="+m.IP)
	}
	return out
}

func describeMcast(m model.McastMac, name Namer) []string {
	out := []string{"ls=" + name(m.LogicalSwitch.Node) + "/" + m.LogicalSwitch.Name}
	locs := make([]string, 0, len(m.Locators))
	for _, l := range m.Locators {
		locs = append(locs, name(l.Node)+"/"+l.ID)
	}
	return appendList(out, "locators", locs)
}

func appendList(parts []string, key string, values []string) []string {
	if len(values) == 0 {
		return parts
	}
	return append(parts, key+"="+strings.Join(values, ","))
}

// writeSnapshot renders the HA groups and both planes.
func (h *Harness) writeSnapshot(ctx context.Context, w io.Writer, scenario string) error {
	fmt.Fprintf(w, "scenario: %s\n", scenario)
	fmt.Fprintln(w, "== groups ==")
	for _, g := range h.manager.Registry().Snapshot() {
		fmt.Fprintf(w, "%s children=%s connected=%s\n",
			h.name(g.Parent), h.joinNames(g.Children), h.joinNames(g.Connected))
	}
	return WriteState(ctx, w, h.store, h.name, model.Planes()...)
}

func (h *Harness) joinNames(paths []model.NodePath) string {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, h.name(p))
	}
	return strings.Join(names, ",")
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check expectations.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an existing result's snapshot against its golden
// file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, []byte(result.Snapshot))
}
