package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opendaylight/netvirt-sub025/internal/harness"
	"github.com/opendaylight/netvirt-sub025/internal/model"
	"github.com/opendaylight/netvirt-sub025/internal/store"
)

// DumpOptions holds flags for the dump command.
type DumpOptions struct {
	*RootOptions
	Database string
	Plane    string // "declared", "observed" or "all"
}

// PlaneDump is the JSON form of one plane.
type PlaneDump struct {
	Plane string     `json:"plane"`
	Nodes []NodeDump `json:"nodes"`
}

// NodeDump is a node with the records it owns.
type NodeDump struct {
	*model.Node
	Records []RecordDump `json:"records,omitempty"`
}

// RecordDump is one sub-entity record.
type RecordDump struct {
	Type  model.EntityType `json:"type"`
	Key   string           `json:"key"`
	Value model.Entity     `json:"value"`
}

// NewDumpCommand creates the dump command.
func NewDumpCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DumpOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the nodes and records of a topology database",
		Long: `Print the contents of a topology database.

Nodes are listed in path order with the records they own. Text output is
one line per node and per record; JSON output carries the full records.

Examples:
  hwvtepha dump --db ./topology.db
  hwvtepha dump --db ./topology.db --plane observed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (defaults to config)")
	cmd.Flags().StringVar(&opts.Plane, "plane", "all", "plane to print (declared|observed|all)")

	return cmd
}

func runDump(opts *DumpOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := opts.formatter(cmd)

	planes, err := parsePlanes(opts.Plane)
	if err != nil {
		return out.Fail(ExitCommandError, CodeConfig, "invalid --plane", err)
	}

	db := opts.Database
	if db == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return out.Fail(ExitCommandError, CodeConfig, "failed to load config", err)
		}
		db = cfg.Database
	}
	// Opening creates the file; a dump of a missing database is a mistake.
	if _, err := os.Stat(db); err != nil {
		return out.Fail(ExitCommandError, CodeStore, "database not found", err)
	}

	st, err := store.Open(db)
	if err != nil {
		return out.Fail(ExitCommandError, CodeStore, "failed to open database", err)
	}
	defer st.Close()

	if !out.IsJSON() {
		if err := harness.WriteState(ctx, cmd.OutOrStdout(), st, nil, planes...); err != nil {
			return out.Fail(ExitCommandError, CodeStore, "failed to read database", err)
		}
		return nil
	}

	dump := make([]PlaneDump, 0, len(planes))
	for _, plane := range planes {
		pd, err := dumpPlane(ctx, st, plane)
		if err != nil {
			return out.Fail(ExitCommandError, CodeStore, "failed to read database", err)
		}
		dump = append(dump, pd)
	}
	return out.Success(dump)
}

func parsePlanes(s string) ([]model.Plane, error) {
	if s == "" || s == "all" {
		return model.Planes(), nil
	}
	p, err := model.ParsePlane(s)
	if err != nil {
		return nil, err
	}
	return []model.Plane{p}, nil
}

func dumpPlane(ctx context.Context, r harness.Reader, plane model.Plane) (PlaneDump, error) {
	nodes, err := r.ListNodes(ctx, plane, model.PathScheme)
	if err != nil {
		return PlaneDump{}, fmt.Errorf("list %s nodes: %w", plane, err)
	}
	slices.SortFunc(nodes, func(a, b *model.Node) int {
		return strings.Compare(a.Path.String(), b.Path.String())
	})

	pd := PlaneDump{Plane: plane.String(), Nodes: make([]NodeDump, 0, len(nodes))}
	for _, n := range nodes {
		nd := NodeDump{Node: n}
		if n.Path.IsGlobal() {
			records, err := r.ListEntities(ctx, plane, n.Path, "")
			if err != nil {
				return PlaneDump{}, fmt.Errorf("list %s records: %w", n.Path, err)
			}
			for _, rec := range records {
				nd.Records = append(nd.Records, RecordDump{Type: rec.Type(), Key: rec.Key(), Value: rec})
			}
		}
		pd.Nodes = append(pd.Nodes, nd)
	}
	return pd, nil
}
