package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/opendaylight/netvirt-sub025/internal/ha"
	"github.com/opendaylight/netvirt-sub025/internal/model"
	"github.com/opendaylight/netvirt-sub025/internal/store"
	"github.com/opendaylight/netvirt-sub025/internal/testutil"
)

// scenarioTimeout bounds a whole scenario, including settling after each
// step.
const scenarioTimeout = 30 * time.Second

// Harness applies scenario steps to a store watched by a running manager.
type Harness struct {
	store   *store.Store
	manager *ha.Manager
	logger  *slog.Logger

	// names maps global paths back to the references that produced them.
	names map[model.NodePath]string
}

// Options configures Run.
type Options struct {
	// Logger receives manager logs. Nil discards them.
	Logger *slog.Logger
}

// Run executes a scenario in a fresh temporary database and returns the
// result. The error is non-nil only when the scenario could not be
// executed; failed expectations are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunWithOptions(scenario, Options{})
}

// RunWithOptions is Run with explicit options.
func RunWithOptions(scenario *Scenario, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	dir, err := os.MkdirTemp("", "hwvtepha-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	st, err := store.Open(filepath.Join(dir, "topology.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), scenarioTimeout)
	defer cancel()

	m := ha.New(st, ha.Options{Logger: logger})
	if err := m.Start(ctx); err != nil {
		return nil, fmt.Errorf("start manager: %w", err)
	}

	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- m.Run(runCtx) }()
	defer func() {
		stop()
		<-done
		m.Stop()
	}()

	h := &Harness{
		store:   st,
		manager: m,
		logger:  logger,
		names:   make(map[model.NodePath]string),
	}
	h.learnNames(scenario)

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.apply(ctx, step); err != nil {
			return nil, fmt.Errorf("steps[%d] %s %s: %w", i, step.Action, step.Node, err)
		}
		if err := m.WaitIdle(ctx); err != nil {
			return nil, fmt.Errorf("steps[%d]: engine did not settle: %w", i, err)
		}
	}

	for i, exp := range scenario.Expect {
		if err := h.check(ctx, exp); err != nil {
			result.AddError(fmt.Sprintf("expect[%d] %s %s: %v", i, exp.Type, exp.Node, err))
		}
	}

	var buf strings.Builder
	if err := h.writeSnapshot(ctx, &buf, scenario.Name); err != nil {
		return nil, err
	}
	result.Snapshot = buf.String()
	result.Revision = st.Revision()
	return result, nil
}

// learnNames records the reference of every global node the scenario
// mentions, including the parents implied by ha_id tags.
func (h *Harness) learnNames(s *Scenario) {
	add := func(ref string) {
		global, _, _ := strings.Cut(ref, "/")
		if p, err := ResolveRef(global); err == nil && !strings.HasPrefix(ref, model.PathScheme) {
			h.names[p] = global
		}
	}
	for _, step := range s.Steps {
		add(step.Node)
		for _, c := range step.Children {
			add(c)
		}
		if step.HAID != "" {
			add("ha:" + step.HAID)
		}
	}
	for _, exp := range s.Expect {
		add(exp.Node)
		for _, v := range exp.Values {
			add(v)
		}
	}
}

// name renders path as a reference when one is known.
func (h *Harness) name(path model.NodePath) string {
	ref, ok := h.names[path.Global()]
	if !ok {
		return path.String()
	}
	if path.IsSwitch() {
		return ref + "/" + path.SwitchName()
	}
	return ref
}

func (h *Harness) apply(ctx context.Context, step Step) error {
	path, err := ResolveRef(step.Node)
	if err != nil {
		return err
	}
	plane, err := step.plane()
	if err != nil {
		return err
	}

	switch step.Action {
	case ActionConnect:
		n := model.NewGlobalNode(path)
		n.Global.DBVersion = step.DBVersion
		mgr := model.Manager{Target: "tcp:" + h.name(path) + ":6640", Connected: true}
		if step.HAID != "" {
			mgr.OtherConfig = map[string]string{model.OtherConfigHAID: step.HAID}
		}
		n.Global.Managers = []model.Manager{mgr}
		return h.store.PutNode(ctx, plane, n)

	case ActionDisconnect:
		return h.store.DeleteNode(ctx, plane, path)

	case ActionDeclare:
		children := make([]model.NodePath, 0, len(step.Children))
		for _, c := range step.Children {
			p, err := ResolveRef(c)
			if err != nil {
				return err
			}
			children = append(children, p)
		}
		return h.store.PutNode(ctx, plane, testutil.ParentNode(path, step.DBVersion, children...))

	case ActionPutNode:
		var n *model.Node
		if path.IsSwitch() {
			n = testutil.SwitchNode(path.Global(), path.SwitchName(), step.TunnelIPs...)
		} else {
			n = model.NewGlobalNode(path)
			n.Global.DBVersion = step.DBVersion
		}
		return h.store.PutNode(ctx, plane, n)

	case ActionPutEntity:
		rec, err := step.Entity.Build(path)
		if err != nil {
			return err
		}
		return h.store.PutEntity(ctx, plane, path, rec)

	case ActionDeleteEntity:
		rec, err := step.Entity.Build(path)
		if err != nil {
			return err
		}
		return h.store.DeleteEntity(ctx, plane, model.PathOf(path, rec))

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}
