package ha

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/opendaylight/netvirt-sub025/internal/engine"
	"github.com/opendaylight/netvirt-sub025/internal/model"
	"github.com/opendaylight/netvirt-sub025/internal/store"
	fixtures "github.com/opendaylight/netvirt-sub025/internal/testutil"
)

const (
	declared = model.PlaneDeclared
	observed = model.PlaneObserved
)

// env is a running manager over a temp-dir store.
type env struct {
	t   *testing.T
	ctx context.Context
	st  *store.Store
	m   *Manager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := fixtures.OpenStore(t)
	return startEnv(t, st, st, Options{})
}

func startEnv(t *testing.T, st *store.Store, topo Topology, opts Options) *env {
	t.Helper()
	ctx := context.Background()
	if opts.Registerer == nil {
		opts.Registerer = prometheus.NewRegistry()
	}
	if opts.RegistrationTimeout == 0 {
		opts.RegistrationTimeout = 5 * time.Second
	}

	m := New(topo, opts)
	require.NoError(t, m.Start(ctx))

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- m.Run(runCtx) }()
	t.Cleanup(func() {
		cancel()
		<-done
		m.Stop()
	})

	return &env{t: t, ctx: ctx, st: st, m: m}
}

// settle waits until every queued task, including follow-ups, has run.
func (e *env) settle() {
	e.t.Helper()
	ctx, cancel := context.WithTimeout(e.ctx, 10*time.Second)
	defer cancel()
	require.NoError(e.t, e.m.WaitIdle(ctx))
}

func (e *env) putNode(plane model.Plane, n *model.Node) {
	e.t.Helper()
	fixtures.MustPutNode(e.t, e.st, plane, n)
}

func (e *env) deleteNode(plane model.Plane, path model.NodePath) {
	e.t.Helper()
	require.NoError(e.t, e.st.DeleteNode(e.ctx, plane, path))
}

func (e *env) putEntity(plane model.Plane, node model.NodePath, rec model.Entity) {
	e.t.Helper()
	fixtures.MustPutEntity(e.t, e.st, plane, node, rec)
}

func (e *env) node(plane model.Plane, path model.NodePath) *model.Node {
	e.t.Helper()
	return fixtures.ReadNode(e.t, e.st, plane, path)
}

func (e *env) entity(plane model.Plane, node model.NodePath, typ model.EntityType, key string) model.Entity {
	e.t.Helper()
	return fixtures.ReadEntity(e.t, e.st, plane, model.EntityPath{Node: node, Type: typ, Key: key})
}

func (e *env) keys(plane model.Plane, node model.NodePath, typ model.EntityType) []string {
	e.t.Helper()
	return fixtures.Keys(e.t, e.st, plane, node, typ)
}

// writes sums the replication write counter over every label pair.
func writes(m *engine.Metrics) float64 {
	var total float64
	for _, plane := range model.Planes() {
		for _, dir := range []string{engine.DirectionDownward, engine.DirectionUpward} {
			total += testutil.ToFloat64(m.ReplicationWrites.WithLabelValues(plane.String(), dir))
		}
	}
	return total
}

func taskCount(m *engine.Metrics, task, outcome string) float64 {
	return testutil.ToFloat64(m.TasksTotal.WithLabelValues(task, outcome))
}

// probe wraps a Topology to observe and perturb the manager's store use.
type probe struct {
	Topology

	inFlight atomic.Int32
	maxSeen  atomic.Int32

	failReads         atomic.Bool
	subscribeFailures atomic.Int32
}

var errInjected = errors.New("injected store failure")

func (p *probe) enter() func() {
	n := p.inFlight.Add(1)
	for {
		seen := p.maxSeen.Load()
		if n <= seen || p.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	// Widen the window for overlapping calls.
	time.Sleep(20 * time.Microsecond)
	return func() { p.inFlight.Add(-1) }
}

func (p *probe) ReadNode(ctx context.Context, plane model.Plane, path model.NodePath) (*model.Node, error) {
	defer p.enter()()
	if p.failReads.Load() {
		return nil, errInjected
	}
	return p.Topology.ReadNode(ctx, plane, path)
}

func (p *probe) ReadEntity(ctx context.Context, plane model.Plane, node model.NodePath, t model.EntityType, key string) (model.Entity, error) {
	defer p.enter()()
	if p.failReads.Load() {
		return nil, errInjected
	}
	return p.Topology.ReadEntity(ctx, plane, node, t, key)
}

func (p *probe) ListEntities(ctx context.Context, plane model.Plane, node model.NodePath, t model.EntityType) ([]model.Entity, error) {
	defer p.enter()()
	return p.Topology.ListEntities(ctx, plane, node, t)
}

func (p *probe) Update(ctx context.Context, tag string, fn func(*store.Txn) error) error {
	defer p.enter()()
	return p.Topology.Update(ctx, tag, fn)
}

func (p *probe) Subscribe(plane model.Plane, prefix string, l store.Listener) (func(), error) {
	if p.subscribeFailures.Add(-1) >= 0 {
		return nil, errInjected
	}
	return p.Topology.Subscribe(plane, prefix, l)
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of a logger.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
