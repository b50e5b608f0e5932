package ha

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/opendaylight/netvirt-sub025/internal/engine"
	"github.com/opendaylight/netvirt-sub025/internal/membership"
	"github.com/opendaylight/netvirt-sub025/internal/merge"
	"github.com/opendaylight/netvirt-sub025/internal/model"
	"github.com/opendaylight/netvirt-sub025/internal/waitlist"
)

// Defaults for Options left zero.
const (
	DefaultRegistrationTimeout = 30 * time.Second
	DefaultPruneInterval       = time.Minute

	initialBackoff = 50 * time.Millisecond
	maxBackoff     = 2 * time.Second
)

// Options configures a Manager.
type Options struct {
	Logger *slog.Logger

	// Registerer receives the engine metrics. Nil keeps them unexported.
	Registerer prometheus.Registerer

	// Clock drives waitlist expiry, pruning and registration backoff.
	Clock clock.Clock

	// WaitlistTTL bounds how long a job waits for its node. 0 = forever.
	WaitlistTTL time.Duration

	// PruneInterval is the waitlist pruning period.
	PruneInterval time.Duration

	// RegistrationTimeout bounds the listener registration retry loop.
	RegistrationTimeout time.Duration

	// RefCacheSize and RefCacheTTL size the reference cache.
	RefCacheSize int
	RefCacheTTL  time.Duration
}

// Manager wires the registry, waitlist, scheduler and replication logic to
// a topology store.
type Manager struct {
	topo     Topology
	registry *membership.Registry
	waitlist *waitlist.Waitlist
	refs     *merge.RefCache
	sched    *engine.Scheduler
	metrics  *engine.Metrics
	logger   *slog.Logger
	clock    clock.Clock
	opts     Options

	nodeTable   map[nodeKey]nodeHandlers
	entityTable map[entityKey]entityHandler

	mu      sync.Mutex
	cancels []func()
}

// New creates a manager over topo. Call Start, then Run.
func New(topo Topology, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.RegistrationTimeout <= 0 {
		opts.RegistrationTimeout = DefaultRegistrationTimeout
	}
	if opts.PruneInterval <= 0 {
		opts.PruneInterval = DefaultPruneInterval
	}

	metrics := engine.NewMetrics(opts.Registerer)
	m := &Manager{
		topo:     topo,
		registry: membership.New(),
		waitlist: waitlist.New(opts.Clock, opts.WaitlistTTL),
		refs:     merge.NewRefCache(topo, opts.RefCacheSize, opts.RefCacheTTL),
		metrics:  metrics,
		logger:   opts.Logger,
		clock:    opts.Clock,
		opts:     opts,
	}
	// Task numbers continue from the store revision so that they keep
	// increasing across restarts.
	m.sched = engine.NewScheduler(
		engine.WithLogger(opts.Logger),
		engine.WithMetrics(metrics),
		engine.WithClock(engine.NewClockAt(topo.Revision())),
	)
	m.buildTables()
	return m
}

// Registry returns the membership registry.
func (m *Manager) Registry() *membership.Registry { return m.registry }

// Metrics returns the engine metrics.
func (m *Manager) Metrics() *engine.Metrics { return m.metrics }

// Start registers the store listeners, retrying with backoff until
// RegistrationTimeout, then replays the nodes already in the store as adds.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.register(ctx); err != nil {
		return err
	}
	return m.replay(ctx)
}

func (m *Manager) register(ctx context.Context) error {
	deadline := m.clock.Now().Add(m.opts.RegistrationTimeout)
	backoff := initialBackoff

	for attempt := 1; ; attempt++ {
		err := m.subscribe()
		if err == nil {
			m.logger.Info("listeners registered", "attempts", attempt)
			return nil
		}

		remaining := deadline.Sub(m.clock.Now())
		if remaining <= 0 {
			return fmt.Errorf("register listeners: gave up after %d attempts: %w", attempt, err)
		}
		m.logger.Warn("listener registration failed, retrying", "attempt", attempt, "backoff", backoff, "error", err)

		wait := min(backoff, remaining)
		timer := m.clock.Timer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// subscribe registers one listener per plane; on failure the partial
// registration is undone.
func (m *Manager) subscribe() error {
	var cancels []func()
	for _, plane := range model.Planes() {
		cancel, err := m.topo.Subscribe(plane, model.PathScheme, m.listener(plane))
		if err != nil {
			for _, c := range cancels {
				c()
			}
			return fmt.Errorf("subscribe %s: %w", plane, err)
		}
		cancels = append(cancels, cancel)
	}

	m.mu.Lock()
	m.cancels = append(m.cancels, cancels...)
	m.mu.Unlock()
	return nil
}

// replay feeds existing nodes through the listeners as adds. Observed nodes
// go first so children are connected before parents copy to them.
func (m *Manager) replay(ctx context.Context) error {
	count := 0
	for _, plane := range []model.Plane{model.PlaneObserved, model.PlaneDeclared} {
		nodes, err := m.topo.ListNodes(ctx, plane, model.PathScheme)
		if err != nil {
			return fmt.Errorf("replay %s: %w", plane, err)
		}
		for _, n := range nodes {
			m.dispatch(model.Change{Plane: plane, Path: n.Path, NodeAfter: n})
			count++
		}
	}
	m.logger.Info("replayed existing nodes", "count", count)
	return nil
}

// Run executes tasks and prunes the waitlist until ctx is cancelled or Stop
// is called.
func (m *Manager) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// A stopped scheduler ends the pruner too.
		defer cancel()
		return m.sched.Run(ctx)
	})

	if m.opts.WaitlistTTL > 0 {
		g.Go(func() error {
			ticker := m.clock.Ticker(m.opts.PruneInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					m.prune()
				}
			}
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop unregisters the listeners and stops accepting tasks. Queued tasks
// still run.
func (m *Manager) Stop() {
	m.mu.Lock()
	cancels := m.cancels
	m.cancels = nil
	m.mu.Unlock()

	for _, c := range cancels {
		c()
	}
	m.sched.Stop()
}

// WaitIdle blocks until no task is queued or running.
func (m *Manager) WaitIdle(ctx context.Context) error {
	return m.sched.WaitIdle(ctx)
}

// RunAfterConnected runs job once path is connected, immediately (through
// the scheduler) if it already is. The returned function cancels the job if
// it has not been handed to the scheduler yet.
func (m *Manager) RunAfterConnected(path model.NodePath, name string, job waitlist.Job) (cancel func() bool) {
	cancel = m.waitlist.Add(path, name, job)
	m.metrics.WaitlistPending.Set(float64(m.waitlist.Len()))
	if m.registry.IsConnected(path) {
		m.drain(path)
	}
	return func() bool {
		ok := cancel()
		m.metrics.WaitlistPending.Set(float64(m.waitlist.Len()))
		return ok
	}
}

// drain submits the jobs waiting for path.
func (m *Manager) drain(path model.NodePath) {
	entries := m.waitlist.Take(path)
	m.metrics.WaitlistPending.Set(float64(m.waitlist.Len()))
	for _, e := range entries {
		m.sched.Submit("waitlist."+e.Name, e.Path, func(ctx context.Context) error {
			n, err := m.topo.ReadNode(ctx, model.PlaneObserved, e.Path)
			if errors.Is(err, model.ErrNotFound) {
				return engine.NewMissingMembershipError("waitlist."+e.Name, e.Path)
			}
			if err != nil {
				return engine.NewTransientError("waitlist."+e.Name, e.Path, err)
			}
			return e.Job(ctx, n)
		})
	}
}

func (m *Manager) prune() {
	if n := m.waitlist.Prune(); n > 0 {
		m.logger.Warn("pending jobs expired", "count", n, "ttl", m.opts.WaitlistTTL)
	}
	m.metrics.WaitlistPending.Set(float64(m.waitlist.Len()))
}
