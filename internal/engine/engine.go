package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// Scheduler is the serializing job scheduler.
//
// Thread-safety model:
//   - Submit(), Len(), WaitIdle(), Stop(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//
// INVARIANTS:
//   - At most one task body executes at any time
//   - Tasks run in submission (seq) order
type Scheduler struct {
	clock   *Clock
	queue   *taskQueue
	metrics *Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	pending int           // submitted but not yet finished
	idle    chan struct{} // closed when pending drops to 0
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = l
	}
}

// WithMetrics sets the metrics sink. Default: unregistered collectors.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithClock sets the sequence clock. Used to resume numbering.
func WithClock(c *Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// NewScheduler creates an idle scheduler. Call Run to start consuming.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		clock: NewClock(),
		queue: newTaskQueue(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	s.idle = make(chan struct{})
	close(s.idle)
	return s
}

// Metrics returns the scheduler's metrics.
func (s *Scheduler) Metrics() *Metrics {
	return s.metrics
}

// Submit enqueues fn for execution. It never blocks and returns false once
// the scheduler has been stopped.
func (s *Scheduler) Submit(name string, node model.NodePath, fn TaskFunc) bool {
	s.begin()
	t := Task{Seq: s.clock.Next(), Name: name, Node: node, Run: fn}
	if !s.queue.Enqueue(t) {
		s.finish()
		return false
	}
	s.metrics.QueueDepth.Set(float64(s.queue.Len()))
	return true
}

// LastSeq returns the sequence number of the last submitted task.
func (s *Scheduler) LastSeq() int64 {
	return s.clock.Current()
}

// Len returns the number of queued tasks, excluding a running one.
func (s *Scheduler) Len() int {
	return s.queue.Len()
}

// Run starts the consumer loop.
// Blocks until ctx is cancelled or Stop() is called and the queue drained.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: a failing task is logged with its classification and the
// loop moves on. There is no retry.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler starting")

	for {
		task, ok := s.queue.TryDequeue()
		if ok {
			s.metrics.QueueDepth.Set(float64(s.queue.Len()))
			s.execute(ctx, task)
			s.finish()
			continue
		}

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopping: context cancelled", "last_seq", s.LastSeq(), "discarded", s.queue.Len())
			s.queue.Close()
			s.discard()
			return ctx.Err()

		case <-s.queue.Wait():
			// The signal channel is closed once the queue is closed.
			if s.queue.Closed() && s.queue.Len() == 0 {
				s.logger.Info("scheduler stopping: queue closed", "last_seq", s.LastSeq())
				return nil
			}
		}
	}
}

// Stop rejects new tasks. Run returns after draining what is queued.
func (s *Scheduler) Stop() {
	s.queue.Close()
}

// WaitIdle blocks until no task is queued or running, or ctx is done.
func (s *Scheduler) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	ch := s.idle
	s.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == 0 {
		s.idle = make(chan struct{})
	}
	s.pending++
}

func (s *Scheduler) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if s.pending == 0 {
		close(s.idle)
	}
}

// discard drops queued tasks after cancellation so WaitIdle callers return.
func (s *Scheduler) discard() {
	for {
		t, ok := s.queue.TryDequeue()
		if !ok {
			break
		}
		s.logger.Debug("task discarded", "task", t.Name, "seq", t.Seq, "node", t.Node)
		s.finish()
	}
	s.metrics.QueueDepth.Set(0)
}

// execute runs one task and records its outcome.
// CRITICAL: Called only from Run() goroutine.
func (s *Scheduler) execute(ctx context.Context, t Task) {
	s.logger.Debug("task started", "task", t.Name, "seq", t.Seq, "node", t.Node)

	start := time.Now()
	err := s.invoke(ctx, t)
	s.metrics.TaskDuration.Observe(time.Since(start).Seconds())

	var pe *panicError
	outcome := OutcomeOK
	switch {
	case errors.As(err, &pe):
		outcome = OutcomePanic
		s.logger.Error("task panicked", "task", t.Name, "seq", t.Seq, "node", t.Node, "error", err)
	case err == nil:
	case IsMissingMembership(err):
		outcome = OutcomeMissing
		s.logger.Debug("task skipped: membership gone", "task", t.Name, "seq", t.Seq, "node", t.Node, "error", err)
	case IsSkewedState(err):
		outcome = OutcomeSkewed
		s.logger.Info("task found skewed state", "task", t.Name, "seq", t.Seq, "node", t.Node, "error", err)
	case IsTransient(err):
		outcome = OutcomeTransient
		s.logger.Error("task failed", "task", t.Name, "seq", t.Seq, "node", t.Node, "code", ErrCodeTransientStore, "error", err)
	default:
		outcome = OutcomeError
		s.logger.Error("task failed", "task", t.Name, "seq", t.Seq, "node", t.Node, "error", err)
	}
	s.metrics.TasksTotal.WithLabelValues(t.Name, outcome).Inc()
}

type panicError struct {
	task  string
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.task, e.value)
}

func (s *Scheduler) invoke(ctx context.Context, t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &panicError{task: t.Name, value: r}
		}
	}()
	return t.Run(ctx)
}
