// Package waitlist holds jobs that must wait until a node connects.
//
// A job is registered against a node path and runs once, after that node's
// connect event, with the node value read at that time. Jobs are removed
// exactly once: when drained by Take, when cancelled, or when they outlive
// the configured TTL.
package waitlist

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// Job is the continuation of a pending job. node is the connected node as
// read from the observed plane.
type Job func(ctx context.Context, node *model.Node) error

// Entry is one pending job.
type Entry struct {
	ID    uint64
	Name  string
	Path  model.NodePath
	Added time.Time
	Job   Job
}

// Waitlist stores pending jobs keyed by node path.
//
// Thread-safety: all methods are safe for concurrent use.
type Waitlist struct {
	mu      sync.Mutex
	clock   clock.Clock
	ttl     time.Duration
	nextID  uint64
	pending map[model.NodePath][]*Entry
}

// New creates a waitlist. A ttl of zero keeps jobs until they are drained
// or cancelled.
func New(clk clock.Clock, ttl time.Duration) *Waitlist {
	if clk == nil {
		clk = clock.New()
	}
	return &Waitlist{
		clock:   clk,
		ttl:     ttl,
		pending: make(map[model.NodePath][]*Entry),
	}
}

// Add registers job to run after path connects. The returned cancel func
// removes the job if it is still pending and reports whether it did.
func (w *Waitlist) Add(path model.NodePath, name string, job Job) (cancel func() bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextID++
	e := &Entry{ID: w.nextID, Name: name, Path: path, Added: w.clock.Now(), Job: job}
	w.pending[path] = append(w.pending[path], e)

	return func() bool { return w.remove(path, e.ID) }
}

func (w *Waitlist) remove(path model.NodePath, id uint64) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries := w.pending[path]
	for i, e := range entries {
		if e.ID == id {
			w.setLocked(path, append(entries[:i:i], entries[i+1:]...))
			return true
		}
	}
	return false
}

// Take removes and returns the live jobs for path in registration order.
// Expired jobs are dropped, not returned.
func (w *Waitlist) Take(path model.NodePath) []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()

	entries := w.pending[path]
	delete(w.pending, path)

	now := w.clock.Now()
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if w.expired(e, now) {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// Prune drops expired jobs and returns how many were removed.
func (w *Waitlist) Prune() int {
	if w.ttl <= 0 {
		return 0
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	removed := 0
	for path, entries := range w.pending {
		live := entries[:0]
		for _, e := range entries {
			if w.expired(e, now) {
				removed++
				continue
			}
			live = append(live, e)
		}
		w.setLocked(path, live)
	}
	return removed
}

// Len returns the number of pending jobs across all paths.
func (w *Waitlist) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, entries := range w.pending {
		n += len(entries)
	}
	return n
}

// Pending returns the number of jobs waiting on path.
func (w *Waitlist) Pending(path model.NodePath) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending[path])
}

func (w *Waitlist) expired(e *Entry, now time.Time) bool {
	return w.ttl > 0 && now.Sub(e.Added) >= w.ttl
}

func (w *Waitlist) setLocked(path model.NodePath, entries []*Entry) {
	if len(entries) == 0 {
		delete(w.pending, path)
		return
	}
	w.pending[path] = entries
}
