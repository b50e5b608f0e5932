package store

import (
	"errors"
	"slices"
	"strings"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// Listener receives committed changes. It runs on the writer's goroutine
// while the store's write lock is held.
type Listener func(model.Change)

type subscription struct {
	plane    model.Plane
	prefix   string
	listener Listener
}

// Subscribe registers listener for changes on plane whose node path starts
// with prefix. The returned cancel function is idempotent.
func (s *Store) Subscribe(plane model.Plane, prefix string, listener Listener) (cancel func(), err error) {
	if listener == nil {
		return nil, errors.New("subscribe: nil listener")
	}
	if plane != model.PlaneDeclared && plane != model.PlaneObserved {
		return nil, errors.New("subscribe: invalid plane")
	}
	if s.closed.Load() {
		return nil, ErrClosed
	}

	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = &subscription{plane: plane, prefix: prefix, listener: listener}

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}, nil
}

// publish delivers changes to matching subscribers in order.
// Called with writeMu held.
func (s *Store) publish(changes []model.Change) {
	if len(changes) == 0 {
		return
	}

	s.subsMu.RLock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	// Registration order.
	slices.Sort(ids)
	subs := make([]*subscription, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, s.subs[id])
	}
	s.subsMu.RUnlock()

	for _, c := range changes {
		path := c.Path.String()
		for _, sub := range subs {
			if sub.plane == c.Plane && strings.HasPrefix(path, sub.prefix) {
				sub.listener(c)
			}
		}
	}
}
