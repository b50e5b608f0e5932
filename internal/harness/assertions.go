package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// ExpectationError is returned when an expectation does not hold.
type ExpectationError struct {
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *ExpectationError) Error() string {
	return fmt.Sprintf("expected %s, got %s", e.Expected, e.Actual)
}

func (h *Harness) check(ctx context.Context, exp Expectation) error {
	path, err := ResolveRef(exp.Node)
	if err != nil {
		return err
	}
	plane := model.PlaneObserved
	if exp.Plane != "" {
		if plane, err = model.ParsePlane(exp.Plane); err != nil {
			return err
		}
	}

	switch exp.Type {
	case ExpectNodeExists, ExpectNodeAbsent:
		_, err := h.store.ReadNode(ctx, plane, path)
		exists := err == nil
		if err != nil && !errors.Is(err, model.ErrNotFound) {
			return err
		}
		if want := exp.Type == ExpectNodeExists; exists != want {
			return &ExpectationError{Expected: presence(want), Actual: presence(exists)}
		}
		return nil

	case ExpectEntityKeys:
		t, err := model.ParseEntityType(exp.Entity)
		if err != nil {
			return err
		}
		records, err := h.store.ListEntities(ctx, plane, path, t)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(records))
		for _, r := range records {
			keys = append(keys, r.Key())
		}
		return compareLists(exp.Keys, keys)

	case ExpectDBVersion:
		n, err := h.store.ReadNode(ctx, plane, path)
		if err != nil {
			return err
		}
		var got string
		if n.Global != nil {
			got = n.Global.DBVersion
		}
		if got != exp.Value {
			return &ExpectationError{Expected: fmt.Sprintf("%q", exp.Value), Actual: fmt.Sprintf("%q", got)}
		}
		return nil

	case ExpectTunnelIPs:
		n, err := h.store.ReadNode(ctx, plane, path)
		if err != nil {
			return err
		}
		var got []string
		if n.Switch != nil {
			got = n.Switch.TunnelIPs
		}
		return compareLists(exp.Values, got)

	case ExpectConnectedChildren:
		var got []string
		for _, c := range h.manager.Registry().ConnectedChildren(path) {
			got = append(got, h.name(c))
		}
		return compareLists(exp.Values, got)

	default:
		return fmt.Errorf("unknown expectation type %q", exp.Type)
	}
}

func presence(ok bool) string {
	if ok {
		return "present"
	}
	return "absent"
}

// compareLists compares order-insensitively.
func compareLists(want, got []string) error {
	w, g := slices.Clone(want), slices.Clone(got)
	slices.Sort(w)
	slices.Sort(g)
	if slices.Equal(w, g) {
		return nil
	}
	return &ExpectationError{Expected: fmt.Sprintf("%q", w), Actual: fmt.Sprintf("%q", g)}
}
