package waitlist

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

var nodeA = model.GlobalPath("a")

func noop(context.Context, *model.Node) error { return nil }

func TestWaitlist_TakeDrainsOnceInOrder(t *testing.T) {
	w := New(clock.NewMock(), 0)

	w.Add(nodeA, "first", noop)
	w.Add(nodeA, "second", noop)
	w.Add(model.GlobalPath("b"), "other", noop)

	got := w.Take(nodeA)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Name)
	assert.Equal(t, "second", got[1].Name)

	assert.Empty(t, w.Take(nodeA), "drained jobs are gone")
	assert.Equal(t, 1, w.Len())
}

func TestWaitlist_Cancel(t *testing.T) {
	w := New(clock.NewMock(), 0)

	cancel := w.Add(nodeA, "job", noop)
	w.Add(nodeA, "kept", noop)

	assert.True(t, cancel())
	assert.False(t, cancel(), "second cancel finds nothing")
	assert.Equal(t, 1, w.Pending(nodeA))

	got := w.Take(nodeA)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Name)
}

func TestWaitlist_CancelAfterTake(t *testing.T) {
	w := New(clock.NewMock(), 0)
	cancel := w.Add(nodeA, "job", noop)

	require.Len(t, w.Take(nodeA), 1)
	assert.False(t, cancel())
}

func TestWaitlist_TTL(t *testing.T) {
	clk := clock.NewMock()
	w := New(clk, time.Minute)

	w.Add(nodeA, "old", noop)
	clk.Add(45 * time.Second)
	w.Add(nodeA, "young", noop)
	clk.Add(30 * time.Second)

	got := w.Take(nodeA)
	require.Len(t, got, 1)
	assert.Equal(t, "young", got[0].Name)
}

func TestWaitlist_Prune(t *testing.T) {
	clk := clock.NewMock()
	w := New(clk, time.Minute)

	w.Add(nodeA, "a", noop)
	w.Add(model.GlobalPath("b"), "b", noop)
	clk.Add(2 * time.Minute)
	w.Add(nodeA, "fresh", noop)

	assert.Equal(t, 2, w.Prune())
	assert.Equal(t, 1, w.Len())
	assert.Equal(t, 0, w.Pending(model.GlobalPath("b")))
}

func TestWaitlist_NoTTLNeverExpires(t *testing.T) {
	clk := clock.NewMock()
	w := New(clk, 0)
	w.Add(nodeA, "a", noop)
	clk.Add(24 * time.Hour)

	assert.Equal(t, 0, w.Prune())
	assert.Len(t, w.Take(nodeA), 1)
}
