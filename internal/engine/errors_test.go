package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

func TestReconcileError_Classification(t *testing.T) {
	node := model.GlobalPath("d1")
	cause := errors.New("database is locked")

	tests := []struct {
		name      string
		err       error
		transient bool
		missing   bool
		skewed    bool
	}{
		{"transient", NewTransientError("copy", node, cause), true, false, false},
		{"missing", NewMissingMembershipError("copy", node), false, true, false},
		{"skewed", NewSkewedStateError("bootstrap", node, nil), false, false, true},
		{"wrapped transient", fmt.Errorf("task: %w", NewTransientError("copy", node, cause)), true, false, false},
		{"plain", cause, false, false, false},
		{"nil", nil, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.transient, IsTransient(tt.err))
			assert.Equal(t, tt.missing, IsMissingMembership(tt.err))
			assert.Equal(t, tt.skewed, IsSkewedState(tt.err))
		})
	}
}

func TestReconcileError_Message(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := NewTransientError("downward.copy-entity", model.GlobalPath("d1"), cause)

	assert.Equal(t, "TRANSIENT_STORE: downward.copy-entity (node=hwvtep://uuid/d1): disk I/O error", err.Error())
	assert.ErrorIs(t, err, cause)

	missing := NewMissingMembershipError("upward.copy-entity", model.NodePath{})
	assert.Equal(t, "MISSING_PARENT_OR_CHILD: upward.copy-entity", missing.Error())
}
