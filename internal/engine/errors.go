package engine

import (
	"errors"
	"fmt"

	"github.com/opendaylight/netvirt-sub025/internal/model"
)

// ReconcileError classifies a failure of a reconciliation task.
//
// The scheduler logs each class differently:
//   - Transient store failures are logged at error level; the task is dropped
//     and the next change to the node re-attempts the work.
//   - Missing membership means a parent or child vanished between the
//     notification and the task; it is logged at debug level.
//   - Skewed state is normally repaired in place by write-back and only
//     logged.
type ReconcileError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Op names the operation that failed, e.g. "downward.copy-entity".
	Op string

	// Node is the node being reconciled.
	Node model.NodePath

	// Err is the underlying cause. May be nil.
	Err error
}

// ErrorCode categorizes reconcile errors.
type ErrorCode string

const (
	// ErrCodeTransientStore indicates a store read or write failed.
	ErrCodeTransientStore ErrorCode = "TRANSIENT_STORE"

	// ErrCodeMissingMembership indicates a parent or child node is absent.
	ErrCodeMissingMembership ErrorCode = "MISSING_PARENT_OR_CHILD"

	// ErrCodeSkewedState indicates parent and child disagree on a version.
	ErrCodeSkewedState ErrorCode = "SKEWED_STATE"
)

// Error implements the error interface.
func (e *ReconcileError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Op)
	if !e.Node.IsZero() {
		msg += fmt.Sprintf(" (node=%s)", e.Node)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps a store failure.
func NewTransientError(op string, node model.NodePath, err error) *ReconcileError {
	return &ReconcileError{Code: ErrCodeTransientStore, Op: op, Node: node, Err: err}
}

// NewMissingMembershipError reports a parent or child that no longer exists.
func NewMissingMembershipError(op string, node model.NodePath) *ReconcileError {
	return &ReconcileError{Code: ErrCodeMissingMembership, Op: op, Node: node}
}

// NewSkewedStateError reports a version mismatch between parent and child.
func NewSkewedStateError(op string, node model.NodePath, err error) *ReconcileError {
	return &ReconcileError{Code: ErrCodeSkewedState, Op: op, Node: node, Err: err}
}

func hasCode(err error, code ErrorCode) bool {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsTransient reports whether err is a transient store error.
// Uses errors.As to handle wrapped errors.
func IsTransient(err error) bool {
	return hasCode(err, ErrCodeTransientStore)
}

// IsMissingMembership reports whether err is a missing parent/child error.
func IsMissingMembership(err error) bool {
	return hasCode(err, ErrCodeMissingMembership)
}

// IsSkewedState reports whether err is a skewed state error.
func IsSkewedState(err error) bool {
	return hasCode(err, ErrCodeSkewedState)
}
