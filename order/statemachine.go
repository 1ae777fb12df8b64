// Package order holds the pure lifecycle logic for settlement orders.
// No I/O happens here: persistence of transitions is the orchestrator's job.
package order

import (
	"time"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/pkg/errors"
)

// allowedTransitions maps each non-terminal status to the statuses it may
// move to. FAILED is reachable from every non-terminal state.
var allowedTransitions = map[types.OrderStatus][]types.OrderStatus{
	types.StatusCreated: {
		types.StatusPendingSecret,
		types.StatusFailed,
	},
	types.StatusPendingSecret: {
		types.StatusPendingWithdraw,
		types.StatusFailed,
	},
	types.StatusPendingWithdraw: {
		types.StatusPendingWithdrawRetry,
		types.StatusCompleted,
		types.StatusFailed,
	},
	types.StatusPendingWithdrawRetry: {
		types.StatusCompleted,
		types.StatusFailed,
	},
}

// Transition applies a status change to the order's working copy.
//
// A terminal order (COMPLETED or FAILED) must never be overwritten: a run
// that silently re-saves over a terminal order is hiding a bug, so the
// attempt fails with ErrInvalidTransition instead. On success the status is
// set, message and error text are recorded when given, and completedAt or
// failedAt is stamped when entering the corresponding terminal state.
//
// Every successful transition must be durably persisted by the caller before
// the next on-chain call, so a crash mid-run leaves an inspectable,
// correctly-ordered trail.
//
// Parameters:
// - o: the order working copy to mutate.
// - newStatus: the status to transition to.
// - message: optional human-readable progress message.
// - errText: optional error text, recorded when entering FAILED.
//
// Returns:
// - error: ErrInvalidTransition if the order is terminal or the edge is not allowed.
func Transition(o *types.Order, newStatus types.OrderStatus, message, errText string) error {
	if o.Status.Terminal() {
		return errors.Wrapf(commonerrors.ErrInvalidTransition,
			"order %s is already %s", o.ID, o.Status)
	}

	if !transitionAllowed(o.Status, newStatus) {
		return errors.Wrapf(commonerrors.ErrInvalidTransition,
			"order %s cannot move from %s to %s", o.ID, o.Status, newStatus)
	}

	o.Status = newStatus
	if message != "" {
		o.Message = message
	}
	if errText != "" {
		o.Error = errText
	}

	now := time.Now().UTC()
	switch newStatus {
	case types.StatusCompleted:
		o.CompletedAt = &now
	case types.StatusFailed:
		o.FailedAt = &now
	}

	return nil
}

func transitionAllowed(from, to types.OrderStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
