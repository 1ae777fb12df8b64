package order

import (
	"testing"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/stretchr/testify/require"
)

func newOrder(status types.OrderStatus) *types.Order {
	return &types.Order{
		ID:     "order-1",
		Status: status,
	}
}

func TestTransitionHappyPath(t *testing.T) {
	ord := newOrder(types.StatusCreated)

	require.NoError(t, Transition(ord, types.StatusPendingSecret, "escrows deployed", ""))
	require.Equal(t, types.StatusPendingSecret, ord.Status)
	require.Equal(t, "escrows deployed", ord.Message)

	require.NoError(t, Transition(ord, types.StatusPendingWithdraw, "", ""))
	require.NoError(t, Transition(ord, types.StatusCompleted, "done", ""))

	require.Equal(t, types.StatusCompleted, ord.Status)
	require.NotNil(t, ord.CompletedAt)
	require.Nil(t, ord.FailedAt)
}

func TestTransitionRetryPath(t *testing.T) {
	ord := newOrder(types.StatusPendingWithdraw)

	require.NoError(t, Transition(ord, types.StatusPendingWithdrawRetry, "retrying", "timed out"))
	require.Equal(t, "timed out", ord.Error)

	require.NoError(t, Transition(ord, types.StatusCompleted, "", ""))
	require.NotNil(t, ord.CompletedAt)
}

func TestTransitionToFailedStampsFailedAt(t *testing.T) {
	for _, from := range []types.OrderStatus{
		types.StatusCreated,
		types.StatusPendingSecret,
		types.StatusPendingWithdraw,
		types.StatusPendingWithdrawRetry,
	} {
		t.Run(from.String(), func(t *testing.T) {
			ord := newOrder(from)
			require.NoError(t, Transition(ord, types.StatusFailed, "", "chain timeout"))
			require.Equal(t, types.StatusFailed, ord.Status)
			require.Equal(t, "chain timeout", ord.Error)
			require.NotNil(t, ord.FailedAt)
		})
	}
}

func TestTransitionRejectsTerminalOverwrite(t *testing.T) {
	for _, terminal := range []types.OrderStatus{types.StatusCompleted, types.StatusFailed} {
		t.Run(terminal.String(), func(t *testing.T) {
			ord := newOrder(terminal)
			stamped := *ord

			err := Transition(ord, types.StatusFailed, "", "late failure")
			require.ErrorIs(t, err, commonerrors.ErrInvalidTransition)
			require.Equal(t, stamped, *ord)
		})
	}
}

func TestTransitionRejectsSkippedStates(t *testing.T) {
	tests := []struct {
		from, to types.OrderStatus
	}{
		{types.StatusCreated, types.StatusPendingWithdraw},
		{types.StatusCreated, types.StatusCompleted},
		{types.StatusPendingSecret, types.StatusCompleted},
		{types.StatusPendingWithdraw, types.StatusCreated},
		{types.StatusPendingWithdrawRetry, types.StatusPendingWithdraw},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"_to_"+tt.to.String(), func(t *testing.T) {
			ord := newOrder(tt.from)
			err := Transition(ord, tt.to, "", "")
			require.ErrorIs(t, err, commonerrors.ErrInvalidTransition)
			require.Equal(t, tt.from, ord.Status)
		})
	}
}

func TestTransitionKeepsMessageWhenEmpty(t *testing.T) {
	ord := newOrder(types.StatusCreated)
	ord.Message = "initial"

	require.NoError(t, Transition(ord, types.StatusPendingSecret, "", ""))
	require.Equal(t, "initial", ord.Message)
}
