package errors

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrValidation indicates a malformed swap state or missing signature
	// fields, rejected before any chain call.
	ErrValidation = errors.New("validation failed")

	// ErrConflict indicates an order with the same order hash already exists
	// or is already running.
	ErrConflict = errors.New("order already exists or is running")

	// ErrEventNotFound indicates the expected deployment event was missing or
	// ambiguous in the queried block.
	ErrEventNotFound = errors.New("escrow deployment event not found")

	// ErrEncoding indicates a protocol-level encode/decode mismatch, such as a
	// negative amount, a zero address where a real one is required, or a
	// secret that does not hash to the order's hash lock.
	ErrEncoding = errors.New("encoding error")

	// ErrTimeout indicates an RPC did not respond within its deadline.
	// Distinguished from a revert because it is potentially transient.
	ErrTimeout = errors.New("remote call timed out")

	// ErrInvalidTransition indicates an attempt to transition an order that is
	// already in a terminal state.
	ErrInvalidTransition = errors.New("invalid order status transition")

	// ErrChainNotFound indicates no chain client is registered for a chain id.
	ErrChainNotFound = errors.New("chain not found")

	// ErrOrderNotFound indicates the requested order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrDatabaseConnect indicates the order store could not reach the database.
	ErrDatabaseConnect = errors.New("failed to connect to database")
)

// TransactionFailedError indicates an on-chain revert. Reverts are not
// transient, so callers must not retry the transaction.
type TransactionFailedError struct {
	TxHash string
	Reason string
}

// Error implements the error interface.
func (e *TransactionFailedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("transaction %s reverted", e.TxHash)
	}
	return fmt.Sprintf("transaction %s reverted: %s", e.TxHash, e.Reason)
}

// NewTransactionFailed creates a TransactionFailedError for the given
// transaction hash and revert reason.
func NewTransactionFailed(txHash, reason string) error {
	return &TransactionFailedError{TxHash: txHash, Reason: reason}
}

// IsTransactionFailed reports whether err wraps an on-chain revert.
func IsTransactionFailed(err error) bool {
	var target *TransactionFailedError
	return errors.As(err, &target)
}

// IsTimeout reports whether err wraps a remote call deadline failure.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
