package types

// OrderStatus represents the lifecycle state of a settlement order.
type OrderStatus string

const (
	// StatusCreated is the status of an order after it has been accepted but before any escrow exists.
	StatusCreated OrderStatus = "CREATED"

	// StatusPendingSecret indicates both escrows are deployed and the resolver is waiting for the secret reveal.
	StatusPendingSecret OrderStatus = "PENDING_SECRET"

	// StatusPendingWithdraw indicates the destination escrow has been withdrawn and the secret is public on-chain.
	StatusPendingWithdraw OrderStatus = "PENDING_WITHDRAW"

	// StatusPendingWithdrawRetry indicates the source-leg withdrawal timed out and is being retried.
	// The secret is already public at this point, so the resolver keeps trying before giving up.
	StatusPendingWithdrawRetry OrderStatus = "PENDING_WITHDRAW_RETRY"

	// StatusCompleted is the terminal status of a fully settled order.
	StatusCompleted OrderStatus = "COMPLETED"

	// StatusFailed is the terminal status of an order whose run halted on any step.
	StatusFailed OrderStatus = "FAILED"
)

// Terminal reports whether the status is final. Terminal orders are retained for
// audit and must never be transitioned again.
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// String converts OrderStatus to string representation.
func (s OrderStatus) String() string {
	return string(s)
}
