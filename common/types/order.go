package types

import (
	"context"
	"time"
)

// TransactionRecord describes one confirmed on-chain transaction attached to
// an order. Records are append-only: once written they are never mutated,
// even when the order later fails.
//
// Fields:
// - TxHash: the transaction hash.
// - TxLink: the block explorer link for the transaction on its chain.
// - ChainID: the numeric id of the chain the transaction was sent to.
// - BlockHash: the hash of the block the transaction was included in.
// - Timestamp: the timestamp of the including block.
// - Description: a short human-readable description of the settlement step.
type TransactionRecord struct {
	TxHash      string    `json:"txHash"`
	TxLink      string    `json:"txLink"`
	ChainID     uint64    `json:"chainId"`
	BlockHash   string    `json:"blockHash,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Description string    `json:"description"`
}

// OrderTransactions groups the four settlement transactions of one order.
// Fields are nil until the corresponding step has confirmed.
type OrderTransactions struct {
	OrderFill       *TransactionRecord `json:"orderFill,omitempty"`
	DstEscrowDeploy *TransactionRecord `json:"dstEscrowDeploy,omitempty"`
	DstWithdraw     *TransactionRecord `json:"dstWithdraw,omitempty"`
	SrcWithdraw     *TransactionRecord `json:"srcWithdraw,omitempty"`
}

// Order is the durable record of one settlement run. While a run is in
// progress the orchestrator owns a working copy; the copy held by the
// OrderStore is authoritative and is rewritten after every state transition.
type Order struct {
	ID           string            `json:"id"`
	CreatedAt    time.Time         `json:"createdAt"`
	Status       OrderStatus       `json:"status"`
	SwapState    SwapState         `json:"swapState"`
	OrderHash    string            `json:"orderHash"`
	Secret       string            `json:"secret,omitempty"`
	Transactions OrderTransactions `json:"transactions"`
	Message      string            `json:"message,omitempty"`
	Error        string            `json:"error,omitempty"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
	FailedAt     *time.Time        `json:"failedAt,omitempty"`
}

// OrderFilter is the explicit per-query filter for order lookups.
// Zero values mean "no constraint". Validated before reaching the store.
type OrderFilter struct {
	Status      OrderStatus
	UserAddress string
	OrderHash   string
	Limit       int
	Offset      int
}

// OrderStore is the external persistence collaborator for orders.
// Implementations must be atomic per order id and must reject a status write
// that would overwrite a terminal state.
type OrderStore interface {
	// Create inserts a new order record.
	Create(ctx context.Context, order *Order) error

	// FindByID returns the order with the given id, or an error if it does not exist.
	FindByID(ctx context.Context, id string) (*Order, error)

	// FindByHash returns the order with the given order hash, or nil if none exists.
	FindByHash(ctx context.Context, orderHash string) (*Order, error)

	// UpdateStatus writes a status transition together with its optional
	// message and error text. Must fail for orders already in a terminal state.
	UpdateStatus(ctx context.Context, id string, status OrderStatus, message, errText string) error

	// Update rewrites the mutable portion of an order record (status fields
	// and transaction records) after a state transition.
	Update(ctx context.Context, order *Order) error

	// List returns orders matching the filter, newest first.
	List(ctx context.Context, filter *OrderFilter) ([]*Order, error)
}
