package server

import (
	"time"

	"github.com/FusionCross/resolver-lib/common/types"
)

// orderImmutables carries the client-side immutables parameters of a new
// order: the time lock schedule and the resolver's destination deposit.
type orderImmutables struct {
	TimeLocks        types.TimeLocks `json:"timeLocks"`
	DstSafetyDeposit string          `json:"dstSafetyDeposit"`
}

// orderRequest is the body of POST /order.
type orderRequest struct {
	SwapState        types.SwapState `json:"swapState"`
	Signature        string          `json:"signature"`
	Immutables       orderImmutables `json:"immutables"`
	HashLock         string          `json:"hashLock"`
	OrderHash        string          `json:"orderHash"`
	OrderBuild       string          `json:"orderBuild"`
	TakerTraits      string          `json:"takerTraits"`
	SrcSafetyDeposit string          `json:"srcSafetyDeposit"`
}

// orderResponse is the 200 body of POST /order.
type orderResponse struct {
	SrcEscrowEvent    types.Immutables         `json:"srcEscrowEvent"`
	DstDeployedAt     time.Time                `json:"dstDeployedAt"`
	DstImmutablesData string                   `json:"dstImmutablesData"`
	DstImmutablesHash string                   `json:"dstImmutablesHash"`
	SrcImmutablesHash string                   `json:"srcImmutablesHash"`
	SrcImmutablesData string                   `json:"srcImmutablesData"`
	Transactions      *types.OrderTransactions `json:"transactions"`
	Status            string                   `json:"status"`
	Message           string                   `json:"message"`
}

// revealRequest is the body of POST /order/secret-reveal.
type revealRequest struct {
	SwapState         types.SwapState `json:"swapState"`
	Secret            string          `json:"secret"`
	DstImmutablesData string          `json:"dstImmutablesData"`
	SrcImmutablesHash string          `json:"srcImmutablesHash"`
	DstImmutablesHash string          `json:"dstImmutablesHash"`
	SrcImmutablesData string          `json:"srcImmutablesData"`
	UserAddress       string          `json:"userAddress"`
}

// revealResponse is the 200 body of POST /order/secret-reveal.
type revealResponse struct {
	SrcEscrowAddress string                   `json:"srcEscrowAddress"`
	DstEscrowAddress string                   `json:"dstEscrowAddress"`
	Transactions     *types.OrderTransactions `json:"transactions"`
	Status           string                   `json:"status"`
	Message          string                   `json:"message"`
}

// errorResponse is the body of every non-200 reply. Callers get the stored
// order status through lookups, never raw chain errors beyond these fields.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
