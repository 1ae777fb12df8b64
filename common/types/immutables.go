package types

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Immutables is the fixed parameter tuple an escrow is deployed with.
// Every subsequent call to that escrow (withdraw, cancel) must present a
// byte-identical tuple, so the resolver recomputes and compares it rather
// than mutating it in place.
//
// The same OrderHash and HashLock appear in the source and destination
// immutables of one order; that pairing is what cryptographically links the
// two escrows.
type Immutables struct {
	OrderHash     common.Hash    `json:"orderHash"`
	HashLock      common.Hash    `json:"hashLock"`
	Maker         common.Address `json:"maker"`
	Taker         common.Address `json:"taker"`
	Token         common.Address `json:"token"`
	Amount        *big.Int       `json:"amount"`
	SafetyDeposit *big.Int       `json:"safetyDeposit"`
	TimeLocks     *big.Int       `json:"timeLocks"`
}

// DstImmutablesComplement carries the destination-side fields not already
// present in the shared Immutables. It is captured once the destination
// escrow parameters are fixed and echoed by the source deployment event.
type DstImmutablesComplement struct {
	Maker         common.Address `json:"maker"`
	Amount        *big.Int       `json:"amount"`
	Token         common.Address `json:"token"`
	SafetyDeposit *big.Int       `json:"safetyDeposit"`
}

// WithTaker returns a copy of the immutables with the taker replaced.
// Used when applying the destination complement to the shared tuple.
func (i Immutables) WithTaker(taker common.Address) Immutables {
	i.Taker = taker
	return i
}

// WithComplement returns the destination-leg immutables built from the shared
// tuple and the destination complement. OrderHash, HashLock and TimeLocks are
// carried over unchanged, which preserves the cross-chain link.
func (i Immutables) WithComplement(c DstImmutablesComplement) Immutables {
	i.Maker = c.Maker
	i.Token = c.Token
	i.Amount = c.Amount
	i.SafetyDeposit = c.SafetyDeposit
	return i
}
