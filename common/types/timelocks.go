package types

import (
	"math/big"

	"github.com/pkg/errors"
)

// TimeLocks holds the escrow stage offsets for both legs of a swap.
// All values are seconds relative to the escrow deployment timestamp.
//
// Per side the windows must be monotonically non-decreasing:
// finality <= withdrawal <= public withdrawal <= cancellation.
// The destination cancellation window must open no later than the source one,
// so the resolver can always reclaim the destination leg before the maker can
// cancel the source leg.
type TimeLocks struct {
	SrcFinality         uint32 `json:"srcFinality"`
	SrcWithdrawal       uint32 `json:"srcWithdrawal"`
	SrcPublicWithdrawal uint32 `json:"srcPublicWithdrawal"`
	SrcCancellation     uint32 `json:"srcCancellation"`
	DstFinality         uint32 `json:"dstFinality"`
	DstWithdrawal       uint32 `json:"dstWithdrawal"`
	DstPublicWithdrawal uint32 `json:"dstPublicWithdrawal"`
	DstCancellation     uint32 `json:"dstCancellation"`
}

// timeLockSlots is the number of packed 32-bit stages. Eight slots fill the
// uint256 exactly, matching the on-chain layout.
const timeLockSlots = 8

// Validate checks the ordering invariants of the time locks.
//
// Returns:
// - error: an error describing the first violated invariant, or nil.
func (t TimeLocks) Validate() error {
	if t.SrcFinality > t.SrcWithdrawal || t.SrcWithdrawal > t.SrcPublicWithdrawal || t.SrcPublicWithdrawal > t.SrcCancellation {
		return errors.New("source time locks are not monotonically increasing")
	}
	if t.DstFinality > t.DstWithdrawal || t.DstWithdrawal > t.DstPublicWithdrawal || t.DstPublicWithdrawal > t.DstCancellation {
		return errors.New("destination time locks are not monotonically increasing")
	}
	if t.DstCancellation > t.SrcCancellation {
		return errors.New("destination cancellation must open no later than source cancellation")
	}
	return nil
}

// Pack encodes the time locks into a single uint256 value with the source
// stages in the low 128 bits and the destination stages in the high 128 bits.
// The packed value is part of the escrow immutables and must match the
// on-chain layout bit-for-bit.
//
// Returns:
// - *big.Int: the packed time locks.
func (t TimeLocks) Pack() *big.Int {
	stages := [timeLockSlots]uint32{
		t.SrcFinality,
		t.SrcWithdrawal,
		t.SrcPublicWithdrawal,
		t.SrcCancellation,
		t.DstFinality,
		t.DstWithdrawal,
		t.DstPublicWithdrawal,
		t.DstCancellation,
	}

	packed := new(big.Int)
	for i, stage := range stages {
		v := new(big.Int).Lsh(new(big.Int).SetUint64(uint64(stage)), uint(32*i))
		packed.Or(packed, v)
	}
	return packed
}

// UnpackTimeLocks decodes a packed uint256 time locks value.
//
// Parameters:
// - packed: the packed time locks value as stored in the escrow immutables.
//
// Returns:
// - TimeLocks: the decoded stage offsets.
// - error: an error if the value does not fit into eight 32-bit stages.
func UnpackTimeLocks(packed *big.Int) (TimeLocks, error) {
	if packed == nil || packed.Sign() < 0 || packed.BitLen() > 32*timeLockSlots {
		return TimeLocks{}, errors.New("packed time locks out of range")
	}

	mask := new(big.Int).SetUint64(0xffffffff)
	var stages [timeLockSlots]uint32
	for i := range stages {
		v := new(big.Int).Rsh(packed, uint(32*i))
		stages[i] = uint32(v.And(v, mask).Uint64())
	}

	return TimeLocks{
		SrcFinality:         stages[0],
		SrcWithdrawal:       stages[1],
		SrcPublicWithdrawal: stages[2],
		SrcCancellation:     stages[3],
		DstFinality:         stages[4],
		DstWithdrawal:       stages[5],
		DstPublicWithdrawal: stages[6],
		DstCancellation:     stages[7],
	}, nil
}
