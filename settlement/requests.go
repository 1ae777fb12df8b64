package settlement

import (
	"math/big"
	"time"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
)

// DeployRequest carries a signed order into the deploy phase of a settlement
// run: fill the source order, deploy both escrows.
type DeployRequest struct {
	SwapState        types.SwapState
	Signature        string // Maker's order signature, hex.
	OrderHash        string // Digest over the order's economic terms, hex 32 bytes.
	HashLock         string // Digest of the maker-chosen secret, hex 32 bytes.
	OrderBuild       string // Signed order payload as built by the maker's client, hex.
	TakerTraits      string // Taker traits word, decimal string.
	SrcSafetyDeposit string // Resolver's source-side safety deposit, smallest unit.
	DstSafetyDeposit string // Resolver's destination-side safety deposit, smallest unit.
	TimeLocks        types.TimeLocks
}

// DeployResult is the outcome of a successful deploy phase.
type DeployResult struct {
	Order            *types.Order
	SrcEscrowEvent   types.Immutables
	SrcImmutables    types.Immutables
	SrcImmutablesRaw []byte
	SrcImmutablesSum common.Hash
	DstImmutables    types.Immutables
	DstImmutablesRaw []byte
	DstImmutablesSum common.Hash
	DstDeployedAt    time.Time
}

// RevealRequest carries the revealed secret into the withdraw phase.
// The immutables travel as their canonical encodings; the orchestrator
// decodes and re-hashes them rather than trusting the supplied hashes.
type RevealRequest struct {
	SwapState        types.SwapState
	Secret           string // The revealed secret, hex 32 bytes.
	SrcImmutablesRaw string // Canonical source immutables encoding, hex.
	DstImmutablesRaw string // Canonical destination immutables encoding, hex.
	SrcImmutablesSum string // Expected keccak of the source encoding, hex.
	DstImmutablesSum string // Expected keccak of the destination encoding, hex.
	UserAddress      string
}

// RevealResult is the outcome of a completed withdraw phase.
type RevealResult struct {
	Order            *types.Order
	SrcEscrowAddress common.Address
	DstEscrowAddress common.Address
}

// Validate checks the deploy request before any chain call is made.
//
// Returns:
// - error: ErrValidation describing the first problem found, or nil.
func (r *DeployRequest) Validate() error {
	if r.Signature == "" {
		return errors.Wrap(commonerrors.ErrValidation, "signature is required")
	}
	if r.OrderBuild == "" {
		return errors.Wrap(commonerrors.ErrValidation, "order build payload is required")
	}
	if _, err := parseHash(r.OrderHash); err != nil {
		return errors.Wrap(commonerrors.ErrValidation, "order hash must be a 32-byte hex value")
	}
	if _, err := parseHash(r.HashLock); err != nil {
		return errors.Wrap(commonerrors.ErrValidation, "hash lock must be a 32-byte hex value")
	}
	if err := validateSwapState(&r.SwapState); err != nil {
		return err
	}
	if _, err := parseAmount(r.SrcSafetyDeposit); err != nil {
		return errors.Wrap(commonerrors.ErrValidation, "source safety deposit must be a positive decimal string")
	}
	if _, err := parseAmount(r.DstSafetyDeposit); err != nil {
		return errors.Wrap(commonerrors.ErrValidation, "destination safety deposit must be a positive decimal string")
	}
	if err := r.TimeLocks.Validate(); err != nil {
		return errors.Wrap(commonerrors.ErrValidation, err.Error())
	}
	return nil
}

// Validate checks the reveal request before any chain call is made.
func (r *RevealRequest) Validate() error {
	if _, err := parseHash(r.Secret); err != nil {
		return errors.Wrap(commonerrors.ErrValidation, "secret must be a 32-byte hex value")
	}
	if r.SrcImmutablesRaw == "" || r.DstImmutablesRaw == "" {
		return errors.Wrap(commonerrors.ErrValidation, "immutables encodings are required")
	}
	if _, err := parseHash(r.SrcImmutablesSum); err != nil {
		return errors.Wrap(commonerrors.ErrValidation, "source immutables hash must be a 32-byte hex value")
	}
	if _, err := parseHash(r.DstImmutablesSum); err != nil {
		return errors.Wrap(commonerrors.ErrValidation, "destination immutables hash must be a 32-byte hex value")
	}
	if !common.IsHexAddress(r.UserAddress) {
		return errors.Wrap(commonerrors.ErrValidation, "user address is not a valid address")
	}
	return nil
}

// validateSwapState checks the economic terms common to both phases.
func validateSwapState(s *types.SwapState) error {
	if s.FromChainID == 0 || s.ToChainID == 0 {
		return errors.Wrap(commonerrors.ErrValidation, "both chain ids are required")
	}
	if s.FromChainID == s.ToChainID {
		return errors.Wrap(commonerrors.ErrValidation, "source and destination chains must differ")
	}
	if !common.IsHexAddress(s.UserAddress) {
		return errors.Wrap(commonerrors.ErrValidation, "user address is not a valid address")
	}
	if _, err := parseAmount(s.FromAmount); err != nil {
		return errors.Wrap(commonerrors.ErrValidation, "from amount must be a positive decimal string")
	}
	if _, err := parseAmount(s.ToAmount); err != nil {
		return errors.Wrap(commonerrors.ErrValidation, "to amount must be a positive decimal string")
	}
	return nil
}

// parseAmount parses a decimal string in a token's smallest unit.
// Amounts are never floating point; anything unparsable or non-positive fails.
func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() <= 0 {
		return nil, errors.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// parseTraits parses the taker traits word; empty means zero.
func parseTraits(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, errors.Errorf("invalid taker traits %q", s)
	}
	return v, nil
}

// parseHash parses a 32-byte hex value.
func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, errors.Errorf("expected 32 bytes, got %d", len(b))
	}
	return common.BytesToHash(b), nil
}
