package escrow

import (
	"math/big"
	"strings"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// immutablesTuple mirrors the on-chain immutables struct for ABI packing.
type immutablesTuple struct {
	OrderHash     [32]byte       `abi:"orderHash"`
	Hashlock      [32]byte       `abi:"hashlock"`
	Maker         common.Address `abi:"maker"`
	Taker         common.Address `abi:"taker"`
	Token         common.Address `abi:"token"`
	Amount        *big.Int       `abi:"amount"`
	SafetyDeposit *big.Int       `abi:"safetyDeposit"`
	Timelocks     *big.Int       `abi:"timelocks"`
}

// complementTuple mirrors the on-chain destination complement struct.
type complementTuple struct {
	Maker         common.Address `abi:"maker"`
	Amount        *big.Int       `abi:"amount"`
	Token         common.Address `abi:"token"`
	SafetyDeposit *big.Int       `abi:"safetyDeposit"`
}

// Codec builds, encodes and decodes the immutables tuples exchanged with the
// escrow contracts. All operations are deterministic: the same inputs always
// produce the same bytes, because the encoding is both sent on-chain and
// recomputed off-chain for address derivation.
type Codec struct {
	factoryABI     abi.ABI
	escrowABI      abi.ABI
	immutablesArgs abi.Arguments
}

// NewCodec parses the contract ABIs and prepares the tuple encoders.
//
// Returns:
// - *Codec: the ready codec.
// - error: an error if any ABI fragment fails to parse.
func NewCodec() (*Codec, error) {
	factoryABI, err := abi.JSON(strings.NewReader(FactoryABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse factory ABI")
	}

	escrowABI, err := abi.JSON(strings.NewReader(EscrowABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse escrow ABI")
	}

	immutablesType, err := abi.NewType("tuple", "", []abi.ArgumentMarshaling{
		{Name: "orderHash", Type: "bytes32"},
		{Name: "hashlock", Type: "bytes32"},
		{Name: "maker", Type: "address"},
		{Name: "taker", Type: "address"},
		{Name: "token", Type: "address"},
		{Name: "amount", Type: "uint256"},
		{Name: "safetyDeposit", Type: "uint256"},
		{Name: "timelocks", Type: "uint256"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build immutables tuple type")
	}

	return &Codec{
		factoryABI:     factoryABI,
		escrowABI:      escrowABI,
		immutablesArgs: abi.Arguments{{Name: "immutables", Type: immutablesType}},
	}, nil
}

// BuildSrcImmutables builds the source-leg immutables tuple for an order.
// Deterministic: the same inputs always yield the same tuple.
//
// Parameters:
// - orderHash: the digest over the order's economic terms.
// - hashLock: the digest of the secret chosen at order creation.
// - maker: the maker address on the source chain.
// - taker: the resolver address assigned as taker.
// - token: the source token contract, or the zero address for the native asset.
// - fillAmount: the filled source amount in the token's smallest unit.
// - safetyDeposit: the resolver's source-side safety deposit.
// - locks: the time lock offsets for both legs.
//
// Returns:
// - types.Immutables: the built tuple.
// - error: ErrEncoding if an amount is not positive, a required address is
//   zero, or the time locks violate their ordering invariants.
func (c *Codec) BuildSrcImmutables(
	orderHash common.Hash,
	hashLock common.Hash,
	maker common.Address,
	taker common.Address,
	token common.Address,
	fillAmount *big.Int,
	safetyDeposit *big.Int,
	locks types.TimeLocks,
) (types.Immutables, error) {
	if maker == (common.Address{}) || taker == (common.Address{}) {
		return types.Immutables{}, errors.Wrap(commonerrors.ErrEncoding, "maker and taker must be non-zero addresses")
	}
	if fillAmount == nil || fillAmount.Sign() <= 0 {
		return types.Immutables{}, errors.Wrap(commonerrors.ErrEncoding, "fill amount must be positive")
	}
	if safetyDeposit == nil || safetyDeposit.Sign() < 0 {
		return types.Immutables{}, errors.Wrap(commonerrors.ErrEncoding, "safety deposit must not be negative")
	}
	if err := locks.Validate(); err != nil {
		return types.Immutables{}, errors.Wrap(commonerrors.ErrEncoding, err.Error())
	}

	return types.Immutables{
		OrderHash:     orderHash,
		HashLock:      hashLock,
		Maker:         maker,
		Taker:         taker,
		Token:         token,
		Amount:        new(big.Int).Set(fillAmount),
		SafetyDeposit: new(big.Int).Set(safetyDeposit),
		TimeLocks:     locks.Pack(),
	}, nil
}

// BuildDstComplement builds the destination-side complement for an order.
//
// Parameters:
// - maker: the recipient of the destination funds (the swap user).
// - token: the destination token contract, or the zero address for the native asset.
// - fillAmount: the destination amount in the token's smallest unit.
// - safetyDeposit: the resolver's destination-side safety deposit.
//
// Returns:
// - types.DstImmutablesComplement: the built complement.
// - error: ErrEncoding if the amount is not positive or the maker is zero.
func (c *Codec) BuildDstComplement(
	maker common.Address,
	token common.Address,
	fillAmount *big.Int,
	safetyDeposit *big.Int,
) (types.DstImmutablesComplement, error) {
	if maker == (common.Address{}) {
		return types.DstImmutablesComplement{}, errors.Wrap(commonerrors.ErrEncoding, "maker must be a non-zero address")
	}
	if fillAmount == nil || fillAmount.Sign() <= 0 {
		return types.DstImmutablesComplement{}, errors.Wrap(commonerrors.ErrEncoding, "fill amount must be positive")
	}
	if safetyDeposit == nil || safetyDeposit.Sign() < 0 {
		return types.DstImmutablesComplement{}, errors.Wrap(commonerrors.ErrEncoding, "safety deposit must not be negative")
	}

	return types.DstImmutablesComplement{
		Maker:         maker,
		Amount:        new(big.Int).Set(fillAmount),
		Token:         token,
		SafetyDeposit: new(big.Int).Set(safetyDeposit),
	}, nil
}

// EncodeImmutables ABI-encodes an immutables tuple. The encoding is the
// canonical byte form used for hashing and CREATE2 salts.
func (c *Codec) EncodeImmutables(imm types.Immutables) ([]byte, error) {
	packed, err := c.immutablesArgs.Pack(toTuple(imm))
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrEncoding, err.Error())
	}
	return packed, nil
}

// DecodeImmutables decodes a single ABI-encoded immutables tuple.
func (c *Codec) DecodeImmutables(data []byte) (types.Immutables, error) {
	values, err := c.immutablesArgs.Unpack(data)
	if err != nil {
		return types.Immutables{}, errors.Wrap(commonerrors.ErrEncoding, err.Error())
	}
	if len(values) != 1 {
		return types.Immutables{}, errors.Wrap(commonerrors.ErrEncoding, "unexpected immutables encoding")
	}

	tuple := *abi.ConvertType(values[0], new(immutablesTuple)).(*immutablesTuple)
	return fromTuple(tuple), nil
}

// HashImmutables returns keccak256 of the canonical immutables encoding.
// This hash doubles as the CREATE2 salt for deterministic escrow addresses.
func (c *Codec) HashImmutables(imm types.Immutables) (common.Hash, error) {
	encoded, err := c.EncodeImmutables(imm)
	if err != nil {
		return common.Hash{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

// HashSecret returns the hash lock for a secret: keccak256 of the raw
// 32-byte secret.
func HashSecret(secret common.Hash) common.Hash {
	return crypto.Keccak256Hash(secret.Bytes())
}

// VerifySecret checks that a revealed secret hashes to the order's hash lock.
//
// Returns:
// - error: ErrEncoding when the secret does not match the hash lock.
func VerifySecret(secret common.Hash, hashLock common.Hash) error {
	if HashSecret(secret) != hashLock {
		return errors.Wrap(commonerrors.ErrEncoding, "secret does not hash to order hash lock")
	}
	return nil
}

// PackDeploySrc builds the calldata for filling the order and deploying the
// source escrow in one factory call.
//
// Parameters:
// - imm: the source immutables tuple.
// - orderBuild: the signed order payload as built by the maker's client.
// - signature: the maker's order signature.
// - takerTraits: the taker traits word controlling the fill.
// - fillAmount: the amount being filled.
func (c *Codec) PackDeploySrc(imm types.Immutables, orderBuild, signature []byte, takerTraits, fillAmount *big.Int) ([]byte, error) {
	if takerTraits == nil {
		takerTraits = big.NewInt(0)
	}
	data, err := c.factoryABI.Pack("deploySrc", toTuple(imm), orderBuild, signature, takerTraits, fillAmount)
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrEncoding, err.Error())
	}
	return data, nil
}

// PackDeployDst builds the calldata for deploying the destination escrow.
//
// Parameters:
// - imm: the destination immutables tuple (shared fields plus complement).
// - srcCancellationTimestamp: the absolute source cancellation time; the
//   factory rejects a destination escrow that could outlive the source leg.
func (c *Codec) PackDeployDst(imm types.Immutables, srcCancellationTimestamp *big.Int) ([]byte, error) {
	data, err := c.factoryABI.Pack("deployDst", toTuple(imm), srcCancellationTimestamp)
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrEncoding, err.Error())
	}
	return data, nil
}

// PackWithdraw builds the calldata for withdrawing an escrow with the secret.
func (c *Codec) PackWithdraw(secret common.Hash, imm types.Immutables) ([]byte, error) {
	var secretWord [32]byte
	copy(secretWord[:], secret.Bytes())

	data, err := c.escrowABI.Pack("withdraw", secretWord, toTuple(imm))
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrEncoding, err.Error())
	}
	return data, nil
}

// PackCancel builds the calldata for cancelling an escrow after its
// cancellation window opens.
func (c *Codec) PackCancel(imm types.Immutables) ([]byte, error) {
	data, err := c.escrowABI.Pack("cancel", toTuple(imm))
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrEncoding, err.Error())
	}
	return data, nil
}

// PackImplementationCall builds the calldata for reading an escrow
// implementation address from the factory.
//
// Parameters:
// - getter: "ESCROW_SRC_IMPLEMENTATION" or "ESCROW_DST_IMPLEMENTATION".
func (c *Codec) PackImplementationCall(getter string) ([]byte, error) {
	data, err := c.factoryABI.Pack(getter)
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrEncoding, err.Error())
	}
	return data, nil
}

// UnpackImplementationAddress decodes the return data of an implementation
// address getter.
func (c *Codec) UnpackImplementationAddress(getter string, data []byte) (common.Address, error) {
	values, err := c.factoryABI.Unpack(getter, data)
	if err != nil {
		return common.Address{}, errors.Wrap(commonerrors.ErrEncoding, err.Error())
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, errors.Wrap(commonerrors.ErrEncoding, "implementation getter did not return an address")
	}
	return addr, nil
}

// toTuple converts the domain immutables into the ABI tuple form.
func toTuple(imm types.Immutables) immutablesTuple {
	amount := imm.Amount
	if amount == nil {
		amount = big.NewInt(0)
	}
	deposit := imm.SafetyDeposit
	if deposit == nil {
		deposit = big.NewInt(0)
	}
	locks := imm.TimeLocks
	if locks == nil {
		locks = big.NewInt(0)
	}

	return immutablesTuple{
		OrderHash:     imm.OrderHash,
		Hashlock:      imm.HashLock,
		Maker:         imm.Maker,
		Taker:         imm.Taker,
		Token:         imm.Token,
		Amount:        amount,
		SafetyDeposit: deposit,
		Timelocks:     locks,
	}
}

// fromTuple converts the ABI tuple form back into the domain immutables.
func fromTuple(t immutablesTuple) types.Immutables {
	return types.Immutables{
		OrderHash:     common.Hash(t.OrderHash),
		HashLock:      common.Hash(t.Hashlock),
		Maker:         t.Maker,
		Taker:         t.Taker,
		Token:         t.Token,
		Amount:        t.Amount,
		SafetyDeposit: t.SafetyDeposit,
		TimeLocks:     t.Timelocks,
	}
}
