package escrow

import (
	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

// Minimal proxy (EIP-1167) bytecode halves. The factory deploys each escrow
// as a minimal proxy pointing at its implementation, so the CREATE2 init code
// hash is a pure function of the implementation address.
var (
	proxyBytecodePrefix = common.Hex2Bytes("3d602d80600a3d3981f3363d3d373d3d3d363d73")
	proxyBytecodeSuffix = common.Hex2Bytes("5af43d82803e903d91602b57fd5bf3")
)

// ProxyBytecodeHash returns the CREATE2 init code hash of a minimal proxy
// pointing at the given escrow implementation.
//
// Parameters:
// - implementation: the escrow implementation address read from the factory.
//
// Returns:
// - common.Hash: keccak256 of the proxy creation bytecode.
func ProxyBytecodeHash(implementation common.Address) common.Hash {
	code := make([]byte, 0, len(proxyBytecodePrefix)+common.AddressLength+len(proxyBytecodeSuffix))
	code = append(code, proxyBytecodePrefix...)
	code = append(code, implementation.Bytes()...)
	code = append(code, proxyBytecodeSuffix...)
	return crypto.Keccak256Hash(code)
}

// DeriveEscrowAddress computes the deterministic address of an escrow
// deployed by the factory for the given immutables. The salt is keccak256 of
// the canonical immutables encoding, so the derivation must match the
// on-chain factory bit-for-bit; a mismatch here is a protocol-breaking bug,
// not a recoverable error.
//
// Parameters:
// - imm: the immutables the escrow was (or will be) deployed with.
// - factory: the escrow factory address on the target chain.
// - implementation: the escrow implementation the factory proxies to.
//
// Returns:
// - common.Address: the derived escrow address.
// - error: ErrEncoding if the immutables cannot be encoded, or if the factory
//   or implementation address is zero.
func (c *Codec) DeriveEscrowAddress(imm types.Immutables, factory, implementation common.Address) (common.Address, error) {
	if factory == (common.Address{}) || implementation == (common.Address{}) {
		return common.Address{}, errors.Wrap(commonerrors.ErrEncoding, "factory and implementation must be non-zero addresses")
	}

	salt, err := c.HashImmutables(imm)
	if err != nil {
		return common.Address{}, err
	}

	initCodeHash := ProxyBytecodeHash(implementation)
	return crypto.CreateAddress2(factory, salt, initCodeHash.Bytes()), nil
}
