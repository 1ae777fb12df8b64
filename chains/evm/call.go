package evm

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Call executes a read-only invocation against the given contract at the
// latest block. Used to read escrow factory implementation addresses.
//
// Parameters:
// - ctx: the context for managing the request.
// - to: the contract address.
// - data: the call data.
//
// Returns:
// - []byte: the raw return data.
// - error: an error if the client is not initialized or the call fails.
func (e *evm) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	client := e.getClient()
	if client == nil {
		return nil, errors.New("client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, e.callTimeout())
	defer cancel()

	msg := ethereum.CallMsg{
		To:   &to,
		Data: data,
	}

	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, e.wrapRPCError(ctx, err, "failed to call contract")
	}

	return result, nil
}
