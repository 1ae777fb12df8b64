package evm

import (
	"context"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// GetLogs returns the event logs matching the filter query. Settlement
// queries pin the filter to an exact block hash so the result cannot move
// under a reorg between the query and the decode.
//
// Parameters:
// - ctx: the context for managing the request.
// - query: the log filter.
//
// Returns:
// - []ethtypes.Log: the matching logs.
// - error: an error if the client is not initialized or the query fails.
func (e *evm) GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]ethtypes.Log, error) {
	client := e.getClient()
	if client == nil {
		return nil, errors.New("client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, e.callTimeout())
	defer cancel()

	logs, err := client.FilterLogs(ctx, query)
	if err != nil {
		return nil, e.wrapRPCError(ctx, err, "failed to filter logs")
	}

	return logs, nil
}
