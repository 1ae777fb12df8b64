package evm

import (
	"context"
	"time"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// waitReceipt polls for the receipt of a submitted transaction until it is
// included in a block, then inspects the receipt status. One inclusion is the
// confirmation contract of Send; finality is handled a level up, by the
// orchestrator's finality delay.
//
// Parameters:
// - ctx: the context bounding the wait.
// - tx: the submitted transaction.
//
// Returns:
// - *types.SendResult: the confirmed transaction details.
// - error: ErrTimeout if the deadline passes, a TransactionFailedError if the
//   receipt indicates reversion, or a transport error otherwise.
func (e *evm) waitReceipt(ctx context.Context, tx *ethtypes.Transaction) (*types.SendResult, error) {
	client := e.getClient()
	if client == nil {
		return nil, errors.New("client not initialized")
	}

	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.WithFields(map[string]interface{}{
				"chain":  e.config.Name,
				"txHash": tx.Hash().Hex(),
			}).Error("waitReceipt: context done")
			return nil, errors.Wrapf(commonerrors.ErrTimeout, "waiting for receipt of %s", tx.Hash().Hex())

		case <-ticker.C:
			receipt, err := client.TransactionReceipt(ctx, tx.Hash())
			if err != nil {
				if errors.Is(err, ethereum.NotFound) {
					continue
				}
				return nil, e.wrapRPCError(ctx, err, "failed to get transaction receipt")
			}

			header, err := client.HeaderByHash(ctx, receipt.BlockHash)
			if err != nil {
				return nil, e.wrapRPCError(ctx, err, "failed to get including block header")
			}

			if receipt.Status != ethtypes.ReceiptStatusSuccessful {
				reason := e.revertReason(ctx, tx, receipt)
				return nil, commonerrors.NewTransactionFailed(tx.Hash().Hex(), reason)
			}

			return &types.SendResult{
				TxHash:         tx.Hash(),
				BlockHash:      receipt.BlockHash,
				BlockNumber:    receipt.BlockNumber.Uint64(),
				BlockTimestamp: time.Unix(int64(header.Time), 0).UTC(),
			}, nil
		}
	}
}

// revertReason replays a reverted transaction as a read-only call at its
// including block to recover the revert string. Best effort: an empty string
// is returned when the node does not expose the reason.
func (e *evm) revertReason(ctx context.Context, tx *ethtypes.Transaction, receipt *ethtypes.Receipt) string {
	client := e.getClient()
	if client == nil {
		return ""
	}

	from := e.SenderAddress()
	msg := ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}

	_, err := client.CallContract(ctx, msg, receipt.BlockNumber)
	if err == nil {
		return ""
	}
	return err.Error()
}
