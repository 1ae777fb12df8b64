package evm

import (
	"context"
	"math/big"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// Send submits a transaction from the bound signer and waits for exactly one
// confirmation. There is no implicit retry: a revert is surfaced as a
// TransactionFailedError and a missed deadline as ErrTimeout, and the caller
// decides what to do with either.
//
// Parameters:
// - ctx: the context bounding the whole submit-and-confirm cycle. The chain's
//   configured call timeout is applied on top of it.
// - to: the recipient contract address.
// - data: the call data.
// - value: the native value attached to the transaction.
//
// Returns:
// - *types.SendResult: the confirmed transaction details.
// - error: an error if submission, confirmation, or the receipt status fails.
func (e *evm) Send(ctx context.Context, to common.Address, data []byte, value *big.Int) (*types.SendResult, error) {
	client := e.getClient()
	if client == nil {
		return nil, errors.New("client not initialized")
	}

	ctx, cancel := context.WithTimeout(ctx, e.callTimeout())
	defer cancel()

	if value == nil {
		value = big.NewInt(0)
	}

	nonce, err := client.PendingNonceAt(ctx, e.SenderAddress())
	if err != nil {
		return nil, e.wrapRPCError(ctx, err, "failed to get nonce")
	}

	tx, err := e.prepareTransaction(ctx, nonce, to, value, data)
	if err != nil {
		return nil, err
	}

	signedTx, err := e.signAndSendTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}

	e.logger.WithFields(map[string]interface{}{
		"chain":  e.config.Name,
		"txHash": signedTx.Hash().Hex(),
		"to":     to.Hex(),
	}).Info("Transaction submitted, waiting for confirmation")

	return e.waitReceipt(ctx, signedTx)
}

// prepareTransaction prepares a transaction with the given parameters,
// choosing the legacy or EIP-1559 envelope based on the chain configuration.
//
// Parameters:
// - ctx: the context for managing the request.
// - nonce: the nonce for the transaction.
// - to: the recipient address of the transaction.
// - value: the native value to send with the transaction.
// - data: the input data for the transaction.
//
// Returns:
// - *ethtypes.Transaction: the prepared transaction.
// - error: an error if gas estimation or gas price retrieval fails.
func (e *evm) prepareTransaction(ctx context.Context, nonce uint64, to common.Address, value *big.Int, data []byte) (*ethtypes.Transaction, error) {
	estimatedGas, err := e.EstimateGas(ctx, to, value, data)
	if err != nil {
		e.logger.WithField("chain", e.config.Name).WithError(err).Warn("Failed to estimate gas")
		return nil, e.wrapRPCError(ctx, err, "failed to estimate gas")
	}

	gasLimit := uint64(float64(estimatedGas) * 1.1)

	client := e.getClient()
	if client == nil {
		return nil, errors.New("client not initialized")
	}

	if e.config.TxType == TxTypeEIP1559 {
		gasPriceData, err := e.getEIP1559GasPrice(ctx)
		if err != nil {
			return nil, e.wrapRPCError(ctx, err, "failed to get EIP-1559 gas price")
		}

		return ethtypes.NewTx(&ethtypes.DynamicFeeTx{
			ChainID:   big.NewInt(0).SetUint64(e.config.ChainID),
			Nonce:     nonce,
			GasFeeCap: gasPriceData.MaxFeePerGas,
			GasTipCap: gasPriceData.MaxPriorityFeePerGas,
			Gas:       gasLimit,
			To:        &to,
			Value:     value,
			Data:      data,
		}), nil
	}

	gasPrice, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, e.wrapRPCError(ctx, err, "failed to get gas price")
	}

	gasPrice = new(big.Int).Mul(gasPrice, big.NewInt(150))
	gasPrice = new(big.Int).Div(gasPrice, big.NewInt(100))

	return ethtypes.NewTransaction(nonce, to, value, gasLimit, gasPrice, data), nil
}

// signAndSendTransaction signs and submits the prepared transaction.
//
// Parameters:
// - ctx: the context for managing the request.
// - tx: the prepared transaction to be signed and sent.
//
// Returns:
// - *ethtypes.Transaction: the signed and submitted transaction.
// - error: an error if the client or signer is not initialized, or if the
//   signing or sending fails.
func (e *evm) signAndSendTransaction(ctx context.Context, tx *ethtypes.Transaction) (*ethtypes.Transaction, error) {
	client := e.getClient()

	e.signerMutex.RLock()
	txSigner := e.signer
	e.signerMutex.RUnlock()

	if client == nil || txSigner == nil {
		return nil, errors.New("client or signer not initialized")
	}

	chainID := big.NewInt(0).SetUint64(e.config.ChainID)

	signedTx, err := txSigner.SignTx(tx, chainID)
	if err != nil {
		e.logger.WithError(err).Error("Failed to sign transaction")
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	if err = client.SendTransaction(ctx, signedTx); err != nil {
		e.logger.WithError(err).Error("Failed to send transaction")
		return nil, e.wrapRPCError(ctx, err, "failed to send transaction")
	}

	return signedTx, nil
}

// wrapRPCError wraps a remote call failure, mapping a missed deadline to the
// timeout sentinel so callers can tell transient failures from reverts.
func (e *evm) wrapRPCError(ctx context.Context, err error, msg string) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.Wrapf(commonerrors.ErrTimeout, "%s: %v", msg, err)
	}
	return errors.Wrap(err, msg)
}
