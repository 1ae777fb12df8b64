package settlement

import (
	"context"
	"time"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/FusionCross/resolver-lib/escrow"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RevealAndWithdraw runs the withdraw phase of one settlement: verify the
// revealed secret, wait out the finality delay, recover the canonical
// immutables from the source deployment event, withdraw the destination
// escrow (the irreversible reveal), then withdraw the source escrow.
//
// The ordering is a correctness requirement, not a preference: the
// destination withdrawal pays the user first; only then does the resolver
// recover its own collateral from the source leg. Once the destination
// withdrawal lands the secret is public, so the source withdrawal is retried
// with bounded backoff on timeouts instead of giving up on the first miss.
//
// Parameters:
// - ctx: the context bounding the whole phase.
// - req: the validated reveal request.
//
// Returns:
// - *RevealResult: the completed settlement outcome.
// - error: ErrValidation, ErrConflict, ErrOrderNotFound, or the converted run failure.
func (o *Orchestrator) RevealAndWithdraw(ctx context.Context, req *RevealRequest) (*RevealResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	srcImm, dstImm, err := o.decodeRevealImmutables(req)
	if err != nil {
		return nil, err
	}

	ord, err := o.store.FindByHash(ctx, srcImm.OrderHash.Hex())
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up order")
	}
	if ord == nil {
		return nil, errors.Wrapf(commonerrors.ErrOrderNotFound, "no order for hash %s", srcImm.OrderHash.Hex())
	}
	if ord.Status != types.StatusPendingSecret {
		return nil, errors.Wrapf(commonerrors.ErrConflict, "order %s is %s, expected %s", ord.ID, ord.Status, types.StatusPendingSecret)
	}

	if err := o.acquireRun(ord.OrderHash); err != nil {
		return nil, err
	}
	defer o.releaseRun(ord.OrderHash)

	o.logger.WithFields(logrus.Fields{
		"orderId":   ord.ID,
		"orderHash": ord.OrderHash,
	}).Info("Starting secret reveal and withdrawals")

	result, err := o.runReveal(ctx, ord, req, srcImm, dstImm)
	if err != nil {
		return nil, o.failRun(ctx, ord, err)
	}
	return result, nil
}

// decodeRevealImmutables decodes and cross-checks the immutables encodings
// supplied with the reveal. The hashes are recomputed, never trusted.
func (o *Orchestrator) decodeRevealImmutables(req *RevealRequest) (types.Immutables, types.Immutables, error) {
	srcRaw, err := hexutil.Decode(req.SrcImmutablesRaw)
	if err != nil {
		return types.Immutables{}, types.Immutables{}, errors.Wrap(commonerrors.ErrValidation, "source immutables encoding is not valid hex")
	}
	dstRaw, err := hexutil.Decode(req.DstImmutablesRaw)
	if err != nil {
		return types.Immutables{}, types.Immutables{}, errors.Wrap(commonerrors.ErrValidation, "destination immutables encoding is not valid hex")
	}

	srcImm, err := o.codec.DecodeImmutables(srcRaw)
	if err != nil {
		return types.Immutables{}, types.Immutables{}, err
	}
	dstImm, err := o.codec.DecodeImmutables(dstRaw)
	if err != nil {
		return types.Immutables{}, types.Immutables{}, err
	}

	srcSum, _ := parseHash(req.SrcImmutablesSum)
	dstSum, _ := parseHash(req.DstImmutablesSum)

	if computed, err := o.codec.HashImmutables(srcImm); err != nil || computed != srcSum {
		return types.Immutables{}, types.Immutables{}, errors.Wrap(commonerrors.ErrEncoding, "source immutables hash mismatch")
	}
	if computed, err := o.codec.HashImmutables(dstImm); err != nil || computed != dstSum {
		return types.Immutables{}, types.Immutables{}, errors.Wrap(commonerrors.ErrEncoding, "destination immutables hash mismatch")
	}

	// One orderHash/hashLock pair on both legs is what links the escrows.
	if srcImm.OrderHash != dstImm.OrderHash || srcImm.HashLock != dstImm.HashLock {
		return types.Immutables{}, types.Immutables{}, errors.Wrap(commonerrors.ErrEncoding, "source and destination immutables are not linked")
	}

	return srcImm, dstImm, nil
}

// runReveal executes the withdraw steps against the chains.
func (o *Orchestrator) runReveal(ctx context.Context, ord *types.Order, req *RevealRequest, srcImm, dstImm types.Immutables) (*RevealResult, error) {
	srcChain := o.chains.Get(ord.SwapState.FromChainID)
	dstChain := o.chains.Get(ord.SwapState.ToChainID)
	if srcChain == nil || dstChain == nil {
		return nil, errors.Wrapf(commonerrors.ErrChainNotFound, "chains %d/%d", ord.SwapState.FromChainID, ord.SwapState.ToChainID)
	}

	srcFactory, err := o.factoryFor(ord.SwapState.FromChainID)
	if err != nil {
		return nil, err
	}
	dstFactory, err := o.factoryFor(ord.SwapState.ToChainID)
	if err != nil {
		return nil, err
	}

	secret, _ := parseHash(req.Secret)
	if err := escrow.VerifySecret(secret, srcImm.HashLock); err != nil {
		return nil, err
	}

	ord.Secret = req.Secret
	if err := o.store.Update(ctx, ord); err != nil {
		return nil, errors.Wrap(err, "failed to persist revealed secret")
	}

	// Step 3: finality wait before touching either escrow.
	if err := o.waitFinality(ctx, ord); err != nil {
		return nil, err
	}

	// Step 4: recover the canonical immutables from the deployment event and
	// require them to match the tuple the caller presented.
	if ord.Transactions.OrderFill == nil {
		return nil, errors.Wrap(commonerrors.ErrEventNotFound, "order has no source deployment transaction")
	}
	canonicalSrc, _, err := o.reader.ReadSourceDeployment(
		ctx, ord.SwapState.FromChainID, srcFactory, common.HexToHash(ord.Transactions.OrderFill.BlockHash))
	if err != nil {
		return nil, err
	}
	canonicalSum, err := o.codec.HashImmutables(canonicalSrc)
	if err != nil {
		return nil, err
	}
	presentedSum, err := o.codec.HashImmutables(srcImm)
	if err != nil {
		return nil, err
	}
	if canonicalSum != presentedSum {
		return nil, errors.Wrap(commonerrors.ErrEncoding, "presented immutables do not match on-chain deployment")
	}

	srcEscrowAddr, err := o.escrowAddress(ctx, srcChain, srcFactory, "ESCROW_SRC_IMPLEMENTATION", canonicalSrc)
	if err != nil {
		return nil, err
	}
	dstEscrowAddr, err := o.escrowAddress(ctx, dstChain, dstFactory, "ESCROW_DST_IMPLEMENTATION", dstImm)
	if err != nil {
		return nil, err
	}

	// Step 5: withdraw the destination escrow. This is the irreversible
	// reveal; from here the secret is public on-chain.
	withdrawDstData, err := o.codec.PackWithdraw(secret, dstImm)
	if err != nil {
		return nil, err
	}
	dstRes, err := dstChain.Send(ctx, dstEscrowAddr, withdrawDstData, nil)
	if err != nil {
		return nil, errors.Wrap(err, "destination withdrawal failed")
	}
	if err := o.attachTransaction(ctx, ord, &ord.Transactions.DstWithdraw, newTransactionRecord(dstChain, dstRes, "destination escrow withdraw (secret revealed)")); err != nil {
		return nil, err
	}
	if err := o.transition(ctx, ord, types.StatusPendingWithdraw, "destination withdrawn, secret public", ""); err != nil {
		return nil, err
	}

	// Step 6: withdraw the source escrow with the same secret, releasing the
	// maker's deposit and the safety deposit to the resolver.
	withdrawSrcData, err := o.codec.PackWithdraw(secret, canonicalSrc)
	if err != nil {
		return nil, err
	}
	srcRes, err := o.withdrawSourceWithRetry(ctx, ord, srcChain, srcEscrowAddr, withdrawSrcData)
	if err != nil {
		return nil, err
	}
	if err := o.attachTransaction(ctx, ord, &ord.Transactions.SrcWithdraw, newTransactionRecord(srcChain, srcRes, "source escrow withdraw")); err != nil {
		return nil, err
	}
	if err := o.transition(ctx, ord, types.StatusCompleted, "settlement completed", ""); err != nil {
		return nil, err
	}

	o.logger.WithFields(logrus.Fields{
		"orderId":   ord.ID,
		"srcEscrow": srcEscrowAddr.Hex(),
		"dstEscrow": dstEscrowAddr.Hex(),
	}).Info("Settlement completed")

	return &RevealResult{
		Order:            ord,
		SrcEscrowAddress: srcEscrowAddr,
		DstEscrowAddress: dstEscrowAddr,
	}, nil
}

// withdrawSourceWithRetry submits the source withdrawal, retrying timeouts
// with backoff. Reverts are final and are never retried. The retry exists
// because the secret is already public: abandoning the source leg here would
// forfeit the resolver's collateral over a transient RPC failure.
func (o *Orchestrator) withdrawSourceWithRetry(ctx context.Context, ord *types.Order, srcChain types.ChainClient, escrowAddr common.Address, data []byte) (*types.SendResult, error) {
	var lastErr error

attempts:
	for attempt := 0; attempt <= o.config.WithdrawRetryAttempts; attempt++ {
		if attempt > 0 {
			if ord.Status != types.StatusPendingWithdrawRetry {
				if err := o.transition(ctx, ord, types.StatusPendingWithdrawRetry, "retrying source withdrawal", lastErr.Error()); err != nil {
					return nil, err
				}
			}

			backoff := o.config.WithdrawRetryBackoff * time.Duration(1<<(attempt-1))
			o.logger.WithFields(logrus.Fields{
				"orderId": ord.ID,
				"attempt": attempt,
				"backoff": backoff.String(),
			}).Warn("Source withdrawal timed out, retrying")

			select {
			case <-ctx.Done():
				break attempts
			case <-time.After(backoff):
			}
		}

		res, err := srcChain.Send(ctx, escrowAddr, data, nil)
		if err == nil {
			return res, nil
		}
		lastErr = err

		// Only timeouts are plausibly transient. A revert means the escrow
		// rejected the call and repeating it cannot succeed.
		if !commonerrors.IsTimeout(err) {
			return nil, errors.Wrap(err, "source withdrawal failed")
		}
	}

	return nil, errors.Wrap(lastErr, "source withdrawal failed after retries")
}

// escrowAddress derives the deterministic escrow address for the given
// immutables by reading the implementation address from the factory.
func (o *Orchestrator) escrowAddress(ctx context.Context, client types.ChainClient, factory common.Address, getter string, imm types.Immutables) (common.Address, error) {
	callData, err := o.codec.PackImplementationCall(getter)
	if err != nil {
		return common.Address{}, err
	}

	ret, err := client.Call(ctx, factory, callData)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to read escrow implementation")
	}

	impl, err := o.codec.UnpackImplementationAddress(getter, ret)
	if err != nil {
		return common.Address{}, err
	}

	return o.codec.DeriveEscrowAddress(imm, factory, impl)
}
