package settlement

import (
	"context"
	"math/big"
	"time"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DeployEscrows runs the deploy phase of one settlement: fill the source
// order (deploying the source escrow with the resolver's safety deposit),
// recover the canonical immutables from the deployment event, then deploy the
// matching destination escrow. On success the order is left in PENDING_SECRET
// awaiting the maker's reveal.
//
// Any step's failure halts the run and marks the order FAILED; transaction
// records obtained before the failure stay attached.
//
// Parameters:
// - ctx: the context bounding the whole phase.
// - req: the validated deploy request.
//
// Returns:
// - *DeployResult: the deployment outcome, including both immutables
//   encodings and their hashes for the later reveal call.
// - error: ErrValidation, ErrConflict, or the converted run failure.
func (o *Orchestrator) DeployEscrows(ctx context.Context, req *DeployRequest) (*DeployResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	// Reject a duplicate order before claiming the run slot: an order hash
	// identifies one settlement forever, not one attempt.
	existing, err := o.store.FindByHash(ctx, req.OrderHash)
	if err != nil {
		return nil, errors.Wrap(err, "failed to check for existing order")
	}
	if existing != nil {
		return nil, errors.Wrapf(commonerrors.ErrConflict, "order %s already exists with status %s", req.OrderHash, existing.Status)
	}

	if err := o.acquireRun(req.OrderHash); err != nil {
		return nil, err
	}
	defer o.releaseRun(req.OrderHash)

	ord := &types.Order{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Status:    types.StatusCreated,
		SwapState: req.SwapState,
		OrderHash: req.OrderHash,
	}
	if err := o.store.Create(ctx, ord); err != nil {
		return nil, errors.Wrap(err, "failed to create order record")
	}

	o.logger.WithFields(logrus.Fields{
		"orderId":   ord.ID,
		"orderHash": ord.OrderHash,
		"fromChain": req.SwapState.FromChainID,
		"toChain":   req.SwapState.ToChainID,
	}).Info("Starting escrow deployment")

	result, err := o.runDeploy(ctx, ord, req)
	if err != nil {
		return nil, o.failRun(ctx, ord, err)
	}
	return result, nil
}

// runDeploy executes the deploy steps against the chains. Split out so that
// DeployEscrows owns the single FAILED conversion point.
func (o *Orchestrator) runDeploy(ctx context.Context, ord *types.Order, req *DeployRequest) (*DeployResult, error) {
	srcChain := o.chains.Get(req.SwapState.FromChainID)
	dstChain := o.chains.Get(req.SwapState.ToChainID)
	if srcChain == nil || dstChain == nil {
		return nil, errors.Wrapf(commonerrors.ErrChainNotFound, "chains %d/%d", req.SwapState.FromChainID, req.SwapState.ToChainID)
	}

	srcFactory, err := o.factoryFor(req.SwapState.FromChainID)
	if err != nil {
		return nil, err
	}
	dstFactory, err := o.factoryFor(req.SwapState.ToChainID)
	if err != nil {
		return nil, err
	}

	orderHash, _ := parseHash(req.OrderHash)
	hashLock, _ := parseHash(req.HashLock)
	fillAmount, _ := parseAmount(req.SwapState.FromAmount)
	dstAmount, _ := parseAmount(req.SwapState.ToAmount)
	srcDeposit, _ := parseAmount(req.SrcSafetyDeposit)
	dstDeposit, _ := parseAmount(req.DstSafetyDeposit)

	srcImm, err := o.codec.BuildSrcImmutables(
		orderHash,
		hashLock,
		common.HexToAddress(req.SwapState.UserAddress),
		srcChain.SenderAddress(),
		common.HexToAddress(req.SwapState.FromToken.ContractAddress),
		fillAmount,
		srcDeposit,
		req.TimeLocks,
	)
	if err != nil {
		return nil, err
	}

	// Step 1: fill the source order, deploying the source escrow. The
	// resolver's safety deposit rides along as the transaction value.
	orderBuild, err := hexutil.Decode(req.OrderBuild)
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrValidation, "order build payload is not valid hex")
	}
	signature, err := hexutil.Decode(req.Signature)
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrValidation, "signature is not valid hex")
	}
	takerTraits, err := parseTraits(req.TakerTraits)
	if err != nil {
		return nil, errors.Wrap(commonerrors.ErrValidation, err.Error())
	}

	deploySrcData, err := o.codec.PackDeploySrc(srcImm, orderBuild, signature, takerTraits, fillAmount)
	if err != nil {
		return nil, err
	}

	srcRes, err := srcChain.Send(ctx, srcFactory, deploySrcData, srcDeposit)
	if err != nil {
		return nil, errors.Wrap(err, "source escrow deployment failed")
	}

	ord.Message = "source escrow deployed"
	if err := o.attachTransaction(ctx, ord, &ord.Transactions.OrderFill, newTransactionRecord(srcChain, srcRes, "order fill / source escrow deploy")); err != nil {
		return nil, err
	}

	// The factory is the source of truth for the immutables it deployed
	// with, including the taker it assigned. Read them back from the event
	// rather than trusting only the locally built tuple.
	canonicalSrc, complement, err := o.reader.ReadSourceDeployment(ctx, req.SwapState.FromChainID, srcFactory, srcRes.BlockHash)
	if err != nil {
		return nil, err
	}
	if canonicalSrc.OrderHash != srcImm.OrderHash || canonicalSrc.HashLock != srcImm.HashLock {
		return nil, errors.Wrap(commonerrors.ErrEncoding, "deployment event does not match submitted order")
	}

	// Step 2: deploy the matching destination escrow. Shared fields carry
	// over unchanged; the complement supplies the destination-side ones.
	dstImm := canonicalSrc.WithComplement(complement)
	if complement.Amount == nil || complement.Amount.Sign() == 0 {
		built, err := o.codec.BuildDstComplement(
			common.HexToAddress(req.SwapState.UserAddress),
			common.HexToAddress(req.SwapState.ToToken.ContractAddress),
			dstAmount,
			dstDeposit,
		)
		if err != nil {
			return nil, err
		}
		dstImm = canonicalSrc.WithComplement(built)
	}

	srcCancellation := new(big.Int).SetInt64(srcRes.BlockTimestamp.Unix() + int64(req.TimeLocks.SrcCancellation))
	deployDstData, err := o.codec.PackDeployDst(dstImm, srcCancellation)
	if err != nil {
		return nil, err
	}

	// For a native-asset destination leg the escrowed amount travels as
	// transaction value alongside the safety deposit.
	dstValue := new(big.Int).Set(dstImm.SafetyDeposit)
	if dstImm.Token == (common.Address{}) {
		dstValue.Add(dstValue, dstImm.Amount)
	}

	dstRes, err := dstChain.Send(ctx, dstFactory, deployDstData, dstValue)
	if err != nil {
		return nil, errors.Wrap(err, "destination escrow deployment failed")
	}

	if err := o.attachTransaction(ctx, ord, &ord.Transactions.DstEscrowDeploy, newTransactionRecord(dstChain, dstRes, "destination escrow deploy")); err != nil {
		return nil, err
	}

	if err := o.transition(ctx, ord, types.StatusPendingSecret, "escrows deployed, awaiting secret", ""); err != nil {
		return nil, err
	}

	srcRaw, err := o.codec.EncodeImmutables(canonicalSrc)
	if err != nil {
		return nil, err
	}
	srcSum, err := o.codec.HashImmutables(canonicalSrc)
	if err != nil {
		return nil, err
	}
	dstRaw, err := o.codec.EncodeImmutables(dstImm)
	if err != nil {
		return nil, err
	}
	dstSum, err := o.codec.HashImmutables(dstImm)
	if err != nil {
		return nil, err
	}

	o.logger.WithFields(logrus.Fields{
		"orderId":  ord.ID,
		"srcEvent": srcSum.Hex(),
		"dstEvent": dstSum.Hex(),
	}).Info("Escrows deployed on both chains")

	return &DeployResult{
		Order:            ord,
		SrcEscrowEvent:   canonicalSrc,
		SrcImmutables:    canonicalSrc,
		SrcImmutablesRaw: srcRaw,
		SrcImmutablesSum: srcSum,
		DstImmutables:    dstImm,
		DstImmutablesRaw: dstRaw,
		DstImmutablesSum: dstSum,
		DstDeployedAt:    dstRes.BlockTimestamp,
	}, nil
}
