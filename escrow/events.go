package escrow

import (
	"context"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// srcEscrowCreatedPayload is the decode target for the deployment event data.
type srcEscrowCreatedPayload struct {
	SrcImmutables           immutablesTuple `abi:"srcImmutables"`
	DstImmutablesComplement complementTuple `abi:"dstImmutablesComplement"`
}

// EventReader recovers the exact immutables emitted by a source escrow
// deployment. The resolver must later present a byte-identical tuple to any
// withdraw or cancel call, so the locally built copy is never trusted alone.
type EventReader struct {
	chains types.ChainRegistry
	codec  *Codec
	logger *logrus.Logger
}

// NewEventReader creates an event reader over the given chain registry.
//
// Parameters:
// - chains: the registry of chain clients to read logs through.
// - codec: the immutables codec used for decoding.
// - logger: the logger for logging events.
//
// Returns:
// - *EventReader: the new event reader instance.
func NewEventReader(chains types.ChainRegistry, codec *Codec, logger *logrus.Logger) *EventReader {
	return &EventReader{
		chains: chains,
		codec:  codec,
		logger: logger,
	}
}

// ReadSourceDeployment queries the logs of an exact block for the single
// source escrow deployment event emitted by the factory and decodes its two
// tuples.
//
// Zero matching logs or more than one matching log is ambiguous state: the
// resolver must not guess which immutables govern the escrow, so both cases
// fail with ErrEventNotFound.
//
// Parameters:
// - ctx: the context for managing the request.
// - chainID: the source chain id.
// - factory: the escrow factory address that emitted the event.
// - blockHash: the hash of the block the deployment was included in.
//
// Returns:
// - types.Immutables: the canonical on-chain source immutables.
// - types.DstImmutablesComplement: the destination complement echoed by the factory.
// - error: ErrChainNotFound, ErrEventNotFound, or ErrEncoding on decode failure.
func (r *EventReader) ReadSourceDeployment(
	ctx context.Context,
	chainID uint64,
	factory common.Address,
	blockHash common.Hash,
) (types.Immutables, types.DstImmutablesComplement, error) {
	client := r.chains.Get(chainID)
	if client == nil {
		return types.Immutables{}, types.DstImmutablesComplement{}, errors.Wrapf(commonerrors.ErrChainNotFound, "chain %d", chainID)
	}

	eventID := r.codec.factoryABI.Events[srcEscrowCreatedEvent].ID
	query := ethereum.FilterQuery{
		BlockHash: &blockHash,
		Addresses: []common.Address{factory},
		Topics:    [][]common.Hash{{eventID}},
	}

	logs, err := client.GetLogs(ctx, query)
	if err != nil {
		return types.Immutables{}, types.DstImmutablesComplement{}, errors.Wrap(err, "failed to query deployment logs")
	}

	if len(logs) != 1 {
		r.logger.WithFields(logrus.Fields{
			"chainId":   chainID,
			"blockHash": blockHash.Hex(),
			"matches":   len(logs),
		}).Error("Ambiguous source escrow deployment event")
		return types.Immutables{}, types.DstImmutablesComplement{}, errors.Wrapf(
			commonerrors.ErrEventNotFound, "expected exactly one deployment event in block %s, found %d", blockHash.Hex(), len(logs))
	}

	var payload srcEscrowCreatedPayload
	if err := r.codec.factoryABI.UnpackIntoInterface(&payload, srcEscrowCreatedEvent, logs[0].Data); err != nil {
		return types.Immutables{}, types.DstImmutablesComplement{}, errors.Wrap(commonerrors.ErrEncoding, err.Error())
	}

	complement := types.DstImmutablesComplement{
		Maker:         payload.DstImmutablesComplement.Maker,
		Amount:        payload.DstImmutablesComplement.Amount,
		Token:         payload.DstImmutablesComplement.Token,
		SafetyDeposit: payload.DstImmutablesComplement.SafetyDeposit,
	}

	return fromTuple(payload.SrcImmutables), complement, nil
}
