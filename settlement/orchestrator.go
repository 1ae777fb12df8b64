package settlement

import (
	"context"
	"sync"
	"time"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/FusionCross/resolver-lib/escrow"
	"github.com/FusionCross/resolver-lib/order"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// defaultFinalityDelay is the wait between escrow deployment and any
	// withdrawal attempt when the configuration does not override it. It must
	// cover the larger of the two chains' safe-confirmation windows.
	defaultFinalityDelay = 30 * time.Second

	// defaultWithdrawRetryAttempts bounds the source-leg withdrawal retries
	// once the secret is public.
	defaultWithdrawRetryAttempts = 3

	// defaultWithdrawRetryBackoff is the base backoff between source-leg
	// withdrawal retries, doubled per attempt.
	defaultWithdrawRetryBackoff = 5 * time.Second
)

// Config holds the orchestrator tuning knobs.
type Config struct {
	FinalityDelay         time.Duration
	WithdrawRetryAttempts int
	WithdrawRetryBackoff  time.Duration
}

// Orchestrator drives one order at a time through the settlement sequence:
// deploy source escrow, deploy destination escrow, wait finality, withdraw
// destination (revealing the secret), withdraw source. Each order gets an
// independent sequential run; runs for distinct orders proceed in parallel
// with no shared mutable state beyond the order store.
type Orchestrator struct {
	chains types.ChainRegistry
	store  types.OrderStore
	codec  *escrow.Codec
	reader *escrow.EventReader
	logger *logrus.Logger
	config Config

	// factories maps chain id to the escrow factory deployed on that chain.
	factories      map[uint64]common.Address
	factoriesMutex sync.RWMutex

	// active tracks order hashes with a run in flight. An order has exactly
	// one active run at a time; a second run is rejected, not queued.
	active      map[string]struct{}
	activeMutex sync.Mutex
}

// NewOrchestrator creates a settlement orchestrator.
//
// Parameters:
// - chains: the registry of chain clients, keyed by chain id.
// - store: the durable order store. The stored copy is authoritative.
// - codec: the immutables codec.
// - reader: the escrow deployment event reader.
// - config: orchestrator tuning; zero values fall back to defaults.
// - logger: the logger for logging events.
//
// Returns:
// - *Orchestrator: the new orchestrator instance.
func NewOrchestrator(
	chains types.ChainRegistry,
	store types.OrderStore,
	codec *escrow.Codec,
	reader *escrow.EventReader,
	config Config,
	logger *logrus.Logger,
) *Orchestrator {
	if config.FinalityDelay <= 0 {
		config.FinalityDelay = defaultFinalityDelay
	}
	if config.WithdrawRetryAttempts <= 0 {
		config.WithdrawRetryAttempts = defaultWithdrawRetryAttempts
	}
	if config.WithdrawRetryBackoff <= 0 {
		config.WithdrawRetryBackoff = defaultWithdrawRetryBackoff
	}

	return &Orchestrator{
		chains:    chains,
		store:     store,
		codec:     codec,
		reader:    reader,
		logger:    logger,
		config:    config,
		factories: make(map[uint64]common.Address),
		active:    make(map[string]struct{}),
	}
}

// RegisterFactory records the escrow factory address for a chain.
func (o *Orchestrator) RegisterFactory(chainID uint64, factory common.Address) {
	o.factoriesMutex.Lock()
	o.factories[chainID] = factory
	o.factoriesMutex.Unlock()
}

// factoryFor returns the escrow factory address for a chain.
func (o *Orchestrator) factoryFor(chainID uint64) (common.Address, error) {
	o.factoriesMutex.RLock()
	factory, ok := o.factories[chainID]
	o.factoriesMutex.RUnlock()

	if !ok {
		return common.Address{}, errors.Wrapf(commonerrors.ErrChainNotFound, "no escrow factory registered for chain %d", chainID)
	}
	return factory, nil
}

// acquireRun claims the single active run slot for an order hash.
//
// Returns:
// - error: ErrConflict if a run for the order is already in flight.
func (o *Orchestrator) acquireRun(orderHash string) error {
	o.activeMutex.Lock()
	defer o.activeMutex.Unlock()

	if _, running := o.active[orderHash]; running {
		return errors.Wrapf(commonerrors.ErrConflict, "order %s already has an active run", orderHash)
	}
	o.active[orderHash] = struct{}{}
	return nil
}

// releaseRun frees the active run slot for an order hash.
func (o *Orchestrator) releaseRun(orderHash string) {
	o.activeMutex.Lock()
	delete(o.active, orderHash)
	o.activeMutex.Unlock()
}

// transition applies a status change to the working copy and persists it
// before the run proceeds to the next on-chain call.
func (o *Orchestrator) transition(ctx context.Context, ord *types.Order, status types.OrderStatus, message, errText string) error {
	if err := order.Transition(ord, status, message, errText); err != nil {
		return err
	}
	if err := o.store.Update(ctx, ord); err != nil {
		return errors.Wrap(err, "failed to persist order transition")
	}
	return nil
}

// failRun halts a run: the order transitions to FAILED carrying the error
// text, and every transaction record already attached stays in place for
// operator-driven recovery. The original error is returned for the caller's
// boundary, not surfaced beyond the stored error field.
func (o *Orchestrator) failRun(ctx context.Context, ord *types.Order, runErr error) error {
	o.logger.WithFields(logrus.Fields{
		"orderId":   ord.ID,
		"orderHash": ord.OrderHash,
	}).WithError(runErr).Error("Settlement run failed")

	if err := o.transition(ctx, ord, types.StatusFailed, "", runErr.Error()); err != nil {
		// A terminal order must not be overwritten; nothing more to persist.
		o.logger.WithField("orderId", ord.ID).WithError(err).Warn("Could not record failure transition")
	}
	return runErr
}

// attachTransaction appends a transaction record to the order and persists it.
// Records are append-only; an existing record is never replaced.
func (o *Orchestrator) attachTransaction(ctx context.Context, ord *types.Order, slot **types.TransactionRecord, rec *types.TransactionRecord) error {
	if *slot != nil {
		return errors.Errorf("transaction record %q already attached to order %s", rec.Description, ord.ID)
	}
	*slot = rec
	return errors.Wrap(o.store.Update(ctx, ord), "failed to persist transaction record")
}

// newTransactionRecord builds a record from a confirmed send.
func newTransactionRecord(client types.ChainClient, res *types.SendResult, description string) *types.TransactionRecord {
	return &types.TransactionRecord{
		TxHash:      res.TxHash.Hex(),
		TxLink:      client.ExplorerTxLink(res.TxHash.Hex()),
		ChainID:     client.ChainID(),
		BlockHash:   res.BlockHash.Hex(),
		Timestamp:   res.BlockTimestamp,
		Description: description,
	}
}

// waitFinality sleeps for the configured finality delay, honoring the
// context. Withdrawing before finality risks a reorg invalidating the escrow.
func (o *Orchestrator) waitFinality(ctx context.Context, ord *types.Order) error {
	o.logger.WithFields(logrus.Fields{
		"orderId": ord.ID,
		"delay":   o.config.FinalityDelay.String(),
	}).Info("Waiting for finality before withdrawals")

	timer := time.NewTimer(o.config.FinalityDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return errors.Wrap(commonerrors.ErrTimeout, "finality wait aborted")
	case <-timer.C:
		return nil
	}
}
