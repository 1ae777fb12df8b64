package chainmanager

import (
	"context"
	"sync"

	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/sirupsen/logrus"
)

// ChainClientFactory constructs chain clients for the registry.
type ChainClientFactory interface {
	CreateChain(ctx context.Context, config *types.ChainConfig, logger *logrus.Logger) (types.ChainClient, error)
}

type blockchainRegistry struct {
	logger       *logrus.Logger
	chains       map[uint64]types.ChainClient
	chainsMutex  sync.RWMutex
	factory      ChainClientFactory
	factoryMutex sync.RWMutex
}

// NewChainRegistry creates a registry of chain clients keyed by chain id.
// The orchestrator holds one registry and looks clients up per leg; there is
// no chain-specific subclassing anywhere above this point.
//
// Parameters:
// - factory: the factory used to construct clients for added configurations.
// - logger: the logger for logging purposes.
//
// Returns:
// - types.ChainRegistry: the new registry instance.
func NewChainRegistry(factory ChainClientFactory, logger *logrus.Logger) types.ChainRegistry {
	return &blockchainRegistry{
		chains:  make(map[uint64]types.ChainClient),
		factory: factory,
		logger:  logger,
	}
}

// Add constructs and registers a client for the given configuration.
func (r *blockchainRegistry) Add(ctx context.Context, config *types.ChainConfig) error {
	// Lock factory for reading to prevent changes during chain creation.
	r.factoryMutex.RLock()
	chain, err := r.factory.CreateChain(ctx, config, r.logger)
	r.factoryMutex.RUnlock()

	if err != nil {
		return err
	}

	r.chainsMutex.Lock()
	r.chains[config.ChainID] = chain
	r.chainsMutex.Unlock()

	r.logger.WithFields(logrus.Fields{
		"chain":   config.Name,
		"chainId": config.ChainID,
	}).Info("Registered chain client")

	return nil
}

// Get retrieves a client from the registry by its chain id.
func (r *blockchainRegistry) Get(chainID uint64) types.ChainClient {
	r.chainsMutex.RLock()
	chain := r.chains[chainID]
	r.chainsMutex.RUnlock()
	return chain
}

// Remove removes a client from the registry by its chain id.
func (r *blockchainRegistry) Remove(chainID uint64) {
	r.chainsMutex.Lock()
	delete(r.chains, chainID)
	r.chainsMutex.Unlock()
}
