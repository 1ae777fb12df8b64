package chains

import (
	"context"
	"sync"

	"github.com/FusionCross/resolver-lib/chains/evm"
	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	commontypes "github.com/FusionCross/resolver-lib/common/types"
	"github.com/sirupsen/logrus"
)

// ChainConstructor represents a function that constructs a new chain client.
//
// Parameters:
// - ctx: the context for managing the construction.
// - config: the configuration for the chain.
// - logger: the logger for logging purposes.
//
// Returns:
// - commontypes.ChainClient: the constructed chain client.
// - error: an error if the construction fails.
type ChainConstructor func(ctx context.Context, config *commontypes.ChainConfig, logger *logrus.Logger) (commontypes.ChainClient, error)

// ChainFactory defines the interface for chain client creation.
type ChainFactory interface {
	// RegisterConstructor registers a new chain constructor for a given chain type.
	//
	// Parameters:
	// - chainType: the type of the chain to register.
	// - constructor: the constructor function for the chain type.
	RegisterConstructor(chainType string, constructor ChainConstructor)

	// CreateChain creates a new chain client based on the configuration.
	//
	// Parameters:
	// - ctx: the context for managing the construction.
	// - config: the configuration for the chain.
	// - logger: the logger for logging purposes.
	//
	// Returns:
	// - commontypes.ChainClient: the created chain client.
	// - error: an error if the chain type is not supported.
	CreateChain(ctx context.Context, config *commontypes.ChainConfig, logger *logrus.Logger) (commontypes.ChainClient, error)
}

type chainFactory struct {
	// constructors stores the mapping of chain types to their constructors.
	constructors map[string]ChainConstructor
	// constructorsMutex protects access to the constructors map.
	constructorsMutex sync.RWMutex
}

// NewChainFactory creates a new instance of the chain factory with the
// default constructors registered.
//
// Returns:
// - ChainFactory: the new chain factory instance.
func NewChainFactory() ChainFactory {
	factory := &chainFactory{
		constructors: make(map[string]ChainConstructor),
	}

	factory.registerConstructors()

	return factory
}

// RegisterConstructor registers a new chain constructor.
func (f *chainFactory) RegisterConstructor(chainType string, constructor ChainConstructor) {
	f.constructorsMutex.Lock()
	defer f.constructorsMutex.Unlock()

	f.constructors[chainType] = constructor
}

// CreateChain creates a new chain client based on the configuration.
func (f *chainFactory) CreateChain(ctx context.Context, config *commontypes.ChainConfig, logger *logrus.Logger) (commontypes.ChainClient, error) {
	f.constructorsMutex.RLock()
	constructor, exists := f.constructors[config.ChainType.String()]
	f.constructorsMutex.RUnlock()

	if !exists {
		return nil, commonerrors.ErrChainNotFound
	}

	return constructor(ctx, config, logger)
}

// registerConstructors registers the blockchain constructors for the chain factory instance.
func (f *chainFactory) registerConstructors() {
	// Register EVM chain constructor with the factory.
	f.RegisterConstructor(commontypes.EVM.String(), func(ctx context.Context, config *commontypes.ChainConfig, logger *logrus.Logger) (commontypes.ChainClient, error) {
		return evm.NewEvmChain(ctx, config, logger)
	})
}
