package evm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/FusionCross/resolver-lib/chains/evm/signer"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/FusionCross/resolver-lib/connectionmonitor"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// TxTypeLegacy represents the legacy transaction type.
	TxTypeLegacy = 0
	// TxTypeEIP1559 represents the EIP-1559 transaction type.
	TxTypeEIP1559 = 2
	// defaultCallTimeout bounds every remote call when the chain config does not override it.
	defaultCallTimeout = 60 * time.Second
	// receiptPollInterval is the interval between transaction receipt polls.
	receiptPollInterval = time.Second
)

// evm represents the EVM chain client implementation.
type evm struct {
	config *types.ChainConfig // Chain configuration.
	logger *logrus.Logger     // Logger for logging events.

	// Protected fields with their own mutexes.
	clientMutex sync.RWMutex      // Mutex for client.
	client      *ethclient.Client // Ethereum client.

	signerMutex sync.RWMutex  // Mutex for signer.
	signer      signer.Signer // Signer for signing transactions.

	monitorMutex sync.RWMutex                        // Mutex for connection monitor.
	monitor      connectionmonitor.ConnectionMonitor // Connection monitor.
}

// NewEvmChain creates a new EVM chain client bound to one chain id and one
// signing identity.
//
// Parameters:
// - ctx: the context for managing the construction.
// - config: the chain configuration. PrivateKey is required; a client
//   without a signer cannot submit settlement transactions.
// - logger: the logger for logging events.
//
// Returns:
// - types.ChainClient: a new EVM chain client instance.
// - error: an error if any issue occurs during creation.
func NewEvmChain(ctx context.Context, config *types.ChainConfig, logger *logrus.Logger) (types.ChainClient, error) {
	if config.PrivateKey == "" {
		return nil, errors.New("private key is required for settlement client")
	}

	client, err := ethclient.Dial(config.RpcUrl)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create client")
	}

	chain := &evm{
		config: config,
		logger: logger,
		client: client,
	}

	privKey, err := crypto.HexToECDSA(strings.TrimPrefix(config.PrivateKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}

	txSigner, err := signer.NewSigner(privKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create signer")
	}

	chain.signerMutex.Lock()
	chain.signer = txSigner
	chain.signerMutex.Unlock()

	if err := chain.initMonitor(ctx); err != nil {
		return nil, errors.Wrap(err, "failed to init connection monitor")
	}

	return chain, nil
}

// Close should be called when the chain client is no longer needed.
// It stops the connection monitor and closes the client.
func (e *evm) Close() {
	e.monitorMutex.Lock()
	if e.monitor != nil {
		e.monitor.Stop()
	}
	e.monitorMutex.Unlock()

	e.clientMutex.Lock()
	if e.client != nil {
		e.client.Close()
		e.client = nil
	}
	e.clientMutex.Unlock()
}

// ChainID returns the chain id the client is bound to.
func (e *evm) ChainID() uint64 {
	return e.config.ChainID
}

// SenderAddress returns the address of the bound signing identity.
func (e *evm) SenderAddress() common.Address {
	e.signerMutex.RLock()
	defer e.signerMutex.RUnlock()
	return e.signer.Address()
}

// ExplorerTxLink returns the block explorer link for a transaction hash.
func (e *evm) ExplorerTxLink(txHash string) string {
	base := strings.TrimSuffix(e.config.ExplorerUrl, "/")
	if base == "" {
		return txHash
	}
	return fmt.Sprintf("%s/tx/%s", base, txHash)
}

// callTimeout returns the per-call deadline for this chain.
func (e *evm) callTimeout() time.Duration {
	if e.config.CallTimeout > 0 {
		return e.config.CallTimeout
	}
	return defaultCallTimeout
}

// getClient returns the Ethereum client with thread-safe access.
func (e *evm) getClient() *ethclient.Client {
	e.clientMutex.RLock()
	defer e.clientMutex.RUnlock()
	return e.client
}

// initMonitor starts connection monitoring for the chain client.
func (e *evm) initMonitor(ctx context.Context) error {
	monitor := connectionmonitor.NewConnectionMonitor(e, e.logger, e.config.Name)

	e.monitorMutex.Lock()
	e.monitor = monitor
	e.monitorMutex.Unlock()

	return monitor.Start(ctx)
}

// CheckConnection checks if the RPC connection is alive.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if the client is not initialized or the chain does not respond.
func (e *evm) CheckConnection(ctx context.Context) error {
	client := e.getClient()
	if client == nil {
		return errors.New("client not initialized")
	}

	_, err := client.BlockNumber(ctx)
	return err
}

// Reconnect attempts to re-establish the RPC connection.
//
// Parameters:
// - ctx: the context for managing the request.
//
// Returns:
// - error: an error if dialing the RPC endpoint fails.
func (e *evm) Reconnect(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, e.config.RpcUrl)
	if err != nil {
		return errors.Wrap(err, "failed to reconnect to RPC endpoint")
	}

	e.clientMutex.Lock()
	if e.client != nil {
		e.client.Close()
	}
	e.client = client
	e.clientMutex.Unlock()

	e.logger.WithField("chain", e.config.Name).Info("Reconnected to RPC endpoint")
	return nil
}
