package types

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

// ChainConfig holds the configuration for a specific chain implementation.
//
// Fields:
// - Name: the name of the chain.
// - ChainType: the type of the chain.
// - ChainID: the unique identifier for the chain.
// - RpcUrl: the URL for the chain's RPC endpoint.
// - TxType: the type of transactions supported by the chain.
// - PrivateKey: the private key for the resolver's signing identity.
// - EscrowFactory: the address of the escrow factory contract on this chain.
// - ExplorerUrl: the base URL of the chain's block explorer.
// - CallTimeout: the deadline applied to every remote call on this chain.
type ChainConfig struct {
	Name          string
	ChainType     ChainType
	ChainID       uint64
	RpcUrl        string
	TxType        uint64
	PrivateKey    string
	EscrowFactory string
	ExplorerUrl   string
	CallTimeout   time.Duration
}

// SendResult describes a transaction that has been submitted and confirmed
// exactly once.
//
// Fields:
// - TxHash: the transaction hash.
// - BlockHash: the hash of the including block.
// - BlockNumber: the number of the including block.
// - BlockTimestamp: the timestamp of the including block.
type SendResult struct {
	TxHash         common.Hash
	BlockHash      common.Hash
	BlockNumber    uint64
	BlockTimestamp time.Time
}

// TransactionSender submits signed transactions from the bound signer.
type TransactionSender interface {
	// Send submits a transaction and waits for one confirmation.
	//
	// Parameters:
	// - ctx: the context bounding the whole submit-and-confirm cycle.
	// - to: the recipient contract address.
	// - data: the call data.
	// - value: the native value attached to the transaction.
	//
	// Returns:
	// - *SendResult: the confirmed transaction details.
	// - error: TransactionFailed if the receipt indicates reversion, or a
	//   timeout/transport error otherwise. There is no implicit retry.
	Send(ctx context.Context, to common.Address, data []byte, value *big.Int) (*SendResult, error)
}

// ContractCaller performs read-only contract invocations.
type ContractCaller interface {
	// Call executes a read-only invocation against the given contract.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - to: the contract address.
	// - data: the call data.
	//
	// Returns:
	// - []byte: the raw return data.
	// - error: an error if the call fails.
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// LogReader reads event logs from the chain.
type LogReader interface {
	// GetLogs returns the logs matching the filter query.
	//
	// Parameters:
	// - ctx: the context for managing the request.
	// - query: the log filter, typically pinned to an exact block hash.
	//
	// Returns:
	// - []ethtypes.Log: the matching logs.
	// - error: an error if the query fails.
	GetLogs(ctx context.Context, query ethereum.FilterQuery) ([]ethtypes.Log, error)
}

// ChainClient combines the per-chain capabilities the settlement protocol
// needs. A client is bound to exactly one chain id and one signing identity
// and is stateless otherwise.
type ChainClient interface {
	TransactionSender
	ContractCaller
	LogReader

	// ChainID returns the chain id the client is bound to.
	ChainID() uint64

	// SenderAddress returns the address of the bound signing identity.
	SenderAddress() common.Address

	// ExplorerTxLink returns the block explorer link for a transaction hash.
	ExplorerTxLink(txHash string) string
}

// ChainRegistry manages the chain clients available to the orchestrator,
// keyed by chain id.
type ChainRegistry interface {
	// Add constructs and registers a client for the given configuration.
	//
	// Parameters:
	// - ctx: the context for managing the construction.
	// - config: the configuration for the chain to add.
	//
	// Returns:
	// - error: an error if adding the chain fails.
	Add(ctx context.Context, config *ChainConfig) error

	// Get retrieves a client from the registry by its chain id.
	//
	// Parameters:
	// - chainID: the unique identifier for the chain to retrieve.
	//
	// Returns:
	// - ChainClient: the registered client, or nil if none is registered.
	Get(chainID uint64) ChainClient

	// Remove removes a client from the registry by its chain id.
	Remove(chainID uint64)
}
