package evm

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/FusionCross/resolver-lib/chains/evm/signer"
	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var receiptBlockHash = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")

// rpcStub answers the JSON-RPC methods waitReceipt exercises with canned
// responses. Successive eth_getTransactionReceipt calls pop the receipts
// queue; the last entry repeats.
type rpcStub struct {
	mu       sync.Mutex
	receipts []string
	header   string
	callErr  string
}

func (s *rpcStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.ID == nil {
			req.ID = json.RawMessage("1")
		}

		var result string
		switch req.Method {
		case "eth_getTransactionReceipt":
			s.mu.Lock()
			result = s.receipts[0]
			if len(s.receipts) > 1 {
				s.receipts = s.receipts[1:]
			}
			s.mu.Unlock()
		case "eth_getBlockByHash":
			result = s.header
		case "eth_call":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"error":{"code":3,"message":%q}}`, req.ID, s.callErr)
			return
		default:
			result = `"0x0"`
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, result)
	}
}

func emptyBloom() string {
	return "0x" + strings.Repeat("0", 512)
}

func receiptJSON(txHash common.Hash, status string) string {
	return fmt.Sprintf(`{
		"transactionHash":%q,
		"transactionIndex":"0x0",
		"blockHash":%q,
		"blockNumber":"0x1",
		"from":"0x0000000000000000000000000000000000000001",
		"to":"0x0000000000000000000000000000000000000002",
		"cumulativeGasUsed":"0x5208",
		"gasUsed":"0x5208",
		"contractAddress":null,
		"logs":[],
		"logsBloom":%q,
		"type":"0x0",
		"status":%q}`, txHash.Hex(), receiptBlockHash.Hex(), emptyBloom(), status)
}

func headerJSON() string {
	zero32 := common.Hash{}.Hex()
	return fmt.Sprintf(`{
		"parentHash":%q,"sha3Uncles":%q,
		"miner":"0x0000000000000000000000000000000000000000",
		"stateRoot":%q,"transactionsRoot":%q,"receiptsRoot":%q,
		"logsBloom":%q,"difficulty":"0x1","number":"0x1","gasLimit":"0x989680",
		"gasUsed":"0x5208","timestamp":"0x6553f100","extraData":"0x",
		"mixHash":%q,"nonce":"0x0000000000000000"}`,
		zero32, zero32, zero32, zero32, zero32, emptyBloom(), zero32)
}

func stubChain(t *testing.T, stub *rpcStub) (*evm, func()) {
	t.Helper()

	srv := httptest.NewServer(stub.handler())

	client, err := ethclient.Dial(srv.URL)
	require.NoError(t, err)

	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	txSigner, err := signer.NewSigner(key)
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	chain := &evm{
		config: &types.ChainConfig{Name: "stub", ChainID: 1},
		logger: logger,
		client: client,
		signer: txSigner,
	}

	return chain, func() {
		client.Close()
		srv.Close()
	}
}

func pendingTx() *ethtypes.Transaction {
	to := common.HexToAddress("0x0000000000000000000000000000000000000002")
	return ethtypes.NewTransaction(0, to, big.NewInt(0), 21_000, big.NewInt(1), nil)
}

func TestWaitReceiptRevert(t *testing.T) {
	tx := pendingTx()
	stub := &rpcStub{
		receipts: []string{receiptJSON(tx.Hash(), "0x0")},
		header:   headerJSON(),
		callErr:  "execution reverted: invalid secret",
	}
	chain, cleanup := stubChain(t, stub)
	defer cleanup()

	_, err := chain.waitReceipt(context.Background(), tx)
	require.Error(t, err)
	require.True(t, commonerrors.IsTransactionFailed(err))
	require.False(t, commonerrors.IsTimeout(err))

	// The revert reason replayed through eth_call rides on the error.
	var txErr *commonerrors.TransactionFailedError
	require.ErrorAs(t, err, &txErr)
	require.Equal(t, tx.Hash().Hex(), txErr.TxHash)
	require.Contains(t, txErr.Reason, "execution reverted")
}

func TestWaitReceiptPollsUntilIncluded(t *testing.T) {
	tx := pendingTx()
	stub := &rpcStub{
		receipts: []string{`null`, receiptJSON(tx.Hash(), "0x1")},
		header:   headerJSON(),
	}
	chain, cleanup := stubChain(t, stub)
	defer cleanup()

	res, err := chain.waitReceipt(context.Background(), tx)
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), res.TxHash)
	require.Equal(t, receiptBlockHash, res.BlockHash)
	require.Equal(t, uint64(1), res.BlockNumber)
	require.Equal(t, time.Unix(0x6553f100, 0).UTC(), res.BlockTimestamp)
}

func TestWaitReceiptTimeout(t *testing.T) {
	tx := pendingTx()
	stub := &rpcStub{receipts: []string{`null`}}
	chain, cleanup := stubChain(t, stub)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := chain.waitReceipt(ctx, tx)
	require.ErrorIs(t, err, commonerrors.ErrTimeout)
	require.False(t, commonerrors.IsTransactionFailed(err))
}

func TestWrapRPCError(t *testing.T) {
	chain := &evm{config: &types.ChainConfig{}}

	// A deadline carried by the error itself maps to the timeout sentinel.
	err := chain.wrapRPCError(context.Background(), context.DeadlineExceeded, "failed to send")
	require.ErrorIs(t, err, commonerrors.ErrTimeout)

	// So does an expired call context, whatever the transport reported.
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	err = chain.wrapRPCError(ctx, errors.New("connection reset"), "failed to send")
	require.ErrorIs(t, err, commonerrors.ErrTimeout)

	// Anything else passes through wrapped, never reclassified.
	err = chain.wrapRPCError(context.Background(), errors.New("nonce too low"), "failed to send")
	require.False(t, commonerrors.IsTimeout(err))
	require.Contains(t, err.Error(), "nonce too low")
	require.Contains(t, err.Error(), "failed to send")
}
