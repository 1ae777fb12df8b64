package escrow

import (
	"context"
	"math/big"
	"testing"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// stubChainClient satisfies types.ChainClient with canned log responses.
type stubChainClient struct {
	chainID uint64
	logs    []ethtypes.Log
	logsErr error
}

func (s *stubChainClient) Send(context.Context, common.Address, []byte, *big.Int) (*types.SendResult, error) {
	return nil, errors.New("not implemented")
}

func (s *stubChainClient) Call(context.Context, common.Address, []byte) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (s *stubChainClient) GetLogs(context.Context, ethereum.FilterQuery) ([]ethtypes.Log, error) {
	return s.logs, s.logsErr
}

func (s *stubChainClient) ChainID() uint64                { return s.chainID }
func (s *stubChainClient) SenderAddress() common.Address  { return testTaker }
func (s *stubChainClient) ExplorerTxLink(h string) string { return "https://example.org/tx/" + h }

// stubRegistry maps chain ids to stub clients.
type stubRegistry map[uint64]types.ChainClient

func (r stubRegistry) Add(context.Context, *types.ChainConfig) error { return nil }
func (r stubRegistry) Get(chainID uint64) types.ChainClient          { return r[chainID] }
func (r stubRegistry) Remove(chainID uint64)                         { delete(r, chainID) }

func deploymentLog(t *testing.T, c *Codec, imm types.Immutables, comp types.DstImmutablesComplement) ethtypes.Log {
	t.Helper()

	event := c.factoryABI.Events[srcEscrowCreatedEvent]
	data, err := event.Inputs.Pack(toTuple(imm), complementTuple{
		Maker:         comp.Maker,
		Amount:        comp.Amount,
		Token:         comp.Token,
		SafetyDeposit: comp.SafetyDeposit,
	})
	require.NoError(t, err)

	return ethtypes.Log{
		Address: testFactory,
		Topics:  []common.Hash{event.ID},
		Data:    data,
	}
}

func TestReadSourceDeployment(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)

	imm := testImmutables(t, c)
	comp, err := c.BuildDstComplement(testMaker, common.Address{}, big.NewInt(900), big.NewInt(7))
	require.NoError(t, err)

	client := &stubChainClient{
		chainID: 11155111,
		logs:    []ethtypes.Log{deploymentLog(t, c, imm, comp)},
	}
	reader := NewEventReader(stubRegistry{11155111: client}, c, logrus.New())

	got, gotComp, err := reader.ReadSourceDeployment(context.Background(), 11155111, testFactory, common.HexToHash("0x01"))
	require.NoError(t, err)

	// The decoded tuple must reproduce the emitted encoding exactly.
	wantRaw, err := c.EncodeImmutables(imm)
	require.NoError(t, err)
	gotRaw, err := c.EncodeImmutables(got)
	require.NoError(t, err)
	require.Equal(t, wantRaw, gotRaw)

	require.Equal(t, comp.Maker, gotComp.Maker)
	require.Equal(t, comp.Token, gotComp.Token)
	require.Zero(t, comp.Amount.Cmp(gotComp.Amount))
	require.Zero(t, comp.SafetyDeposit.Cmp(gotComp.SafetyDeposit))
}

func TestReadSourceDeploymentNoEvent(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)

	client := &stubChainClient{chainID: 11155111}
	reader := NewEventReader(stubRegistry{11155111: client}, c, logrus.New())

	_, _, err = reader.ReadSourceDeployment(context.Background(), 11155111, testFactory, common.HexToHash("0x01"))
	require.ErrorIs(t, err, commonerrors.ErrEventNotFound)
}

func TestReadSourceDeploymentAmbiguousEvent(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)

	imm := testImmutables(t, c)
	comp, err := c.BuildDstComplement(testMaker, common.Address{}, big.NewInt(900), big.NewInt(7))
	require.NoError(t, err)

	log := deploymentLog(t, c, imm, comp)
	client := &stubChainClient{
		chainID: 11155111,
		logs:    []ethtypes.Log{log, log},
	}
	reader := NewEventReader(stubRegistry{11155111: client}, c, logrus.New())

	// Two matching logs in one block is ambiguous, never first-wins.
	_, _, err = reader.ReadSourceDeployment(context.Background(), 11155111, testFactory, common.HexToHash("0x01"))
	require.ErrorIs(t, err, commonerrors.ErrEventNotFound)
}

func TestReadSourceDeploymentUnknownChain(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)

	reader := NewEventReader(stubRegistry{}, c, logrus.New())

	_, _, err = reader.ReadSourceDeployment(context.Background(), 42, testFactory, common.HexToHash("0x01"))
	require.ErrorIs(t, err, commonerrors.ErrChainNotFound)
}

func TestReadSourceDeploymentLogQueryError(t *testing.T) {
	c, err := NewCodec()
	require.NoError(t, err)

	client := &stubChainClient{chainID: 11155111, logsErr: errors.New("rpc down")}
	reader := NewEventReader(stubRegistry{11155111: client}, c, logrus.New())

	_, _, err = reader.ReadSourceDeployment(context.Background(), 11155111, testFactory, common.HexToHash("0x01"))
	require.ErrorContains(t, err, "rpc down")
}
