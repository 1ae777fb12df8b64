package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/common/types"
	"github.com/FusionCross/resolver-lib/settlement"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

// stubSettler returns canned results or errors for both operations.
type stubSettler struct {
	deployRes *settlement.DeployResult
	deployErr error
	revealRes *settlement.RevealResult
	revealErr error
}

func (s *stubSettler) DeployEscrows(context.Context, *settlement.DeployRequest) (*settlement.DeployResult, error) {
	return s.deployRes, s.deployErr
}

func (s *stubSettler) RevealAndWithdraw(context.Context, *settlement.RevealRequest) (*settlement.RevealResult, error) {
	return s.revealRes, s.revealErr
}

// stubStore serves a single order by hash.
type stubStore struct {
	order   *types.Order
	findErr error
}

func (s *stubStore) Create(context.Context, *types.Order) error { return nil }

func (s *stubStore) FindByID(context.Context, string) (*types.Order, error) {
	return nil, errors.New("not implemented")
}

func (s *stubStore) FindByHash(_ context.Context, orderHash string) (*types.Order, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.order != nil && s.order.OrderHash == orderHash {
		cp := *s.order
		return &cp, nil
	}
	return nil, nil
}

func (s *stubStore) UpdateStatus(context.Context, string, types.OrderStatus, string, string) error {
	return nil
}

func (s *stubStore) Update(context.Context, *types.Order) error { return nil }

func (s *stubStore) List(context.Context, *types.OrderFilter) ([]*types.Order, error) {
	return nil, nil
}

func testServer(settler Settler, store types.OrderStore) *Server {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewServer(":0", settler, store, logger)
}

func doRequest(s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)
	return rec
}

func sampleOrder() *types.Order {
	return &types.Order{
		ID:        "11111111-1111-1111-1111-111111111111",
		CreatedAt: time.Unix(1_700_000_000, 0).UTC(),
		Status:    types.StatusPendingSecret,
		OrderHash: "0x7777777777777777777777777777777777777777777777777777777777777777",
		Secret:    "0x4242424242424242424242424242424242424242424242424242424242424242",
		Transactions: types.OrderTransactions{
			OrderFill: &types.TransactionRecord{
				TxHash:  "0xabc",
				ChainID: 11155111,
			},
		},
	}
}

func TestHandleOrderSuccess(t *testing.T) {
	ord := sampleOrder()
	settler := &stubSettler{
		deployRes: &settlement.DeployResult{
			Order:            ord,
			SrcImmutablesRaw: []byte{0x01, 0x02},
			SrcImmutablesSum: common.HexToHash("0xaa"),
			DstImmutablesRaw: []byte{0x03, 0x04},
			DstImmutablesSum: common.HexToHash("0xbb"),
			DstDeployedAt:    time.Unix(1_700_000_100, 0).UTC(),
		},
	}

	rec := doRequest(testServer(settler, &stubStore{}), http.MethodPost, "/order", &orderRequest{})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp orderResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "escrow_deployed", resp.Status)
	require.Equal(t, "0x0102", resp.SrcImmutablesData)
	require.Equal(t, "0x0304", resp.DstImmutablesData)
	require.Equal(t, common.HexToHash("0xaa").Hex(), resp.SrcImmutablesHash)
	require.NotNil(t, resp.Transactions.OrderFill)
}

func TestHandleOrderErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation", errors.Wrap(commonerrors.ErrValidation, "bad amount"), http.StatusBadRequest},
		{"conflict", errors.Wrap(commonerrors.ErrConflict, "duplicate"), http.StatusConflict},
		{"chain failure", errors.Wrap(commonerrors.ErrTimeout, "deploy"), http.StatusInternalServerError},
		{"revert", commonerrors.NewTransactionFailed("0xdead", "reverted"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settler := &stubSettler{deployErr: tt.err}
			rec := doRequest(testServer(settler, &stubStore{}), http.MethodPost, "/order", &orderRequest{})
			require.Equal(t, tt.wantStatus, rec.Code)

			var resp errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			require.NotEmpty(t, resp.Error)
		})
	}
}

func TestHandleOrderMalformedBody(t *testing.T) {
	s := testServer(&stubSettler{}, &stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/order", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	s.httpSrv.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSecretRevealSuccess(t *testing.T) {
	ord := sampleOrder()
	ord.Status = types.StatusCompleted
	ord.Message = "settlement completed"

	settler := &stubSettler{
		revealRes: &settlement.RevealResult{
			Order:            ord,
			SrcEscrowAddress: common.HexToAddress("0x01"),
			DstEscrowAddress: common.HexToAddress("0x02"),
		},
	}

	rec := doRequest(testServer(settler, &stubStore{}), http.MethodPost, "/order/secret-reveal", &revealRequest{})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp revealResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "completed", resp.Status)
	require.Equal(t, common.HexToAddress("0x01").Hex(), resp.SrcEscrowAddress)
	require.Equal(t, "settlement completed", resp.Message)
}

func TestHandleSecretRevealNotFound(t *testing.T) {
	settler := &stubSettler{revealErr: errors.Wrap(commonerrors.ErrOrderNotFound, "no order")}
	rec := doRequest(testServer(settler, &stubStore{}), http.MethodPost, "/order/secret-reveal", &revealRequest{})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleOrderLookup(t *testing.T) {
	ord := sampleOrder()
	store := &stubStore{order: ord}

	rec := doRequest(testServer(&stubSettler{}, store), http.MethodGet, "/order/"+ord.OrderHash, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.Order
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, ord.ID, resp.ID)
	require.Equal(t, ord.OrderHash, resp.OrderHash)
	// The secret never leaves through the lookup surface.
	require.Empty(t, resp.Secret)
}

func TestHandleOrderLookupNotFound(t *testing.T) {
	rec := doRequest(testServer(&stubSettler{}, &stubStore{}), http.MethodGet, "/order/0x1234", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
