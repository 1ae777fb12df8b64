package server

import (
	"encoding/json"
	"net/http"

	commonerrors "github.com/FusionCross/resolver-lib/common/errors"
	"github.com/FusionCross/resolver-lib/settlement"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

// handleOrder accepts a signed order and runs the deploy phase: fill the
// source order, deploy both escrows.
func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var body orderRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, errors.Wrap(commonerrors.ErrValidation, "malformed request body"))
		return
	}

	req := &settlement.DeployRequest{
		SwapState:        body.SwapState,
		Signature:        body.Signature,
		OrderHash:        body.OrderHash,
		HashLock:         body.HashLock,
		OrderBuild:       body.OrderBuild,
		TakerTraits:      body.TakerTraits,
		SrcSafetyDeposit: body.SrcSafetyDeposit,
		DstSafetyDeposit: body.Immutables.DstSafetyDeposit,
		TimeLocks:        body.Immutables.TimeLocks,
	}

	result, err := s.settler.DeployEscrows(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, &orderResponse{
		SrcEscrowEvent:    result.SrcEscrowEvent,
		DstDeployedAt:     result.DstDeployedAt,
		DstImmutablesData: hexutil.Encode(result.DstImmutablesRaw),
		DstImmutablesHash: result.DstImmutablesSum.Hex(),
		SrcImmutablesHash: result.SrcImmutablesSum.Hex(),
		SrcImmutablesData: hexutil.Encode(result.SrcImmutablesRaw),
		Transactions:      &result.Order.Transactions,
		Status:            "escrow_deployed",
		Message:           result.Order.Message,
	})
}

// handleSecretReveal accepts the revealed secret and runs the withdraw phase.
func (s *Server) handleSecretReveal(w http.ResponseWriter, r *http.Request) {
	var body revealRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, errors.Wrap(commonerrors.ErrValidation, "malformed request body"))
		return
	}

	req := &settlement.RevealRequest{
		SwapState:        body.SwapState,
		Secret:           body.Secret,
		SrcImmutablesRaw: body.SrcImmutablesData,
		DstImmutablesRaw: body.DstImmutablesData,
		SrcImmutablesSum: body.SrcImmutablesHash,
		DstImmutablesSum: body.DstImmutablesHash,
		UserAddress:      body.UserAddress,
	}

	result, err := s.settler.RevealAndWithdraw(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, &revealResponse{
		SrcEscrowAddress: result.SrcEscrowAddress.Hex(),
		DstEscrowAddress: result.DstEscrowAddress.Hex(),
		Transactions:     &result.Order.Transactions,
		Status:           "completed",
		Message:          result.Order.Message,
	})
}

// handleOrderLookup returns the stored order for an order hash, including
// the transaction links for each chain's explorer.
func (s *Server) handleOrderLookup(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]

	order, err := s.store.FindByHash(r.Context(), hash)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if order == nil {
		s.writeError(w, errors.Wrapf(commonerrors.ErrOrderNotFound, "order hash %s", hash))
		return
	}

	// The secret is part of the durable record for audit but is not a
	// lookup-surface field.
	redacted := *order
	redacted.Secret = ""
	s.writeJSON(w, http.StatusOK, &redacted)
}

// writeError maps the error taxonomy onto HTTP statuses. Anything outside
// the taxonomy is an internal failure.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, commonerrors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, commonerrors.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, commonerrors.ErrOrderNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.logger.WithError(err).Error("Request failed")
	}

	s.writeJSON(w, status, &errorResponse{
		Error:   http.StatusText(status),
		Details: err.Error(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
