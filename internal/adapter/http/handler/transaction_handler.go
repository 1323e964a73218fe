package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/moneyflow/ledger/internal/adapter/http/dto"
	"github.com/moneyflow/ledger/internal/usecase"
)

// TransactionHandler handles transaction-related HTTP requests.
type TransactionHandler struct {
	units   UnitFactory
	retrier Retrier
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(units UnitFactory, retrier Retrier) *TransactionHandler {
	return &TransactionHandler{units: units, retrier: retrier}
}

// Process books a business transaction into the ledger.
func (h *TransactionHandler) Process(w http.ResponseWriter, r *http.Request) {
	var req dto.ProcessTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	cmd, err := req.ToCommand()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid transaction", err.Error())
		return
	}

	ctx := r.Context()

	var result *usecase.ProcessTransactionResult
	err = h.retrier.Retry(ctx, func() error {
		unit := h.units()
		defer unit.UoW.Dispose(ctx)

		return unit.UoW.Execute(ctx, func(ctx context.Context) error {
			var opErr error
			result, opErr = unit.Ledger.ProcessTransaction(ctx, unit.UoW, cmd)
			return opErr
		})
	})
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to process transaction", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.FromProcessTransactionResult(result))
}

// Reverse reverses every posted journal entry of a transaction.
func (h *TransactionHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "id")
	if transactionID == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	var req dto.ReverseTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ctx := r.Context()

	var response dto.ReverseTransactionResponse
	err := h.retrier.Retry(ctx, func() error {
		unit := h.units()
		defer unit.UoW.Dispose(ctx)

		return unit.UoW.Execute(ctx, func(ctx context.Context) error {
			reversing, opErr := unit.Ledger.ReverseTransactionEntries(ctx, unit.UoW, transactionID, req.ReversedBy, req.Reason)
			if opErr != nil {
				return opErr
			}

			response = dto.FromReversals(transactionID, reversing)
			return nil
		})
	})
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to reverse transaction", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, response)
}

// Balance reports the balance status of a transaction's journal entries.
func (h *TransactionHandler) Balance(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "id")
	if transactionID == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ID", "")
		return
	}

	unit := h.units()
	result, err := unit.Ledger.ValidateTransactionBalance(r.Context(), transactionID)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to validate balance", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, result)
}
