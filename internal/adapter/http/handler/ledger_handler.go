package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/moneyflow/ledger/internal/adapter/http/dto"
	"github.com/moneyflow/ledger/internal/domain"
)

// LedgerHandler handles journal-entry HTTP requests.
type LedgerHandler struct {
	units   UnitFactory
	retrier Retrier
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(units UnitFactory, retrier Retrier) *LedgerHandler {
	return &LedgerHandler{units: units, retrier: retrier}
}

// Create posts a caller-assembled journal entry.
func (h *LedgerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateJournalEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	cmd, err := req.ToCommand()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid journal entry", err.Error())
		return
	}

	ctx := r.Context()

	var journal *domain.JournalEntry
	err = h.retrier.Retry(ctx, func() error {
		unit := h.units()
		defer unit.UoW.Dispose(ctx)

		return unit.UoW.Execute(ctx, func(ctx context.Context) error {
			var opErr error
			journal, opErr = unit.Ledger.RecordJournalEntry(ctx, unit.UoW, cmd)
			return opErr
		})
	})
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to create journal entry", err.Error())

		return
	}

	writeJSON(w, http.StatusCreated, dto.FromJournalEntry(journal))
}

// Get retrieves a journal entry by ID.
func (h *LedgerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing journal entry ID", "")
		return
	}

	unit := h.units()
	journal, err := unit.Ledger.GetJournalEntry(r.Context(), id)
	if err != nil {
		status := mapDomainError(err)
		writeError(w, status, "failed to get journal entry", err.Error())

		return
	}

	writeJSON(w, http.StatusOK, dto.FromJournalEntry(journal))
}
