package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/moneyflow/ledger/internal/adapter/http/dto"
	"github.com/moneyflow/ledger/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrJournalNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyPosted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAlreadyReversed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrJournalNotPosted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrCannotModifyPosted):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrNegativeAmount),
		errors.Is(err, domain.ErrCurrencyMismatch),
		errors.Is(err, domain.ErrInvalidCurrency),
		errors.Is(err, domain.ErrInvalidAccountType),
		errors.Is(err, domain.ErrInvalidEntryType),
		errors.Is(err, domain.ErrInconsistentReference),
		errors.Is(err, domain.ErrTooFewEntries),
		errors.Is(err, domain.ErrUnbalancedEntries),
		errors.Is(err, domain.ErrUnsupportedTransactionType):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
