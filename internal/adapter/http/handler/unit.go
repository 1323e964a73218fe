package handler

import (
	"context"

	"github.com/moneyflow/ledger/internal/usecase"
)

// Unit bundles a fresh unit of work with the services wired to it. Handlers
// build one per request so repository connections never leak across
// transactions.
type Unit struct {
	UoW    *usecase.UnitOfWork
	Ledger *usecase.TransactionLedgerService
}

// UnitFactory produces a per-request Unit.
type UnitFactory func() *Unit

// Retrier re-runs a whole unit of work on transient conflicts.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}
