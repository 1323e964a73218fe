package usecase

import (
	"context"
	"time"

	"github.com/moneyflow/ledger/internal/domain"
)

// Transaction represents a database transaction with savepoint support.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Savepoint(ctx context.Context, name string) error
	ReleaseSavepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
}

// TransactionManager handles transaction lifecycle.
type TransactionManager interface {
	Begin(ctx context.Context) (Transaction, error)
}

// TransactionalRepository is bound to and unbound from the active
// transaction by the UnitOfWork.
type TransactionalRepository interface {
	SetConnection(tx Transaction)
	ClearConnection()
}

// JournalRepository defines data access for journal entries and their
// ledger entries.
type JournalRepository interface {
	TransactionalRepository
	Save(ctx context.Context, journal *domain.JournalEntry) error
	Update(ctx context.Context, journal *domain.JournalEntry) error
	GetByID(ctx context.Context, id string) (*domain.JournalEntry, error)
	GetByTransactionID(ctx context.Context, transactionID string) ([]*domain.JournalEntry, error)
}

// EventStore persists domain events. AppendBatch is invoked once per commit,
// inside the same transaction as the state change the events describe.
type EventStore interface {
	AppendBatch(ctx context.Context, tx Transaction, events []domain.DomainEvent) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MetricsRecorder receives ledger operation metrics. Injected so services
// never touch process-wide registries directly.
type MetricsRecorder interface {
	JournalPosted(currency string, amount float64)
	JournalReversed()
	TransactionProcessed(transactionType string)
	CommitSucceeded(duration time.Duration)
	CommitFailed()
	RollbackIssued()
}
