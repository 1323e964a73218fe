package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/moneyflow/ledger/internal/domain"
)

// Unit of work state errors. Calling Begin while active, or Commit/Rollback
// outside an active transaction, is a programming error and fails
// synchronously.
var (
	ErrTransactionAlreadyActive = errors.New("transaction already active")
	ErrNoActiveTransaction      = errors.New("No active transaction")
	ErrNothingToCommit          = errors.New("No active transaction to commit")
	ErrNothingToRollback        = errors.New("No active transaction to rollback")
)

// UnitOfWorkStatus is the lifecycle state of a unit of work.
type UnitOfWorkStatus string

const (
	UnitOfWorkNotStarted UnitOfWorkStatus = "NOT_STARTED"
	UnitOfWorkActive     UnitOfWorkStatus = "ACTIVE"
	UnitOfWorkCommitted  UnitOfWorkStatus = "COMMITTED"
	UnitOfWorkRolledBack UnitOfWorkStatus = "ROLLED_BACK"
)

// ChangeType classifies a tracked entity change.
type ChangeType string

const (
	ChangeTypeCreated ChangeType = "created"
	ChangeTypeUpdated ChangeType = "updated"
	ChangeTypeDeleted ChangeType = "deleted"
)

type changeKey struct {
	changeType ChangeType
	entityID   string
}

// TrackedChange is the latest snapshot registered for one (changeType,
// entityID) pair.
type TrackedChange struct {
	EntityID   string
	ChangeType ChangeType
	Snapshot   any
	TrackedAt  time.Time
}

// BufferedEvent is a domain event waiting for commit, stamped with its
// insertion time and the owning transaction's identifier.
type BufferedEvent struct {
	Event         domain.DomainEvent
	TransactionID string
	BufferedAt    time.Time
}

// UnitOfWork coordinates persistence, change tracking, and atomic domain
// event publication for one logical ledger operation. Buffered events are
// appended to the event store inside the same database transaction as the
// tracked changes, so both commit or fail together (transactional outbox).
//
// A UnitOfWork is not safe for concurrent use; create one per operation and
// discard it after Commit, Rollback, or Dispose.
type UnitOfWork struct {
	txManager  TransactionManager
	eventStore EventStore
	idGen      IDGenerator
	logger     zerolog.Logger
	metrics    MetricsRecorder

	id      string
	status  UnitOfWorkStatus
	tx      Transaction
	repos   []TransactionalRepository
	changes map[changeKey]TrackedChange
	events  []BufferedEvent
}

// NewUnitOfWork creates a unit of work in NOT_STARTED state.
func NewUnitOfWork(
	txManager TransactionManager,
	eventStore EventStore,
	idGen IDGenerator,
	logger zerolog.Logger,
	metrics MetricsRecorder,
) *UnitOfWork {
	return &UnitOfWork{
		txManager:  txManager,
		eventStore: eventStore,
		idGen:      idGen,
		logger:     logger,
		metrics:    metrics,
		status:     UnitOfWorkNotStarted,
		changes:    make(map[changeKey]TrackedChange),
	}
}

// ID returns the identifier of the current logical transaction. Empty until
// Begin has been called.
func (u *UnitOfWork) ID() string {
	return u.id
}

// Status returns the current lifecycle state.
func (u *UnitOfWork) Status() UnitOfWorkStatus {
	return u.status
}

// Begin opens the underlying transaction and binds it to every registered
// repository.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.status == UnitOfWorkActive {
		return ErrTransactionAlreadyActive
	}

	tx, err := u.txManager.Begin(ctx)
	if err != nil {
		return err
	}

	u.tx = tx
	u.id = u.idGen.Generate()
	u.status = UnitOfWorkActive

	for _, repo := range u.repos {
		repo.SetConnection(tx)
	}

	u.logger.Debug().Str("uow_id", u.id).Msg("transaction started")

	return nil
}

// RegisterRepository adds a repository to the managed set. If a transaction
// is already active the repository is bound immediately.
func (u *UnitOfWork) RegisterRepository(repo TransactionalRepository) {
	u.repos = append(u.repos, repo)

	if u.status == UnitOfWorkActive {
		repo.SetConnection(u.tx)
	}
}

// TrackChange registers the latest snapshot of an entity. Last write wins
// per (changeType, entityID).
func (u *UnitOfWork) TrackChange(entityID string, snapshot any, changeType ChangeType) {
	u.changes[changeKey{changeType: changeType, entityID: entityID}] = TrackedChange{
		EntityID:   entityID,
		ChangeType: changeType,
		Snapshot:   snapshot,
		TrackedAt:  time.Now().UTC(),
	}
}

// TrackedChanges returns the current change set.
func (u *UnitOfWork) TrackedChanges() []TrackedChange {
	changes := make([]TrackedChange, 0, len(u.changes))
	for _, change := range u.changes {
		changes = append(changes, change)
	}

	return changes
}

// AddDomainEvent buffers a domain event for publication at commit time.
func (u *UnitOfWork) AddDomainEvent(event domain.DomainEvent) {
	u.events = append(u.events, BufferedEvent{
		Event:         event,
		TransactionID: u.id,
		BufferedAt:    time.Now().UTC(),
	})
}

// BufferedEvents returns the events waiting for commit.
func (u *UnitOfWork) BufferedEvents() []BufferedEvent {
	events := make([]BufferedEvent, len(u.events))
	copy(events, u.events)

	return events
}

// Commit appends all buffered events to the event store and commits the
// underlying transaction. The append happens inside the transaction, so the
// events reach the store if and only if the commit succeeds. On commit
// failure a rollback is attempted and the original error is returned.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if u.status != UnitOfWorkActive {
		return ErrNothingToCommit
	}

	start := time.Now()

	if len(u.events) > 0 {
		events := make([]domain.DomainEvent, 0, len(u.events))
		for _, buffered := range u.events {
			events = append(events, buffered.Event)
		}

		if err := u.eventStore.AppendBatch(ctx, u.tx, events); err != nil {
			u.logger.Error().Err(err).Str("uow_id", u.id).Msg("event store append failed, rolling back")
			u.abort(ctx)
			u.metrics.CommitFailed()

			return err
		}
	}

	if err := u.tx.Commit(ctx); err != nil {
		u.logger.Error().Err(err).Str("uow_id", u.id).Msg("commit failed, rolling back")
		u.abort(ctx)
		u.metrics.CommitFailed()

		return err
	}

	eventCount := len(u.events)
	u.cleanup()
	u.status = UnitOfWorkCommitted
	u.metrics.CommitSucceeded(time.Since(start))

	u.logger.Debug().
		Str("uow_id", u.id).
		Int("events", eventCount).
		Msg("transaction committed")

	return nil
}

// Rollback discards the underlying transaction, unbinds repositories, and
// clears tracked changes and buffered events.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	if u.status != UnitOfWorkActive {
		return ErrNothingToRollback
	}

	err := u.tx.Rollback(ctx)

	u.cleanup()
	u.status = UnitOfWorkRolledBack
	u.metrics.RollbackIssued()

	u.logger.Debug().Str("uow_id", u.id).Msg("transaction rolled back")

	return err
}

// Savepoint creates a named savepoint inside the active transaction.
func (u *UnitOfWork) Savepoint(ctx context.Context, name string) error {
	if u.status != UnitOfWorkActive {
		return ErrNoActiveTransaction
	}

	return u.tx.Savepoint(ctx, name)
}

// ReleaseSavepoint releases a named savepoint.
func (u *UnitOfWork) ReleaseSavepoint(ctx context.Context, name string) error {
	if u.status != UnitOfWorkActive {
		return ErrNoActiveTransaction
	}

	return u.tx.ReleaseSavepoint(ctx, name)
}

// RollbackToSavepoint undoes work back to a named savepoint without ending
// the transaction.
func (u *UnitOfWork) RollbackToSavepoint(ctx context.Context, name string) error {
	if u.status != UnitOfWorkActive {
		return ErrNoActiveTransaction
	}

	return u.tx.RollbackToSavepoint(ctx, name)
}

// Execute runs operation inside a begin/commit boundary. Any error from the
// operation triggers a rollback and is returned unchanged.
func (u *UnitOfWork) Execute(ctx context.Context, operation func(ctx context.Context) error) error {
	if err := u.Begin(ctx); err != nil {
		return err
	}

	if err := operation(ctx); err != nil {
		if rbErr := u.Rollback(ctx); rbErr != nil {
			u.logger.Error().Err(rbErr).Str("uow_id", u.id).Msg("rollback after failed operation also failed")
		}

		return err
	}

	return u.Commit(ctx)
}

// Dispose releases the unit of work. It rolls back a still-active
// transaction, unbinds repositories, and clears all buffers. Dispose is
// idempotent and never returns an error, which makes it safe in deferred
// cleanup regardless of current state.
func (u *UnitOfWork) Dispose(ctx context.Context) {
	if u.status == UnitOfWorkActive {
		if err := u.tx.Rollback(ctx); err != nil {
			u.logger.Warn().Err(err).Str("uow_id", u.id).Msg("rollback during dispose failed")
		}

		u.status = UnitOfWorkRolledBack
	}

	u.cleanup()
}

// Connection returns the active transactional resource.
func (u *UnitOfWork) Connection() (Transaction, error) {
	if u.status != UnitOfWorkActive {
		return nil, ErrNoActiveTransaction
	}

	return u.tx, nil
}

// abort attempts a rollback after a failed commit or event append. The
// rollback error is logged but not surfaced; the caller reports the
// original failure.
func (u *UnitOfWork) abort(ctx context.Context) {
	if err := u.tx.Rollback(ctx); err != nil {
		u.logger.Error().Err(err).Str("uow_id", u.id).Msg("rollback after failed commit also failed")
	}

	u.cleanup()
	u.status = UnitOfWorkRolledBack
}

func (u *UnitOfWork) cleanup() {
	for _, repo := range u.repos {
		repo.ClearConnection()
	}

	u.changes = make(map[changeKey]TrackedChange)
	u.events = nil
	u.tx = nil
}
