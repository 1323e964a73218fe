package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/moneyflow/ledger/internal/domain"
)

type fakeTx struct {
	committed  bool
	rolledBack bool
	commitErr  error
	savepoints []string
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	t.rolledBack = true
	return nil
}

func (t *fakeTx) Savepoint(ctx context.Context, name string) error {
	t.savepoints = append(t.savepoints, name)
	return nil
}

func (t *fakeTx) ReleaseSavepoint(ctx context.Context, name string) error { return nil }

func (t *fakeTx) RollbackToSavepoint(ctx context.Context, name string) error { return nil }

type fakeTxManager struct {
	begun    int
	beginErr error
	lastTx   *fakeTx
	nextTx   *fakeTx
}

func (m *fakeTxManager) Begin(ctx context.Context) (Transaction, error) {
	if m.beginErr != nil {
		return nil, m.beginErr
	}

	m.begun++
	tx := m.nextTx
	if tx == nil {
		tx = &fakeTx{}
	}
	m.lastTx = tx

	return tx, nil
}

type fakeEventStore struct {
	appendCalls int
	appended    []domain.DomainEvent
	appendErr   error
	appendedTx  Transaction
}

func (s *fakeEventStore) AppendBatch(ctx context.Context, tx Transaction, events []domain.DomainEvent) error {
	if s.appendErr != nil {
		return s.appendErr
	}

	s.appendCalls++
	s.appendedTx = tx
	s.appended = append(s.appended, events...)

	return nil
}

type seqIDGen struct{ n int }

func (g *seqIDGen) Generate() string {
	g.n++
	return fmt.Sprintf("id-%d", g.n)
}

type fakeRepo struct {
	bound   Transaction
	cleared int
}

func (r *fakeRepo) SetConnection(tx Transaction) { r.bound = tx }
func (r *fakeRepo) ClearConnection()             { r.bound = nil; r.cleared++ }

type nopMetrics struct{}

func (nopMetrics) JournalPosted(currency string, amount float64) {}
func (nopMetrics) JournalReversed()                              {}
func (nopMetrics) TransactionProcessed(txType string)            {}
func (nopMetrics) CommitSucceeded(d time.Duration)               {}
func (nopMetrics) CommitFailed()                                 {}
func (nopMetrics) RollbackIssued()                               {}

func newTestUoW(txm *fakeTxManager, store *fakeEventStore) *UnitOfWork {
	return NewUnitOfWork(txm, store, &seqIDGen{}, zerolog.Nop(), nopMetrics{})
}

func someEvent() domain.DomainEvent {
	return domain.NewDomainEvent("journal_entry.posted", "JE-1", "journal_entry", "user-1", map[string]any{"k": "v"})
}

func TestUnitOfWork_Lifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("begin commit", func(t *testing.T) {
		txm := &fakeTxManager{}
		store := &fakeEventStore{}
		uow := newTestUoW(txm, store)

		if uow.Status() != UnitOfWorkNotStarted {
			t.Fatalf("Status = %q, want NOT_STARTED", uow.Status())
		}

		if err := uow.Begin(ctx); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if uow.Status() != UnitOfWorkActive {
			t.Errorf("Status = %q, want ACTIVE", uow.Status())
		}
		if uow.ID() == "" {
			t.Error("ID must be assigned at Begin")
		}

		if err := uow.Commit(ctx); err != nil {
			t.Fatalf("Commit: %v", err)
		}
		if uow.Status() != UnitOfWorkCommitted {
			t.Errorf("Status = %q, want COMMITTED", uow.Status())
		}
		if !txm.lastTx.committed {
			t.Error("underlying transaction not committed")
		}
		if txm.begun != 1 {
			t.Errorf("Begin called %d times, want 1", txm.begun)
		}
	})

	t.Run("double begin rejected", func(t *testing.T) {
		uow := newTestUoW(&fakeTxManager{}, &fakeEventStore{})

		if err := uow.Begin(ctx); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if err := uow.Begin(ctx); !errors.Is(err, ErrTransactionAlreadyActive) {
			t.Errorf("expected ErrTransactionAlreadyActive, got %v", err)
		}
	})

	t.Run("commit without begin rejected", func(t *testing.T) {
		uow := newTestUoW(&fakeTxManager{}, &fakeEventStore{})

		if err := uow.Commit(ctx); !errors.Is(err, ErrNothingToCommit) {
			t.Errorf("expected ErrNothingToCommit, got %v", err)
		}
	})

	t.Run("rollback without begin rejected", func(t *testing.T) {
		uow := newTestUoW(&fakeTxManager{}, &fakeEventStore{})

		if err := uow.Rollback(ctx); !errors.Is(err, ErrNothingToRollback) {
			t.Errorf("expected ErrNothingToRollback, got %v", err)
		}
	})

	t.Run("rollback clears state", func(t *testing.T) {
		txm := &fakeTxManager{}
		uow := newTestUoW(txm, &fakeEventStore{})
		repo := &fakeRepo{}
		uow.RegisterRepository(repo)

		if err := uow.Begin(ctx); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		uow.TrackChange("JE-1", "snapshot", ChangeTypeCreated)
		uow.AddDomainEvent(someEvent())

		if err := uow.Rollback(ctx); err != nil {
			t.Fatalf("Rollback: %v", err)
		}

		if uow.Status() != UnitOfWorkRolledBack {
			t.Errorf("Status = %q, want ROLLED_BACK", uow.Status())
		}
		if !txm.lastTx.rolledBack {
			t.Error("underlying transaction not rolled back")
		}
		if repo.bound != nil || repo.cleared == 0 {
			t.Error("repository connection not cleared")
		}
		if len(uow.TrackedChanges()) != 0 {
			t.Error("tracked changes must be cleared")
		}
		if len(uow.BufferedEvents()) != 0 {
			t.Error("buffered events must be cleared")
		}
	})
}

func TestUnitOfWork_RepositoryBinding(t *testing.T) {
	ctx := context.Background()

	t.Run("registered before begin", func(t *testing.T) {
		txm := &fakeTxManager{}
		uow := newTestUoW(txm, &fakeEventStore{})
		repo := &fakeRepo{}
		uow.RegisterRepository(repo)

		if repo.bound != nil {
			t.Error("repository must not be bound before Begin")
		}

		if err := uow.Begin(ctx); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		if repo.bound != Transaction(txm.lastTx) {
			t.Error("repository not bound to the active transaction")
		}
	})

	t.Run("registered while active binds immediately", func(t *testing.T) {
		txm := &fakeTxManager{}
		uow := newTestUoW(txm, &fakeEventStore{})

		if err := uow.Begin(ctx); err != nil {
			t.Fatalf("Begin: %v", err)
		}

		repo := &fakeRepo{}
		uow.RegisterRepository(repo)
		if repo.bound != Transaction(txm.lastTx) {
			t.Error("late-registered repository not bound")
		}
	})
}

func TestUnitOfWork_TrackChange(t *testing.T) {
	uow := newTestUoW(&fakeTxManager{}, &fakeEventStore{})

	uow.TrackChange("JE-1", "v1", ChangeTypeCreated)
	uow.TrackChange("JE-1", "v2", ChangeTypeCreated)
	uow.TrackChange("JE-1", "v3", ChangeTypeUpdated)

	changes := uow.TrackedChanges()
	if len(changes) != 2 {
		t.Fatalf("expected 2 tracked changes, got %d", len(changes))
	}

	for _, change := range changes {
		if change.ChangeType == ChangeTypeCreated && change.Snapshot != "v2" {
			t.Errorf("created snapshot = %v, want last write v2", change.Snapshot)
		}
	}
}

func TestUnitOfWork_CommitAppendsEventsInsideTransaction(t *testing.T) {
	ctx := context.Background()
	txm := &fakeTxManager{}
	store := &fakeEventStore{}
	uow := newTestUoW(txm, store)

	if err := uow.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	uow.AddDomainEvent(someEvent())
	uow.AddDomainEvent(someEvent())

	buffered := uow.BufferedEvents()
	if len(buffered) != 2 {
		t.Fatalf("expected 2 buffered events, got %d", len(buffered))
	}
	for _, b := range buffered {
		if b.TransactionID != uow.ID() {
			t.Errorf("buffered event stamped %q, want %q", b.TransactionID, uow.ID())
		}
	}

	if err := uow.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if store.appendCalls != 1 {
		t.Errorf("AppendBatch called %d times, want 1", store.appendCalls)
	}
	if len(store.appended) != 2 {
		t.Errorf("appended %d events, want 2", len(store.appended))
	}
	if store.appendedTx != Transaction(txm.lastTx) {
		t.Error("events must be appended on the same transaction being committed")
	}
	if !txm.lastTx.committed {
		t.Error("transaction not committed")
	}
}

func TestUnitOfWork_CommitFailureRollsBack(t *testing.T) {
	ctx := context.Background()

	t.Run("append failure", func(t *testing.T) {
		txm := &fakeTxManager{}
		store := &fakeEventStore{appendErr: errors.New("outbox insert failed")}
		uow := newTestUoW(txm, store)

		if err := uow.Begin(ctx); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		uow.AddDomainEvent(someEvent())

		err := uow.Commit(ctx)
		if err == nil || err.Error() != "outbox insert failed" {
			t.Fatalf("Commit error = %v, want the append error", err)
		}

		if uow.Status() != UnitOfWorkRolledBack {
			t.Errorf("Status = %q, want ROLLED_BACK", uow.Status())
		}
		if txm.lastTx.committed {
			t.Error("transaction must not commit when the event append fails")
		}
		if !txm.lastTx.rolledBack {
			t.Error("transaction must roll back when the event append fails")
		}
	})

	t.Run("commit failure", func(t *testing.T) {
		commitErr := errors.New("serialization failure")
		txm := &fakeTxManager{nextTx: &fakeTx{commitErr: commitErr}}
		store := &fakeEventStore{}
		uow := newTestUoW(txm, store)

		if err := uow.Begin(ctx); err != nil {
			t.Fatalf("Begin: %v", err)
		}
		uow.AddDomainEvent(someEvent())

		if err := uow.Commit(ctx); !errors.Is(err, commitErr) {
			t.Fatalf("Commit error = %v, want %v", err, commitErr)
		}

		if uow.Status() != UnitOfWorkRolledBack {
			t.Errorf("Status = %q, want ROLLED_BACK", uow.Status())
		}
		if !txm.lastTx.rolledBack {
			t.Error("transaction must roll back after a failed commit")
		}
		if len(uow.BufferedEvents()) != 0 {
			t.Error("buffered events must be discarded after rollback")
		}
	})
}

func TestUnitOfWork_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		txm := &fakeTxManager{}
		uow := newTestUoW(txm, &fakeEventStore{})

		ran := false
		err := uow.Execute(ctx, func(ctx context.Context) error {
			ran = true
			return nil
		})
		if err != nil {
			t.Fatalf("Execute: %v", err)
		}
		if !ran {
			t.Error("operation did not run")
		}
		if txm.begun != 1 {
			t.Errorf("Begin called %d times, want exactly 1", txm.begun)
		}
		if !txm.lastTx.committed || txm.lastTx.rolledBack {
			t.Error("expected exactly one commit and no rollback")
		}
	})

	t.Run("rolls back on operation error", func(t *testing.T) {
		txm := &fakeTxManager{}
		uow := newTestUoW(txm, &fakeEventStore{})

		opErr := errors.New("domain rejected")
		err := uow.Execute(ctx, func(ctx context.Context) error {
			return opErr
		})
		if !errors.Is(err, opErr) {
			t.Fatalf("Execute error = %v, want %v", err, opErr)
		}
		if txm.lastTx.committed {
			t.Error("transaction must not commit after an operation error")
		}
		if !txm.lastTx.rolledBack {
			t.Error("transaction must roll back after an operation error")
		}
	})
}

func TestUnitOfWork_Savepoints(t *testing.T) {
	ctx := context.Background()
	txm := &fakeTxManager{}
	uow := newTestUoW(txm, &fakeEventStore{})

	if err := uow.Savepoint(ctx, "sp1"); !errors.Is(err, ErrNoActiveTransaction) {
		t.Errorf("expected ErrNoActiveTransaction, got %v", err)
	}

	if err := uow.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := uow.Savepoint(ctx, "sp1"); err != nil {
		t.Fatalf("Savepoint: %v", err)
	}
	if err := uow.ReleaseSavepoint(ctx, "sp1"); err != nil {
		t.Fatalf("ReleaseSavepoint: %v", err)
	}
	if err := uow.RollbackToSavepoint(ctx, "sp1"); err != nil {
		t.Fatalf("RollbackToSavepoint: %v", err)
	}

	if len(txm.lastTx.savepoints) != 1 || txm.lastTx.savepoints[0] != "sp1" {
		t.Errorf("savepoints = %v", txm.lastTx.savepoints)
	}
}

func TestUnitOfWork_Dispose(t *testing.T) {
	ctx := context.Background()
	txm := &fakeTxManager{}
	uow := newTestUoW(txm, &fakeEventStore{})
	repo := &fakeRepo{}
	uow.RegisterRepository(repo)

	if err := uow.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	uow.AddDomainEvent(someEvent())

	uow.Dispose(ctx)
	if uow.Status() != UnitOfWorkRolledBack {
		t.Errorf("Status = %q, want ROLLED_BACK", uow.Status())
	}
	if !txm.lastTx.rolledBack {
		t.Error("active transaction must roll back on dispose")
	}
	if repo.bound != nil {
		t.Error("repository must be unbound on dispose")
	}

	// Idempotent.
	uow.Dispose(ctx)
	uow.Dispose(ctx)
}

func TestUnitOfWork_Connection(t *testing.T) {
	ctx := context.Background()
	txm := &fakeTxManager{}
	uow := newTestUoW(txm, &fakeEventStore{})

	if _, err := uow.Connection(); !errors.Is(err, ErrNoActiveTransaction) {
		t.Errorf("expected ErrNoActiveTransaction, got %v", err)
	}

	if err := uow.Begin(ctx); err != nil {
		t.Fatalf("Begin: %v", err)
	}

	conn, err := uow.Connection()
	if err != nil {
		t.Fatalf("Connection: %v", err)
	}
	if conn != Transaction(txm.lastTx) {
		t.Error("Connection must return the active transaction")
	}
}
