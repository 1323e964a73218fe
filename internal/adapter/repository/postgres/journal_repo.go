package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/moneyflow/ledger/internal/domain"
	"github.com/moneyflow/ledger/internal/usecase"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// JournalRepository implements usecase.JournalRepository on PostgreSQL.
// While bound to a unit of work it runs every statement on the active
// transaction; otherwise it falls back to the pool.
type JournalRepository struct {
	pool *pgxpool.Pool
	tx   usecase.Transaction
}

// NewJournalRepository creates a new JournalRepository.
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// SetConnection binds the repository to an active transaction.
func (r *JournalRepository) SetConnection(tx usecase.Transaction) {
	r.tx = tx
}

// ClearConnection unbinds the repository from its transaction.
func (r *JournalRepository) ClearConnection() {
	r.tx = nil
}

func (r *JournalRepository) conn() querier {
	if r.tx != nil {
		return r.tx.(*Tx).PgxTx()
	}

	return r.pool
}

const insertJournalSQL = `
INSERT INTO journal_entries (
	id, user_id, transaction_id, description, reference, status,
	total_amount, total_currency, posted_at, reversed_at, reversed_by,
	metadata, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const insertEntrySQL = `
INSERT INTO ledger_entries (
	id, journal_entry_id, transaction_id, account_id, account_name,
	account_type, entry_type, amount, currency, description,
	reference_id, reference_type, metadata, posted_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

// Save inserts a journal entry together with its ledger entries.
func (r *JournalRepository) Save(ctx context.Context, journal *domain.JournalEntry) error {
	conn := r.conn()

	metadata, err := json.Marshal(journal.Metadata)
	if err != nil {
		return fmt.Errorf("marshal journal metadata: %w", err)
	}

	_, err = conn.Exec(ctx, insertJournalSQL,
		journal.ID,
		journal.UserID,
		journal.TransactionID,
		journal.Description,
		nullableString(journal.Reference),
		string(journal.Status),
		journal.TotalAmount.Amount.String(),
		journal.TotalAmount.Currency,
		journal.PostedAt,
		journal.ReversedAt,
		nullableString(journal.ReversedBy),
		metadata,
		journal.CreatedAt,
		journal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert journal entry %s: %w", journal.ID, err)
	}

	for _, entry := range journal.Entries {
		entryMetadata, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("marshal entry metadata: %w", err)
		}

		_, err = conn.Exec(ctx, insertEntrySQL,
			entry.ID,
			entry.JournalEntryID,
			entry.TransactionID,
			entry.AccountID,
			entry.AccountName,
			string(entry.AccountType),
			string(entry.EntryType),
			entry.Amount.Amount.String(),
			entry.Amount.Currency,
			entry.Description,
			nullableString(entry.ReferenceID),
			nullableString(entry.ReferenceType),
			entryMetadata,
			entry.PostedAt,
			entry.CreatedAt,
			entry.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert ledger entry %s: %w", entry.ID, err)
		}
	}

	return nil
}

const updateJournalSQL = `
UPDATE journal_entries
SET status = $2, reversed_at = $3, reversed_by = $4, metadata = $5, updated_at = $6
WHERE id = $1`

// Update persists lifecycle changes of an existing journal entry. Ledger
// entries are immutable once written; only the journal row changes.
func (r *JournalRepository) Update(ctx context.Context, journal *domain.JournalEntry) error {
	metadata, err := json.Marshal(journal.Metadata)
	if err != nil {
		return fmt.Errorf("marshal journal metadata: %w", err)
	}

	tag, err := r.conn().Exec(ctx, updateJournalSQL,
		journal.ID,
		string(journal.Status),
		journal.ReversedAt,
		nullableString(journal.ReversedBy),
		metadata,
		journal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update journal entry %s: %w", journal.ID, err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrJournalNotFound
	}

	return nil
}

const selectJournalSQL = `
SELECT id, user_id, transaction_id, description, reference, status,
	total_amount::text, total_currency, posted_at, reversed_at, reversed_by,
	metadata, created_at, updated_at
FROM journal_entries`

// GetByID loads a journal entry and its ledger entries.
func (r *JournalRepository) GetByID(ctx context.Context, id string) (*domain.JournalEntry, error) {
	row := r.conn().QueryRow(ctx, selectJournalSQL+" WHERE id = $1", id)

	journal, err := scanJournal(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJournalNotFound
		}

		return nil, err
	}

	if err := r.loadEntries(ctx, journal); err != nil {
		return nil, err
	}

	return journal, nil
}

// GetByTransactionID loads every journal entry recorded for a transaction,
// oldest first.
func (r *JournalRepository) GetByTransactionID(ctx context.Context, transactionID string) ([]*domain.JournalEntry, error) {
	rows, err := r.conn().Query(ctx, selectJournalSQL+" WHERE transaction_id = $1 ORDER BY created_at, id", transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var journals []*domain.JournalEntry
	for rows.Next() {
		journal, err := scanJournal(rows)
		if err != nil {
			return nil, err
		}

		journals = append(journals, journal)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, journal := range journals {
		if err := r.loadEntries(ctx, journal); err != nil {
			return nil, err
		}
	}

	return journals, nil
}

const selectEntriesSQL = `
SELECT id, journal_entry_id, transaction_id, account_id, account_name,
	account_type, entry_type, amount::text, currency, description,
	reference_id, reference_type, metadata, posted_at, created_at, updated_at
FROM ledger_entries
WHERE journal_entry_id = $1
ORDER BY id`

func (r *JournalRepository) loadEntries(ctx context.Context, journal *domain.JournalEntry) error {
	rows, err := r.conn().Query(ctx, selectEntriesSQL, journal.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return err
		}

		journal.Entries = append(journal.Entries, entry)
	}

	return rows.Err()
}

func scanJournal(row pgx.Row) (*domain.JournalEntry, error) {
	var (
		journal     domain.JournalEntry
		reference   *string
		reversedBy  *string
		amount      string
		currency    string
		status      string
		rawMetadata []byte
	)

	err := row.Scan(
		&journal.ID,
		&journal.UserID,
		&journal.TransactionID,
		&journal.Description,
		&reference,
		&status,
		&amount,
		&currency,
		&journal.PostedAt,
		&journal.ReversedAt,
		&reversedBy,
		&rawMetadata,
		&journal.CreatedAt,
		&journal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	journal.Status = domain.JournalStatus(status)
	journal.Reference = derefString(reference)
	journal.ReversedBy = derefString(reversedBy)

	total, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse total amount %q: %w", amount, err)
	}
	journal.TotalAmount = domain.Money{Amount: total, Currency: currency}

	if len(rawMetadata) > 0 {
		if err := json.Unmarshal(rawMetadata, &journal.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal journal metadata: %w", err)
		}
	}
	if journal.Metadata == nil {
		journal.Metadata = make(map[string]any)
	}

	return &journal, nil
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	var (
		entry         domain.LedgerEntry
		accountType   string
		entryType     string
		amount        string
		currency      string
		referenceID   *string
		referenceType *string
		rawMetadata   []byte
		postedAt      time.Time
	)

	err := row.Scan(
		&entry.ID,
		&entry.JournalEntryID,
		&entry.TransactionID,
		&entry.AccountID,
		&entry.AccountName,
		&accountType,
		&entryType,
		&amount,
		&currency,
		&entry.Description,
		&referenceID,
		&referenceType,
		&rawMetadata,
		&postedAt,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.AccountType = domain.AccountType(accountType)
	entry.EntryType = domain.EntryType(entryType)
	entry.ReferenceID = derefString(referenceID)
	entry.ReferenceType = derefString(referenceType)
	entry.PostedAt = postedAt

	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("parse entry amount %q: %w", amount, err)
	}
	entry.Amount = domain.Money{Amount: value, Currency: currency}

	if len(rawMetadata) > 0 {
		if err := json.Unmarshal(rawMetadata, &entry.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal entry metadata: %w", err)
		}
	}

	return &entry, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}
