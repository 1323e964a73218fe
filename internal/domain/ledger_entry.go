package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntry is one signed debit or credit line against an account. It is
// owned exclusively by its parent JournalEntry.
type LedgerEntry struct {
	ID             string
	TransactionID  string
	AccountID      string
	AccountName    string
	AccountType    AccountType
	EntryType      EntryType
	Amount         Money
	Description    string
	ReferenceID    string
	ReferenceType  string
	Metadata       map[string]any
	JournalEntryID string
	PostedAt       time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewLedgerEntryParams carries the fields needed to construct a LedgerEntry.
type NewLedgerEntryParams struct {
	ID             string
	TransactionID  string
	AccountID      string
	AccountName    string
	AccountType    AccountType
	EntryType      EntryType
	Amount         Money
	Description    string
	ReferenceID    string
	ReferenceType  string
	Metadata       map[string]any
	JournalEntryID string
}

// NewLedgerEntry constructs a validated ledger entry.
func NewLedgerEntry(params NewLedgerEntryParams) (*LedgerEntry, error) {
	for _, check := range []struct {
		field string
		value string
	}{
		{"id", params.ID},
		{"transactionId", params.TransactionID},
		{"accountId", params.AccountID},
		{"accountName", params.AccountName},
	} {
		if err := ValidateRequired(check.field, check.value); err != nil {
			return nil, err
		}
	}

	if !params.AccountType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAccountType, params.AccountType)
	}

	if !params.EntryType.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEntryType, params.EntryType)
	}

	if !params.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: entry amount must be positive", ErrInvalidAmount)
	}

	if (params.ReferenceID == "") != (params.ReferenceType == "") {
		return nil, ErrInconsistentReference
	}

	now := time.Now().UTC()

	return &LedgerEntry{
		ID:             params.ID,
		TransactionID:  params.TransactionID,
		AccountID:      params.AccountID,
		AccountName:    params.AccountName,
		AccountType:    params.AccountType,
		EntryType:      params.EntryType,
		Amount:         params.Amount,
		Description:    params.Description,
		ReferenceID:    params.ReferenceID,
		ReferenceType:  params.ReferenceType,
		Metadata:       params.Metadata,
		JournalEntryID: params.JournalEntryID,
		PostedAt:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// SignedAmount returns the amount signed by the accounting equation:
// a DEBIT is positive for ASSET/EXPENSE accounts and negative for
// LIABILITY/EQUITY/REVENUE accounts; a CREDIT is the mirror image.
// Summing signed amounts across account types is therefore meaningful.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	positive := e.AccountType.DebitIncreases() == (e.EntryType == EntryTypeDebit)
	if positive {
		return e.Amount.Amount
	}

	return e.Amount.Amount.Neg()
}

// BalancesWith reports whether other offsets this entry exactly: same
// currency, equal amount, and opposite sides. Two debits (or two credits)
// never offset each other, whatever their account types.
func (e *LedgerEntry) BalancesWith(other *LedgerEntry) bool {
	if other == nil || e.Amount.Currency != other.Amount.Currency {
		return false
	}

	return e.EntryType == other.EntryType.Opposite() &&
		e.Amount.Amount.Equal(other.Amount.Amount)
}

// CreateReversingEntry returns a new entry that undoes this one: the entry
// type is flipped, amount and account are unchanged, and the entry belongs
// to newJournalEntryID. An empty description defaults to
// "Reversal of: {original description}".
func (e *LedgerEntry) CreateReversingEntry(newJournalEntryID, description string) (*LedgerEntry, error) {
	if description == "" {
		description = "Reversal of: " + e.Description
	}

	return NewLedgerEntry(NewLedgerEntryParams{
		ID:             newJournalEntryID + "-" + e.ID,
		TransactionID:  e.TransactionID,
		AccountID:      e.AccountID,
		AccountName:    e.AccountName,
		AccountType:    e.AccountType,
		EntryType:      e.EntryType.Opposite(),
		Amount:         e.Amount,
		Description:    description,
		ReferenceID:    e.ReferenceID,
		ReferenceType:  e.ReferenceType,
		Metadata:       e.Metadata,
		JournalEntryID: newJournalEntryID,
	})
}

// EntryCriteria filters ledger entries. All set fields must match (AND).
type EntryCriteria struct {
	AccountType AccountType
	EntryType   EntryType
	ReferenceID string
	MinAmount   *Money
	MaxAmount   *Money
	From        *time.Time
	To          *time.Time
}

// Matches reports whether the entry satisfies every set criterion.
func (e *LedgerEntry) Matches(criteria EntryCriteria) bool {
	if criteria.AccountType != "" && e.AccountType != criteria.AccountType {
		return false
	}

	if criteria.EntryType != "" && e.EntryType != criteria.EntryType {
		return false
	}

	if criteria.ReferenceID != "" && e.ReferenceID != criteria.ReferenceID {
		return false
	}

	if criteria.MinAmount != nil && e.Amount.LessThan(*criteria.MinAmount) {
		return false
	}

	if criteria.MaxAmount != nil && e.Amount.GreaterThan(*criteria.MaxAmount) {
		return false
	}

	if criteria.From != nil && e.PostedAt.Before(*criteria.From) {
		return false
	}

	if criteria.To != nil && e.PostedAt.After(*criteria.To) {
		return false
	}

	return true
}
