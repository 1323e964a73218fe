package domain

import "errors"

var (
	// Money errors
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeAmount   = errors.New("amount must not be negative")
	ErrNegativeResult   = errors.New("subtraction would produce a negative amount")
	ErrCurrencyMismatch = errors.New("operation requires identical currencies")
	ErrInvalidCurrency  = errors.New("invalid currency code")

	// Ledger entry errors
	ErrInvalidAccountType    = errors.New("invalid account type")
	ErrInvalidEntryType      = errors.New("invalid entry type")
	ErrInconsistentReference = errors.New("reference id and reference type must be set together")

	// Journal entry errors
	ErrCannotModifyPosted = errors.New("cannot modify posted/reversed journal entry")
	ErrEntryNotFound      = errors.New("ledger entry not found in journal entry")
	ErrAlreadyPosted      = errors.New("journal entry is already posted")
	ErrAlreadyReversed    = errors.New("journal entry is already reversed")
	ErrJournalNotPosted   = errors.New("only posted journal entries can be reversed")
	ErrTooFewEntries      = errors.New("journal entry must have at least 2 entries")
	ErrUnbalancedEntries  = errors.New("journal entry must be balanced before posting")
	ErrJournalNotFound    = errors.New("journal entry not found")

	// Transaction mapping errors
	ErrUnsupportedTransactionType = errors.New("unsupported transaction type")
)
