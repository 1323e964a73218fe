package domain

import "time"

// TransactionType is the business classification of a money movement.
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// Valid reports whether t is a supported transaction type.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}

	return false
}

// Transaction is the business-level movement submitted by external callers.
// The ledger core never mutates transactions; it maps them to journal
// entries.
type Transaction struct {
	ID          string
	UserID      string
	Type        TransactionType
	Amount      Money
	Description string
	Category    string
	Merchant    string
	Date        time.Time
	Metadata    map[string]any
}

// AccountMapping names the two accounts a transaction moves value between.
// The account roles per transaction type:
//
//	income:   debit target (ASSET),   credit source (REVENUE)
//	expense:  debit target (EXPENSE), credit source (ASSET)
//	transfer: debit target (ASSET),   credit source (ASSET)
type AccountMapping struct {
	SourceAccountID   string
	SourceAccountName string
	TargetAccountID   string
	TargetAccountName string
}
