package dto

import (
	"fmt"
	"time"

	"github.com/moneyflow/ledger/internal/domain"
	"github.com/moneyflow/ledger/internal/usecase"
)

// LedgerEntryRequest is one line of a journal entry command.
type LedgerEntryRequest struct {
	AccountID     string         `json:"accountId"`
	AccountName   string         `json:"accountName"`
	AccountType   string         `json:"accountType"`
	EntryType     string         `json:"entryType"`
	Amount        string         `json:"amount"`
	Currency      string         `json:"currency"`
	Description   string         `json:"description,omitempty"`
	ReferenceID   string         `json:"referenceId,omitempty"`
	ReferenceType string         `json:"referenceType,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// CreateJournalEntryRequest is the direct journal command payload.
type CreateJournalEntryRequest struct {
	UserID        string               `json:"userId"`
	TransactionID string               `json:"transactionId"`
	Description   string               `json:"description"`
	Reference     string               `json:"reference,omitempty"`
	Metadata      map[string]any       `json:"metadata,omitempty"`
	Entries       []LedgerEntryRequest `json:"entries"`
}

// ToCommand converts the request into a usecase command.
func (r CreateJournalEntryRequest) ToCommand() (usecase.CreateJournalEntryCommand, error) {
	entries := make([]usecase.CreateLedgerEntryInput, 0, len(r.Entries))
	for i, e := range r.Entries {
		amount, err := domain.NewMoneyFromString(e.Amount, e.Currency)
		if err != nil {
			return usecase.CreateJournalEntryCommand{}, fmt.Errorf("entry %d: %w", i+1, err)
		}

		entries = append(entries, usecase.CreateLedgerEntryInput{
			AccountID:     e.AccountID,
			AccountName:   e.AccountName,
			AccountType:   domain.AccountType(e.AccountType),
			EntryType:     domain.EntryType(e.EntryType),
			Amount:        amount,
			Description:   e.Description,
			ReferenceID:   e.ReferenceID,
			ReferenceType: e.ReferenceType,
			Metadata:      e.Metadata,
		})
	}

	return usecase.CreateJournalEntryCommand{
		UserID:        r.UserID,
		TransactionID: r.TransactionID,
		Description:   r.Description,
		Reference:     r.Reference,
		Metadata:      r.Metadata,
		Entries:       entries,
	}, nil
}

// ProcessTransactionRequest submits a business transaction together with
// the account mapping that places it in the ledger.
type ProcessTransactionRequest struct {
	TransactionID     string         `json:"transactionId"`
	UserID            string         `json:"userId"`
	Type              string         `json:"type"`
	Amount            string         `json:"amount"`
	Currency          string         `json:"currency"`
	Description       string         `json:"description"`
	Category          string         `json:"category,omitempty"`
	Merchant          string         `json:"merchant,omitempty"`
	Date              string         `json:"date,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	SourceAccountID   string         `json:"sourceAccountId"`
	SourceAccountName string         `json:"sourceAccountName"`
	TargetAccountID   string         `json:"targetAccountId"`
	TargetAccountName string         `json:"targetAccountName"`
}

// ToCommand converts the request into a usecase command.
func (r ProcessTransactionRequest) ToCommand() (usecase.ProcessTransactionCommand, error) {
	amount, err := domain.NewMoneyFromString(r.Amount, r.Currency)
	if err != nil {
		return usecase.ProcessTransactionCommand{}, err
	}

	var date time.Time
	if r.Date != "" {
		date, err = time.Parse(time.RFC3339, r.Date)
		if err != nil {
			return usecase.ProcessTransactionCommand{}, fmt.Errorf("invalid date %q: %w", r.Date, err)
		}
	}

	return usecase.ProcessTransactionCommand{
		Transaction: domain.Transaction{
			ID:          r.TransactionID,
			UserID:      r.UserID,
			Type:        domain.TransactionType(r.Type),
			Amount:      amount,
			Description: r.Description,
			Category:    r.Category,
			Merchant:    r.Merchant,
			Date:        date,
			Metadata:    r.Metadata,
		},
		Mapping: domain.AccountMapping{
			SourceAccountID:   r.SourceAccountID,
			SourceAccountName: r.SourceAccountName,
			TargetAccountID:   r.TargetAccountID,
			TargetAccountName: r.TargetAccountName,
		},
	}, nil
}

// ReverseTransactionRequest asks for the reversal of a transaction's
// posted journal entries.
type ReverseTransactionRequest struct {
	ReversedBy string `json:"reversedBy"`
	Reason     string `json:"reason,omitempty"`
}
