package dto

import (
	"time"

	"github.com/moneyflow/ledger/internal/domain"
	"github.com/moneyflow/ledger/internal/usecase"
)

// ErrorResponse is the standard error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// LedgerEntryResponse is the wire form of a posted ledger entry.
type LedgerEntryResponse struct {
	ID            string         `json:"id"`
	JournalID     string         `json:"journalId"`
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
	CreatedAt     time.Time      `json:"createdAt"`
}

// JournalEntryResponse is the wire form of a journal entry aggregate.
type JournalEntryResponse struct {
	ID            string                `json:"id"`
	UserID        string                `json:"userId"`
	TransactionID string                `json:"transactionId"`
	Description   string                `json:"description"`
	Reference     string                `json:"reference,omitempty"`
	Status        string                `json:"status"`
	TotalAmount   string                `json:"totalAmount"`
	Currency      string                `json:"currency"`
	PostedAt      *time.Time            `json:"postedAt,omitempty"`
	ReversedAt    *time.Time            `json:"reversedAt,omitempty"`
	ReversedBy    string                `json:"reversedBy,omitempty"`
	Metadata      map[string]any        `json:"metadata,omitempty"`
	Entries       []LedgerEntryResponse `json:"entries"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

// FromJournalEntry maps a domain journal entry to its response form.
func FromJournalEntry(j *domain.JournalEntry) JournalEntryResponse {
	entries := make([]LedgerEntryResponse, 0, len(j.Entries))
	for _, e := range j.Entries {
		entries = append(entries, LedgerEntryResponse{
			ID:            e.ID,
			JournalID:     e.JournalEntryID,
			AccountID:     e.AccountID,
			AccountName:   e.AccountName,
			AccountType:   string(e.AccountType),
			EntryType:     string(e.EntryType),
			Amount:        e.Amount.Amount.StringFixed(2),
			Currency:      e.Amount.Currency,
			Description:   e.Description,
			ReferenceID:   e.ReferenceID,
			ReferenceType: e.ReferenceType,
			Metadata:      e.Metadata,
			CreatedAt:     e.CreatedAt,
		})
	}

	return JournalEntryResponse{
		ID:            j.ID,
		UserID:        j.UserID,
		TransactionID: j.TransactionID,
		Description:   j.Description,
		Reference:     j.Reference,
		Status:        string(j.Status),
		TotalAmount:   j.TotalAmount.Amount.StringFixed(2),
		Currency:      j.TotalAmount.Currency,
		PostedAt:      j.PostedAt,
		ReversedAt:    j.ReversedAt,
		ReversedBy:    j.ReversedBy,
		Metadata:      j.Metadata,
		Entries:       entries,
		CreatedAt:     j.CreatedAt,
		UpdatedAt:     j.UpdatedAt,
	}
}

// ProcessTransactionResponse is returned after a transaction is booked.
type ProcessTransactionResponse struct {
	JournalEntry JournalEntryResponse `json:"journalEntry"`
	TotalAmount  string               `json:"totalAmount"`
	Currency     string               `json:"currency"`
	IsBalanced   bool                 `json:"isBalanced"`
	EntriesCount int                  `json:"entriesCount"`
}

// FromProcessTransactionResult maps a usecase result to its response form.
func FromProcessTransactionResult(res *usecase.ProcessTransactionResult) ProcessTransactionResponse {
	return ProcessTransactionResponse{
		JournalEntry: FromJournalEntry(res.JournalEntry),
		TotalAmount:  res.TotalAmount.Amount.StringFixed(2),
		Currency:     res.TotalAmount.Currency,
		IsBalanced:   res.IsBalanced,
		EntriesCount: res.EntriesCount,
	}
}

// ReverseTransactionResponse lists the reversing journal entries created.
type ReverseTransactionResponse struct {
	TransactionID string                 `json:"transactionId"`
	ReversedCount int                    `json:"reversedCount"`
	Reversals     []JournalEntryResponse `json:"reversals"`
}

// FromReversals maps the reversing entries created for a transaction.
func FromReversals(transactionID string, reversals []*domain.JournalEntry) ReverseTransactionResponse {
	out := make([]JournalEntryResponse, 0, len(reversals))
	for _, j := range reversals {
		out = append(out, FromJournalEntry(j))
	}
	return ReverseTransactionResponse{
		TransactionID: transactionID,
		ReversedCount: len(out),
		Reversals:     out,
	}
}
