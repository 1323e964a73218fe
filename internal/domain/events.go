package domain

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Event types
const (
	EventTypeJournalEntryPosted         = "journal_entry.posted"
	EventTypeJournalEntryReversed       = "journal_entry.reversed"
	EventTypeTransactionLedgerProcessed = "transaction.ledger_processed"
)

// Aggregate types
const (
	AggregateTypeJournalEntry = "journal_entry"
	AggregateTypeTransaction  = "transaction"
)

// DomainEvent is the envelope shared by every event this core emits. The
// concrete payload lives in Data; consumers switch on EventType.
type DomainEvent struct {
	EventID       string    `json:"eventId"`
	EventType     string    `json:"eventType"`
	AggregateID   string    `json:"aggregateId"`
	AggregateType string    `json:"aggregateType"`
	Version       int       `json:"version"`
	UserID        string    `json:"userId,omitempty"`
	OccurredOn    time.Time `json:"occurredOn"`
	Data          any       `json:"data"`
}

// NewDomainEvent builds an event envelope around a payload.
func NewDomainEvent(eventType, aggregateID, aggregateType, userID string, data any) DomainEvent {
	return DomainEvent{
		EventID:       ulid.Make().String(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       1,
		UserID:        userID,
		OccurredOn:    time.Now().UTC(),
		Data:          data,
	}
}

// MoneyPayload is the wire shape of a Money value.
type MoneyPayload struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// PayloadFromMoney converts Money into its wire shape.
func PayloadFromMoney(m Money) MoneyPayload {
	return MoneyPayload{Amount: m.Amount.StringFixed(2), Currency: m.Currency}
}

// EntryPayload is one line inside a JournalEntryPostedEvent.
type EntryPayload struct {
	AccountID   string       `json:"accountId"`
	AccountType AccountType  `json:"accountType"`
	EntryType   EntryType    `json:"entryType"`
	Amount      MoneyPayload `json:"amount"`
	Description string       `json:"description,omitempty"`
}

// JournalEntryPostedEvent is emitted when a journal entry transitions to
// POSTED.
type JournalEntryPostedEvent struct {
	TransactionID string         `json:"transactionId"`
	Description   string         `json:"description"`
	TotalAmount   MoneyPayload   `json:"totalAmount"`
	Entries       []EntryPayload `json:"entries"`
	PostedAt      time.Time      `json:"postedAt"`
	Reference     string         `json:"reference,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// JournalEntryReversedEvent is emitted when a posted journal entry is
// reversed.
type JournalEntryReversedEvent struct {
	OriginalJournalEntryID  string         `json:"originalJournalEntryId"`
	ReversingJournalEntryID string         `json:"reversingJournalEntryId"`
	ReversedBy              string         `json:"reversedBy"`
	Reason                  string         `json:"reason,omitempty"`
	ReversedAt              time.Time      `json:"reversedAt"`
	OriginalAmount          MoneyPayload   `json:"originalAmount"`
	Metadata                map[string]any `json:"metadata,omitempty"`
}

// TransactionLedgerProcessedEvent summarizes the ledger impact of one
// business transaction.
type TransactionLedgerProcessedEvent struct {
	TransactionID   string       `json:"transactionId"`
	TransactionType string       `json:"transactionType"`
	JournalEntryID  string       `json:"journalEntryId"`
	TotalAmount     MoneyPayload `json:"totalAmount"`
	IsBalanced      bool         `json:"isBalanced"`
	EntriesCount    int          `json:"entriesCount"`
	AccountIDs      []string     `json:"accountIds"`
	ProcessedAt     time.Time    `json:"processedAt"`
}
