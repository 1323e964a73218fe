package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// JournalStatus is the lifecycle state of a journal entry.
type JournalStatus string

const (
	JournalStatusDraft    JournalStatus = "DRAFT"
	JournalStatusPosted   JournalStatus = "POSTED"
	JournalStatusReversed JournalStatus = "REVERSED"
	JournalStatusError    JournalStatus = "ERROR"
)

// balanceTolerance is the per-currency allowance between total debits and
// total credits. Inputs are rounded to two decimal places, so anything
// beyond a cent is a real imbalance.
var balanceTolerance = decimal.RequireFromString("0.01")

// JournalEntry is an ordered, balanced group of ledger entries with a
// posting/reversal lifecycle. It owns its entries outright and buffers the
// domain events it produces; callers must drain the buffer exactly once per
// commit cycle via DomainEvents/ClearDomainEvents.
type JournalEntry struct {
	ID            string
	UserID        string
	TransactionID string
	Description   string
	Reference     string
	Status        JournalStatus
	Entries       []*LedgerEntry
	TotalAmount   Money
	PostedAt      *time.Time
	ReversedAt    *time.Time
	ReversedBy    string
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time

	events []DomainEvent
}

// NewJournalEntryParams carries the fields needed to construct a draft
// journal entry.
type NewJournalEntryParams struct {
	ID            string
	UserID        string
	TransactionID string
	Description   string
	Reference     string
	Metadata      map[string]any
}

// NewJournalEntry constructs a journal entry in DRAFT status.
func NewJournalEntry(params NewJournalEntryParams) (*JournalEntry, error) {
	for _, check := range []struct {
		field string
		value string
	}{
		{"id", params.ID},
		{"userId", params.UserID},
		{"transactionId", params.TransactionID},
	} {
		if err := ValidateRequired(check.field, check.value); err != nil {
			return nil, err
		}
	}

	if err := ValidateDescription(params.Description); err != nil {
		return nil, err
	}

	if err := ValidateMetadata(params.Metadata); err != nil {
		return nil, err
	}

	metadata := params.Metadata
	if metadata == nil {
		metadata = make(map[string]any)
	}

	now := time.Now().UTC()

	return &JournalEntry{
		ID:            params.ID,
		UserID:        params.UserID,
		TransactionID: params.TransactionID,
		Description:   params.Description,
		Reference:     params.Reference,
		Status:        JournalStatusDraft,
		Metadata:      metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CanModify reports whether entries and fields may still change. ERROR
// behaves like DRAFT for modification purposes.
func (j *JournalEntry) CanModify() bool {
	return j.Status == JournalStatusDraft || j.Status == JournalStatusError
}

// IsPosted reports whether the journal entry is posted.
func (j *JournalEntry) IsPosted() bool {
	return j.Status == JournalStatusPosted
}

// IsReversed reports whether the journal entry has been reversed.
func (j *JournalEntry) IsReversed() bool {
	return j.Status == JournalStatusReversed
}

// AddEntry appends a ledger entry. The entry becomes owned by this journal.
func (j *JournalEntry) AddEntry(entry *LedgerEntry) error {
	if !j.CanModify() {
		return ErrCannotModifyPosted
	}

	entry.JournalEntryID = j.ID
	j.Entries = append(j.Entries, entry)
	j.recomputeTotalAmount()
	j.touch()

	return nil
}

// RemoveEntry removes the entry with the given id.
func (j *JournalEntry) RemoveEntry(entryID string) error {
	if !j.CanModify() {
		return ErrCannotModifyPosted
	}

	for i, entry := range j.Entries {
		if entry.ID == entryID {
			j.Entries = append(j.Entries[:i], j.Entries[i+1:]...)
			j.recomputeTotalAmount()
			j.touch()

			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrEntryNotFound, entryID)
}

// UpdateDescription changes the description of a modifiable journal entry.
func (j *JournalEntry) UpdateDescription(description string) error {
	if !j.CanModify() {
		return ErrCannotModifyPosted
	}

	if err := ValidateDescription(description); err != nil {
		return err
	}

	j.Description = description
	j.touch()

	return nil
}

// UpdateMetadata merges the given keys into the journal entry metadata.
func (j *JournalEntry) UpdateMetadata(metadata map[string]any) error {
	if !j.CanModify() {
		return ErrCannotModifyPosted
	}

	if err := ValidateMetadata(metadata); err != nil {
		return err
	}

	for k, v := range metadata {
		j.Metadata[k] = v
	}

	j.touch()

	return nil
}

// Post finalizes the journal entry. It requires at least two entries and a
// balanced ledger across every currency present. On success the status
// becomes POSTED and a JournalEntryPosted event is buffered.
func (j *JournalEntry) Post() error {
	switch j.Status {
	case JournalStatusPosted:
		return ErrAlreadyPosted
	case JournalStatusReversed:
		return ErrAlreadyReversed
	}

	if len(j.Entries) < 2 {
		return ErrTooFewEntries
	}

	if !j.IsBalanced() {
		return ErrUnbalancedEntries
	}

	now := time.Now().UTC()
	j.Status = JournalStatusPosted
	j.PostedAt = &now
	j.UpdatedAt = now

	entries := make([]EntryPayload, 0, len(j.Entries))
	for _, e := range j.Entries {
		entries = append(entries, EntryPayload{
			AccountID:   e.AccountID,
			AccountType: e.AccountType,
			EntryType:   e.EntryType,
			Amount:      PayloadFromMoney(e.Amount),
			Description: e.Description,
		})
	}

	j.recordEvent(EventTypeJournalEntryPosted, JournalEntryPostedEvent{
		TransactionID: j.TransactionID,
		Description:   j.Description,
		TotalAmount:   PayloadFromMoney(j.TotalAmount),
		Entries:       entries,
		PostedAt:      now,
		Reference:     j.Reference,
		Metadata:      j.Metadata,
	})

	return nil
}

// Reverse marks a posted journal entry as REVERSED and returns a brand-new,
// already-posted journal entry whose lines undo the original. The reversing
// entry's id is REV-{original id} and its reference points back at the
// original.
func (j *JournalEntry) Reverse(reversedBy, reason string) (*JournalEntry, error) {
	if j.Status == JournalStatusReversed {
		return nil, ErrAlreadyReversed
	}

	if j.Status != JournalStatusPosted {
		return nil, ErrJournalNotPosted
	}

	if err := ValidateRequired("reversedBy", reversedBy); err != nil {
		return nil, err
	}

	reversingID := "REV-" + j.ID

	metadata := map[string]any{"originalJournalEntryId": j.ID}
	if reason != "" {
		metadata["reversalReason"] = reason
	}

	// The prefix can push an otherwise valid description past the length
	// limit; a posted journal must always stay reversible.
	description := "Reversal of: " + j.Description
	if len(description) > MaxDescriptionLength {
		description = description[:MaxDescriptionLength]
	}

	reversing, err := NewJournalEntry(NewJournalEntryParams{
		ID:            reversingID,
		UserID:        j.UserID,
		TransactionID: j.TransactionID,
		Description:   description,
		Reference:     j.ID,
		Metadata:      metadata,
	})
	if err != nil {
		return nil, err
	}

	for _, entry := range j.Entries {
		reversed, err := entry.CreateReversingEntry(reversingID, "")
		if err != nil {
			return nil, err
		}

		if err := reversing.AddEntry(reversed); err != nil {
			return nil, err
		}
	}

	if err := reversing.Post(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	j.Status = JournalStatusReversed
	j.ReversedAt = &now
	j.ReversedBy = reversedBy
	j.UpdatedAt = now

	j.recordEvent(EventTypeJournalEntryReversed, JournalEntryReversedEvent{
		OriginalJournalEntryID:  j.ID,
		ReversingJournalEntryID: reversingID,
		ReversedBy:              reversedBy,
		Reason:                  reason,
		ReversedAt:              now,
		OriginalAmount:          PayloadFromMoney(j.TotalAmount),
		Metadata:                j.Metadata,
	})

	return reversing, nil
}

// MarkAsError moves the journal entry into the ERROR side branch. Entries
// are left untouched; the message and timestamp are recorded in metadata.
func (j *JournalEntry) MarkAsError(message string) error {
	if j.Status == JournalStatusReversed {
		return ErrAlreadyReversed
	}

	now := time.Now().UTC()
	j.Status = JournalStatusError
	j.Metadata["errorAt"] = now.Format(time.RFC3339)
	if message != "" {
		j.Metadata["errorMessage"] = message
	}
	j.UpdatedAt = now

	return nil
}

// IsBalanced reports whether, for every currency present, total debits and
// total credits differ by no more than the balance tolerance. A journal
// entry with no entries is not balanced.
func (j *JournalEntry) IsBalanced() bool {
	if len(j.Entries) == 0 {
		return false
	}

	for _, balance := range j.BalanceSummary() {
		if !balance.IsBalanced {
			return false
		}
	}

	return true
}

// CurrencyBalance is the per-currency debit/credit summary of a journal
// entry.
type CurrencyBalance struct {
	Currency   string
	Debits     decimal.Decimal
	Credits    decimal.Decimal
	Balance    decimal.Decimal
	IsBalanced bool
}

// BalanceSummary groups entries by currency and sums the debit and credit
// sides. Balance is debits minus credits.
func (j *JournalEntry) BalanceSummary() map[string]CurrencyBalance {
	summary := make(map[string]CurrencyBalance)

	for _, entry := range j.Entries {
		currency := entry.Amount.Currency

		balance, ok := summary[currency]
		if !ok {
			balance = CurrencyBalance{
				Currency: currency,
				Debits:   decimal.Zero,
				Credits:  decimal.Zero,
			}
		}

		if entry.EntryType == EntryTypeDebit {
			balance.Debits = balance.Debits.Add(entry.Amount.Amount)
		} else {
			balance.Credits = balance.Credits.Add(entry.Amount.Amount)
		}

		summary[currency] = balance
	}

	for currency, balance := range summary {
		balance.Balance = balance.Debits.Sub(balance.Credits)
		balance.IsBalanced = balance.Balance.Abs().LessThanOrEqual(balanceTolerance)
		summary[currency] = balance
	}

	return summary
}

// DomainEvents returns the buffered events without clearing them.
func (j *JournalEntry) DomainEvents() []DomainEvent {
	events := make([]DomainEvent, len(j.events))
	copy(events, j.events)

	return events
}

// ClearDomainEvents empties the event buffer. Draining without forwarding
// loses events, so callers drain exactly once per commit cycle.
func (j *JournalEntry) ClearDomainEvents() {
	j.events = nil
}

func (j *JournalEntry) recordEvent(eventType string, data any) {
	j.events = append(j.events, NewDomainEvent(eventType, j.ID, AggregateTypeJournalEntry, j.UserID, data))
}

// recomputeTotalAmount sums the debit side in the currency of the first
// entry. Mixed-currency journals report the total of the primary currency.
func (j *JournalEntry) recomputeTotalAmount() {
	if len(j.Entries) == 0 {
		j.TotalAmount = Money{Amount: decimal.Zero, Currency: j.TotalAmount.Currency}
		return
	}

	currency := j.Entries[0].Amount.Currency
	total := decimal.Zero

	for _, entry := range j.Entries {
		if entry.EntryType == EntryTypeDebit && entry.Amount.Currency == currency {
			total = total.Add(entry.Amount.Amount)
		}
	}

	j.TotalAmount = Money{Amount: total.Round(2), Currency: currency}
}

func (j *JournalEntry) touch() {
	j.UpdatedAt = time.Now().UTC()
}
