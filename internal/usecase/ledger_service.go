package usecase

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/moneyflow/ledger/internal/domain"
)

// CreateLedgerEntryInput is one debit or credit line of a
// CreateJournalEntryCommand.
type CreateLedgerEntryInput struct {
	AccountID     string
	AccountName   string
	AccountType   domain.AccountType
	EntryType     domain.EntryType
	Amount        domain.Money
	Description   string
	ReferenceID   string
	ReferenceType string
	Metadata      map[string]any
}

// CreateJournalEntryCommand asks the ledger to record one balanced group of
// entries.
type CreateJournalEntryCommand struct {
	UserID        string
	TransactionID string
	Description   string
	Reference     string
	Metadata      map[string]any
	Entries       []CreateLedgerEntryInput
}

// LedgerService validates commands, assembles balanced journal entries, and
// posts them. Every successful call yields a POSTED aggregate.
type LedgerService struct {
	idGen   IDGenerator
	logger  zerolog.Logger
	metrics MetricsRecorder
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(idGen IDGenerator, logger zerolog.Logger, metrics MetricsRecorder) *LedgerService {
	return &LedgerService{
		idGen:   idGen,
		logger:  logger,
		metrics: metrics,
	}
}

// CreateJournalEntry validates the command, builds a journal entry with
// generated ids, posts it, and registers the produced rows and events with
// the unit of work. The journal id derives from the transaction id plus a
// unique suffix; entry ids derive from the journal id and their 1-based
// position.
func (s *LedgerService) CreateJournalEntry(uow *UnitOfWork, cmd CreateJournalEntryCommand) (*domain.JournalEntry, error) {
	if err := s.validateCommand(cmd); err != nil {
		return nil, err
	}

	journalID := fmt.Sprintf("JE-%s-%s", cmd.TransactionID, s.idGen.Generate())

	journal, err := domain.NewJournalEntry(domain.NewJournalEntryParams{
		ID:            journalID,
		UserID:        cmd.UserID,
		TransactionID: cmd.TransactionID,
		Description:   cmd.Description,
		Reference:     cmd.Reference,
		Metadata:      cmd.Metadata,
	})
	if err != nil {
		return nil, err
	}

	for i, input := range cmd.Entries {
		entry, err := domain.NewLedgerEntry(domain.NewLedgerEntryParams{
			ID:             fmt.Sprintf("%s-L%d", journalID, i+1),
			TransactionID:  cmd.TransactionID,
			AccountID:      input.AccountID,
			AccountName:    input.AccountName,
			AccountType:    input.AccountType,
			EntryType:      input.EntryType,
			Amount:         input.Amount,
			Description:    input.Description,
			ReferenceID:    input.ReferenceID,
			ReferenceType:  input.ReferenceType,
			Metadata:       input.Metadata,
			JournalEntryID: journalID,
		})
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i+1, err)
		}

		if err := journal.AddEntry(entry); err != nil {
			return nil, err
		}
	}

	if err := journal.Post(); err != nil {
		return nil, err
	}

	if uow != nil {
		uow.TrackChange(journal.ID, journal, ChangeTypeCreated)
		for _, entry := range journal.Entries {
			uow.TrackChange(entry.ID, entry, ChangeTypeCreated)
		}

		for _, event := range journal.DomainEvents() {
			uow.AddDomainEvent(event)
		}

		journal.ClearDomainEvents()
	}

	amount, _ := journal.TotalAmount.Amount.Float64()
	s.metrics.JournalPosted(journal.TotalAmount.Currency, amount)

	s.logger.Info().
		Str("journal_entry_id", journal.ID).
		Str("transaction_id", cmd.TransactionID).
		Str("total_amount", journal.TotalAmount.String()).
		Int("entries", len(journal.Entries)).
		Msg("journal entry posted")

	return journal, nil
}

// BuildTransactionCommand maps a business transaction and its account
// mapping to a two-line journal command:
//
//	income:   debit target (ASSET),   credit source (REVENUE)
//	expense:  debit target (EXPENSE), credit source (ASSET)
//	transfer: debit target (ASSET),   credit source (ASSET)
func (s *LedgerService) BuildTransactionCommand(tx domain.Transaction, mapping domain.AccountMapping) (CreateJournalEntryCommand, error) {
	var debitType, creditType domain.AccountType

	switch tx.Type {
	case domain.TransactionTypeIncome:
		debitType, creditType = domain.AccountTypeAsset, domain.AccountTypeRevenue
	case domain.TransactionTypeExpense:
		debitType, creditType = domain.AccountTypeExpense, domain.AccountTypeAsset
	case domain.TransactionTypeTransfer:
		debitType, creditType = domain.AccountTypeAsset, domain.AccountTypeAsset
	default:
		return CreateJournalEntryCommand{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedTransactionType, tx.Type)
	}

	lineMetadata := map[string]any{
		"transactionType": string(tx.Type),
	}
	if tx.Category != "" {
		lineMetadata["category"] = tx.Category
	}
	if tx.Merchant != "" {
		lineMetadata["merchant"] = tx.Merchant
	}
	if !tx.Date.IsZero() {
		lineMetadata["date"] = tx.Date.UTC().Format(time.RFC3339)
	}

	return CreateJournalEntryCommand{
		UserID:        tx.UserID,
		TransactionID: tx.ID,
		Description:   tx.Description,
		Metadata:      tx.Metadata,
		Entries: []CreateLedgerEntryInput{
			{
				AccountID:   mapping.TargetAccountID,
				AccountName: mapping.TargetAccountName,
				AccountType: debitType,
				EntryType:   domain.EntryTypeDebit,
				Amount:      tx.Amount,
				Description: tx.Description,
				Metadata:    lineMetadata,
			},
			{
				AccountID:   mapping.SourceAccountID,
				AccountName: mapping.SourceAccountName,
				AccountType: creditType,
				EntryType:   domain.EntryTypeCredit,
				Amount:      tx.Amount,
				Description: tx.Description,
				Metadata:    lineMetadata,
			},
		},
	}, nil
}

// BuildIncomeCommand maps an income transaction to its journal command.
func (s *LedgerService) BuildIncomeCommand(tx domain.Transaction, mapping domain.AccountMapping) (CreateJournalEntryCommand, error) {
	tx.Type = domain.TransactionTypeIncome
	return s.BuildTransactionCommand(tx, mapping)
}

// BuildExpenseCommand maps an expense transaction to its journal command.
func (s *LedgerService) BuildExpenseCommand(tx domain.Transaction, mapping domain.AccountMapping) (CreateJournalEntryCommand, error) {
	tx.Type = domain.TransactionTypeExpense
	return s.BuildTransactionCommand(tx, mapping)
}

// BuildTransferCommand maps a transfer transaction to its journal command.
func (s *LedgerService) BuildTransferCommand(tx domain.Transaction, mapping domain.AccountMapping) (CreateJournalEntryCommand, error) {
	tx.Type = domain.TransactionTypeTransfer
	return s.BuildTransactionCommand(tx, mapping)
}

// validateCommand checks the command fields in order: user, transaction,
// description, entry count, per-entry fields, and finally the per-currency
// balance across entries.
func (s *LedgerService) validateCommand(cmd CreateJournalEntryCommand) error {
	if err := domain.ValidateRequired("userId", cmd.UserID); err != nil {
		return err
	}

	if err := domain.ValidateRequired("transactionId", cmd.TransactionID); err != nil {
		return err
	}

	if err := domain.ValidateDescription(cmd.Description); err != nil {
		return err
	}

	if len(cmd.Entries) < 2 {
		return domain.ErrTooFewEntries
	}

	for i, input := range cmd.Entries {
		if err := s.validateEntryInput(input); err != nil {
			return fmt.Errorf("entry %d: %w", i+1, err)
		}
	}

	return s.validateBalance(cmd.Entries)
}

func (s *LedgerService) validateEntryInput(input CreateLedgerEntryInput) error {
	if err := domain.ValidateRequired("accountId", input.AccountID); err != nil {
		return err
	}

	if err := domain.ValidateRequired("accountName", input.AccountName); err != nil {
		return err
	}

	if !input.AccountType.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidAccountType, input.AccountType)
	}

	if !input.EntryType.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidEntryType, input.EntryType)
	}

	if !input.Amount.IsPositive() {
		return fmt.Errorf("%w: entry amount must be positive", domain.ErrInvalidAmount)
	}

	if (input.ReferenceID == "") != (input.ReferenceType == "") {
		return domain.ErrInconsistentReference
	}

	return nil
}

// validateBalance verifies debits equal credits per currency before any
// aggregate is built. The error names the currency and both totals.
func (s *LedgerService) validateBalance(entries []CreateLedgerEntryInput) error {
	type sides struct {
		debits  decimal.Decimal
		credits decimal.Decimal
	}

	byCurrency := make(map[string]sides)
	for _, input := range entries {
		currency := input.Amount.Currency

		side := byCurrency[currency]
		if input.EntryType == domain.EntryTypeDebit {
			side.debits = side.debits.Add(input.Amount.Amount)
		} else {
			side.credits = side.credits.Add(input.Amount.Amount)
		}

		byCurrency[currency] = side
	}

	currencies := make([]string, 0, len(byCurrency))
	for currency := range byCurrency {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	tolerance := decimal.RequireFromString("0.01")
	for _, currency := range currencies {
		side := byCurrency[currency]
		if side.debits.Sub(side.credits).Abs().GreaterThan(tolerance) {
			return fmt.Errorf("%w: unbalanced %s: debits %s, credits %s",
				domain.ErrUnbalancedEntries, currency, side.debits, side.credits)
		}
	}

	return nil
}
