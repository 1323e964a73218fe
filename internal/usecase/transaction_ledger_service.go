package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/moneyflow/ledger/internal/domain"
)

const balanceCacheTTL = 5 * time.Minute

// ProcessTransactionCommand carries a business transaction and the account
// mapping that decides which ledger accounts it touches.
type ProcessTransactionCommand struct {
	Transaction domain.Transaction
	Mapping     domain.AccountMapping
}

// ProcessTransactionResult summarizes the ledger impact of one processed
// transaction.
type ProcessTransactionResult struct {
	JournalEntry *domain.JournalEntry
	TotalAmount  domain.Money
	IsBalanced   bool
	EntriesCount int
}

// JournalBalanceStatus is the balance check result for one journal entry.
type JournalBalanceStatus struct {
	JournalEntryID string                            `json:"journalEntryId"`
	IsBalanced     bool                              `json:"isBalanced"`
	Summary        map[string]domain.CurrencyBalance `json:"summary"`
}

// TransactionBalanceResult aggregates balance checks across every journal
// entry of a transaction.
type TransactionBalanceResult struct {
	TransactionID string                 `json:"transactionId"`
	IsBalanced    bool                   `json:"isBalanced"`
	Journals      []JournalBalanceStatus `json:"journals"`
}

// TransactionLedgerService maps business transactions into ledger commands
// and answers reversal and balance-validation queries.
type TransactionLedgerService struct {
	ledger      *LedgerService
	journalRepo JournalRepository
	cache       Cache
	logger      zerolog.Logger
	metrics     MetricsRecorder
}

// NewTransactionLedgerService creates a new TransactionLedgerService. The
// cache is optional; pass nil to disable balance-result caching.
func NewTransactionLedgerService(
	ledger *LedgerService,
	journalRepo JournalRepository,
	cache Cache,
	logger zerolog.Logger,
	metrics MetricsRecorder,
) *TransactionLedgerService {
	return &TransactionLedgerService{
		ledger:      ledger,
		journalRepo: journalRepo,
		cache:       cache,
		logger:      logger,
		metrics:     metrics,
	}
}

// ProcessTransaction builds the journal command matching the transaction
// type, posts the resulting journal entry, persists it through the unit of
// work, and raises a TransactionLedgerProcessed event.
func (s *TransactionLedgerService) ProcessTransaction(ctx context.Context, uow *UnitOfWork, cmd ProcessTransactionCommand) (*ProcessTransactionResult, error) {
	tx := cmd.Transaction
	if !tx.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedTransactionType, tx.Type)
	}

	journalCmd, err := s.ledger.BuildTransactionCommand(tx, cmd.Mapping)
	if err != nil {
		return nil, err
	}

	journal, err := s.ledger.CreateJournalEntry(uow, journalCmd)
	if err != nil {
		return nil, err
	}

	if err := s.journalRepo.Save(ctx, journal); err != nil {
		return nil, err
	}

	accountIDs := make([]string, 0, len(journal.Entries))
	for _, entry := range journal.Entries {
		accountIDs = append(accountIDs, entry.AccountID)
	}

	uow.AddDomainEvent(domain.NewDomainEvent(
		domain.EventTypeTransactionLedgerProcessed,
		tx.ID,
		domain.AggregateTypeTransaction,
		tx.UserID,
		domain.TransactionLedgerProcessedEvent{
			TransactionID:   tx.ID,
			TransactionType: string(tx.Type),
			JournalEntryID:  journal.ID,
			TotalAmount:     domain.PayloadFromMoney(journal.TotalAmount),
			IsBalanced:      journal.IsBalanced(),
			EntriesCount:    len(journal.Entries),
			AccountIDs:      accountIDs,
			ProcessedAt:     time.Now().UTC(),
		},
	))

	s.invalidateBalanceCache(ctx, tx.ID)
	s.metrics.TransactionProcessed(string(tx.Type))

	return &ProcessTransactionResult{
		JournalEntry: journal,
		TotalAmount:  journal.TotalAmount,
		IsBalanced:   journal.IsBalanced(),
		EntriesCount: len(journal.Entries),
	}, nil
}

// RecordJournalEntry posts a caller-assembled journal entry and persists it
// through the unit of work. It serves clients that build their own entry
// lines instead of going through the transaction mapping.
func (s *TransactionLedgerService) RecordJournalEntry(ctx context.Context, uow *UnitOfWork, cmd CreateJournalEntryCommand) (*domain.JournalEntry, error) {
	journal, err := s.ledger.CreateJournalEntry(uow, cmd)
	if err != nil {
		return nil, err
	}

	if err := s.journalRepo.Save(ctx, journal); err != nil {
		return nil, err
	}

	s.invalidateBalanceCache(ctx, cmd.TransactionID)

	return journal, nil
}

// GetJournalEntry retrieves a journal entry with its ledger entries.
func (s *TransactionLedgerService) GetJournalEntry(ctx context.Context, id string) (*domain.JournalEntry, error) {
	if err := domain.ValidateRequired("journalEntryId", id); err != nil {
		return nil, err
	}

	return s.journalRepo.GetByID(ctx, id)
}

// ReverseTransactionEntries reverses every posted, not-yet-reversed journal
// entry of the transaction and returns the reversing entries. Draft and
// already-reversed journals are skipped silently; skipping is a selective
// processing policy, not a failure.
func (s *TransactionLedgerService) ReverseTransactionEntries(ctx context.Context, uow *UnitOfWork, transactionID, reversedBy, reason string) ([]*domain.JournalEntry, error) {
	if err := domain.ValidateRequired("transactionId", transactionID); err != nil {
		return nil, err
	}

	if err := domain.ValidateRequired("reversedBy", reversedBy); err != nil {
		return nil, err
	}

	journals, err := s.journalRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	var reversed []*domain.JournalEntry
	for _, journal := range journals {
		if !journal.IsPosted() || journal.IsReversed() {
			s.logger.Debug().
				Str("journal_entry_id", journal.ID).
				Str("status", string(journal.Status)).
				Msg("skipping journal entry not eligible for reversal")

			continue
		}

		reversing, err := journal.Reverse(reversedBy, reason)
		if err != nil {
			return nil, err
		}

		if err := s.journalRepo.Update(ctx, journal); err != nil {
			return nil, err
		}

		if err := s.journalRepo.Save(ctx, reversing); err != nil {
			return nil, err
		}

		uow.TrackChange(journal.ID, journal, ChangeTypeUpdated)
		uow.TrackChange(reversing.ID, reversing, ChangeTypeCreated)

		for _, event := range journal.DomainEvents() {
			uow.AddDomainEvent(event)
		}
		journal.ClearDomainEvents()

		for _, event := range reversing.DomainEvents() {
			uow.AddDomainEvent(event)
		}
		reversing.ClearDomainEvents()

		s.metrics.JournalReversed()
		reversed = append(reversed, reversing)
	}

	s.invalidateBalanceCache(ctx, transactionID)

	s.logger.Info().
		Str("transaction_id", transactionID).
		Int("reversed", len(reversed)).
		Int("total", len(journals)).
		Msg("transaction entries reversed")

	return reversed, nil
}

// ValidateTransactionBalance reports, for every journal entry of the
// transaction, whether it is balanced, plus the conjunction of all flags.
func (s *TransactionLedgerService) ValidateTransactionBalance(ctx context.Context, transactionID string) (*TransactionBalanceResult, error) {
	if err := domain.ValidateRequired("transactionId", transactionID); err != nil {
		return nil, err
	}

	if cached := s.cachedBalance(ctx, transactionID); cached != nil {
		return cached, nil
	}

	journals, err := s.journalRepo.GetByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	result := &TransactionBalanceResult{
		TransactionID: transactionID,
		IsBalanced:    true,
		Journals:      make([]JournalBalanceStatus, 0, len(journals)),
	}

	for _, journal := range journals {
		balanced := journal.IsBalanced()
		result.IsBalanced = result.IsBalanced && balanced
		result.Journals = append(result.Journals, JournalBalanceStatus{
			JournalEntryID: journal.ID,
			IsBalanced:     balanced,
			Summary:        journal.BalanceSummary(),
		})
	}

	s.storeBalance(ctx, transactionID, result)

	return result, nil
}

func balanceCacheKey(transactionID string) string {
	return "balance:" + transactionID
}

func (s *TransactionLedgerService) cachedBalance(ctx context.Context, transactionID string) *TransactionBalanceResult {
	if s.cache == nil {
		return nil
	}

	raw, err := s.cache.Get(ctx, balanceCacheKey(transactionID))
	if err != nil || raw == "" {
		return nil
	}

	var result TransactionBalanceResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil
	}

	return &result
}

func (s *TransactionLedgerService) storeBalance(ctx context.Context, transactionID string, result *TransactionBalanceResult) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, balanceCacheKey(transactionID), string(raw), balanceCacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("transaction_id", transactionID).Msg("failed to cache balance result")
	}
}

func (s *TransactionLedgerService) invalidateBalanceCache(ctx context.Context, transactionID string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Delete(ctx, balanceCacheKey(transactionID)); err != nil {
		s.logger.Warn().Err(err).Str("transaction_id", transactionID).Msg("failed to invalidate balance cache")
	}
}
