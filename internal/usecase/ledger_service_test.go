package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/moneyflow/ledger/internal/domain"
)

func money(t *testing.T, amount, currency string) domain.Money {
	t.Helper()

	m, err := domain.NewMoneyFromString(amount, currency)
	if err != nil {
		t.Fatalf("money(%s, %s): %v", amount, currency, err)
	}

	return m
}

func newTestLedgerService() *LedgerService {
	return NewLedgerService(&seqIDGen{}, zerolog.Nop(), nopMetrics{})
}

func balancedCommand(t *testing.T) CreateJournalEntryCommand {
	return CreateJournalEntryCommand{
		UserID:        "user-1",
		TransactionID: "tx-1",
		Description:   "Grocery shopping",
		Entries: []CreateLedgerEntryInput{
			{
				AccountID:   "acc-groceries",
				AccountName: "Groceries",
				AccountType: domain.AccountTypeExpense,
				EntryType:   domain.EntryTypeDebit,
				Amount:      money(t, "75.00", "USD"),
			},
			{
				AccountID:   "acc-checking",
				AccountName: "Checking",
				AccountType: domain.AccountTypeAsset,
				EntryType:   domain.EntryTypeCredit,
				Amount:      money(t, "75.00", "USD"),
			},
		},
	}
}

func TestLedgerService_CreateJournalEntry(t *testing.T) {
	t.Run("posts a balanced journal and registers it with the unit of work", func(t *testing.T) {
		svc := newTestLedgerService()
		uow := newTestUoW(&fakeTxManager{}, &fakeEventStore{})
		if err := uow.Begin(context.Background()); err != nil {
			t.Fatalf("Begin: %v", err)
		}

		journal, err := svc.CreateJournalEntry(uow, balancedCommand(t))
		if err != nil {
			t.Fatalf("CreateJournalEntry: %v", err)
		}

		if journal.ID != "JE-tx-1-id-1" {
			t.Errorf("journal ID = %q", journal.ID)
		}
		if !journal.IsPosted() {
			t.Error("journal must be POSTED")
		}
		if len(journal.Entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(journal.Entries))
		}
		if journal.Entries[0].ID != "JE-tx-1-id-1-L1" || journal.Entries[1].ID != "JE-tx-1-id-1-L2" {
			t.Errorf("entry ids = %q, %q", journal.Entries[0].ID, journal.Entries[1].ID)
		}
		if journal.TotalAmount.String() != "75.00 USD" {
			t.Errorf("TotalAmount = %q", journal.TotalAmount)
		}

		// journal + 2 entries tracked as created
		if got := len(uow.TrackedChanges()); got != 3 {
			t.Errorf("tracked %d changes, want 3", got)
		}

		// posting event moved into the unit of work
		events := uow.BufferedEvents()
		if len(events) != 1 {
			t.Fatalf("buffered %d events, want 1", len(events))
		}
		if events[0].Event.EventType != domain.EventTypeJournalEntryPosted {
			t.Errorf("EventType = %q", events[0].Event.EventType)
		}
		if len(journal.DomainEvents()) != 0 {
			t.Error("journal event buffer must be drained")
		}
	})

	t.Run("works without a unit of work", func(t *testing.T) {
		svc := newTestLedgerService()

		journal, err := svc.CreateJournalEntry(nil, balancedCommand(t))
		if err != nil {
			t.Fatalf("CreateJournalEntry: %v", err)
		}
		if !journal.IsPosted() {
			t.Error("journal must be POSTED")
		}
		if len(journal.DomainEvents()) != 1 {
			t.Error("events stay on the aggregate when no unit of work is given")
		}
	})

	t.Run("rejects fewer than two entries", func(t *testing.T) {
		svc := newTestLedgerService()

		cmd := balancedCommand(t)
		cmd.Entries = cmd.Entries[:1]

		if _, err := svc.CreateJournalEntry(nil, cmd); !errors.Is(err, domain.ErrTooFewEntries) {
			t.Errorf("expected ErrTooFewEntries, got %v", err)
		}
	})

	t.Run("rejects unbalanced entries naming currency and totals", func(t *testing.T) {
		svc := newTestLedgerService()

		cmd := CreateJournalEntryCommand{
			UserID:        "user-1",
			TransactionID: "tx-1",
			Description:   "Mismatched totals",
			Entries: []CreateLedgerEntryInput{
				{
					AccountID:   "acc-1",
					AccountName: "Cash",
					AccountType: domain.AccountTypeAsset,
					EntryType:   domain.EntryTypeDebit,
					Amount:      money(t, "100", "BRL"),
				},
				{
					AccountID:   "acc-2",
					AccountName: "Revenue",
					AccountType: domain.AccountTypeRevenue,
					EntryType:   domain.EntryTypeCredit,
					Amount:      money(t, "150", "BRL"),
				},
			},
		}

		_, err := svc.CreateJournalEntry(nil, cmd)
		if !errors.Is(err, domain.ErrUnbalancedEntries) {
			t.Fatalf("expected ErrUnbalancedEntries, got %v", err)
		}
		if !strings.Contains(err.Error(), "unbalanced BRL: debits 100, credits 150") {
			t.Errorf("error %q must name currency and both totals", err)
		}
	})

	t.Run("balances per currency independently", func(t *testing.T) {
		svc := newTestLedgerService()

		cmd := balancedCommand(t)
		cmd.Entries = append(cmd.Entries,
			CreateLedgerEntryInput{
				AccountID:   "acc-eur",
				AccountName: "EUR Cash",
				AccountType: domain.AccountTypeAsset,
				EntryType:   domain.EntryTypeDebit,
				Amount:      money(t, "20.00", "EUR"),
			},
			CreateLedgerEntryInput{
				AccountID:   "acc-eur-rev",
				AccountName: "EUR Revenue",
				AccountType: domain.AccountTypeRevenue,
				EntryType:   domain.EntryTypeCredit,
				Amount:      money(t, "20.00", "EUR"),
			},
		)

		if _, err := svc.CreateJournalEntry(nil, cmd); err != nil {
			t.Errorf("multi-currency balanced command failed: %v", err)
		}
	})

	t.Run("wraps per-entry validation errors with the entry position", func(t *testing.T) {
		svc := newTestLedgerService()

		cmd := balancedCommand(t)
		cmd.Entries[1].AccountID = ""

		_, err := svc.CreateJournalEntry(nil, cmd)
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.HasPrefix(err.Error(), "entry 2:") {
			t.Errorf("error %q must name the failing entry", err)
		}
	})

	t.Run("validates field order", func(t *testing.T) {
		svc := newTestLedgerService()

		cmd := balancedCommand(t)
		cmd.UserID = ""
		cmd.TransactionID = ""

		_, err := svc.CreateJournalEntry(nil, cmd)
		if err == nil || !strings.Contains(err.Error(), "userId") {
			t.Errorf("error %q, want userId reported first", err)
		}
	})
}

func TestLedgerService_BuildTransactionCommand(t *testing.T) {
	mapping := domain.AccountMapping{
		SourceAccountID:   "src-1",
		SourceAccountName: "Source",
		TargetAccountID:   "dst-1",
		TargetAccountName: "Target",
	}

	date := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	baseTx := func(txType domain.TransactionType) domain.Transaction {
		return domain.Transaction{
			ID:          "tx-9",
			UserID:      "user-1",
			Type:        txType,
			Amount:      domain.Money{},
			Description: "Monthly salary",
			Category:    "salary",
			Merchant:    "ACME Corp",
			Date:        date,
		}
	}

	tests := []struct {
		name           string
		txType         domain.TransactionType
		wantDebitType  domain.AccountType
		wantCreditType domain.AccountType
	}{
		{"income debits asset credits revenue", domain.TransactionTypeIncome, domain.AccountTypeAsset, domain.AccountTypeRevenue},
		{"expense debits expense credits asset", domain.TransactionTypeExpense, domain.AccountTypeExpense, domain.AccountTypeAsset},
		{"transfer debits and credits assets", domain.TransactionTypeTransfer, domain.AccountTypeAsset, domain.AccountTypeAsset},
	}

	svc := newTestLedgerService()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := baseTx(tt.txType)
			tx.Amount = money(t, "1000.00", "USD")

			cmd, err := svc.BuildTransactionCommand(tx, mapping)
			if err != nil {
				t.Fatalf("BuildTransactionCommand: %v", err)
			}

			if len(cmd.Entries) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(cmd.Entries))
			}

			debit, credit := cmd.Entries[0], cmd.Entries[1]

			if debit.EntryType != domain.EntryTypeDebit || debit.AccountType != tt.wantDebitType {
				t.Errorf("debit line = %s %s, want DEBIT %s", debit.EntryType, debit.AccountType, tt.wantDebitType)
			}
			if debit.AccountID != mapping.TargetAccountID {
				t.Errorf("debit account = %q, want target %q", debit.AccountID, mapping.TargetAccountID)
			}

			if credit.EntryType != domain.EntryTypeCredit || credit.AccountType != tt.wantCreditType {
				t.Errorf("credit line = %s %s, want CREDIT %s", credit.EntryType, credit.AccountType, tt.wantCreditType)
			}
			if credit.AccountID != mapping.SourceAccountID {
				t.Errorf("credit account = %q, want source %q", credit.AccountID, mapping.SourceAccountID)
			}

			for _, line := range cmd.Entries {
				if line.Metadata["transactionType"] != string(tt.txType) {
					t.Errorf("line metadata transactionType = %v", line.Metadata["transactionType"])
				}
				if line.Metadata["category"] != "salary" || line.Metadata["merchant"] != "ACME Corp" {
					t.Errorf("line metadata = %v", line.Metadata)
				}
				if line.Metadata["date"] != "2026-03-14T09:30:00Z" {
					t.Errorf("line metadata date = %v", line.Metadata["date"])
				}
			}
		})
	}

	t.Run("rejects unsupported types", func(t *testing.T) {
		tx := baseTx("refund")
		tx.Amount = money(t, "1.00", "USD")

		if _, err := svc.BuildTransactionCommand(tx, mapping); !errors.Is(err, domain.ErrUnsupportedTransactionType) {
			t.Errorf("expected ErrUnsupportedTransactionType, got %v", err)
		}
	})

	t.Run("typed builders override the transaction type", func(t *testing.T) {
		tx := baseTx("refund")
		tx.Amount = money(t, "1.00", "USD")

		builders := []struct {
			build    func(domain.Transaction, domain.AccountMapping) (CreateJournalEntryCommand, error)
			wantType domain.AccountType
		}{
			{svc.BuildIncomeCommand, domain.AccountTypeAsset},
			{svc.BuildExpenseCommand, domain.AccountTypeExpense},
			{svc.BuildTransferCommand, domain.AccountTypeAsset},
		}

		for _, b := range builders {
			cmd, err := b.build(tx, mapping)
			if err != nil {
				t.Fatalf("typed builder: %v", err)
			}
			if cmd.Entries[0].AccountType != b.wantType {
				t.Errorf("debit account type = %s, want %s", cmd.Entries[0].AccountType, b.wantType)
			}
		}
	})
}
