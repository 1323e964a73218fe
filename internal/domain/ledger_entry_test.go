package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func mustMoney(t *testing.T, amount, currency string) Money {
	t.Helper()

	m, err := NewMoneyFromString(amount, currency)
	if err != nil {
		t.Fatalf("NewMoneyFromString(%s, %s): %v", amount, currency, err)
	}

	return m
}

func validEntryParams(t *testing.T) NewLedgerEntryParams {
	return NewLedgerEntryParams{
		ID:            "JE-tx-1-01A-L1",
		TransactionID: "tx-1",
		AccountID:     "acc-1",
		AccountName:   "Cash",
		AccountType:   AccountTypeAsset,
		EntryType:     EntryTypeDebit,
		Amount:        mustMoney(t, "100.00", "USD"),
	}
}

func TestNewLedgerEntry(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*NewLedgerEntryParams)
		expectError error
	}{
		{
			name:   "valid entry",
			mutate: func(p *NewLedgerEntryParams) {},
		},
		{
			name:        "invalid account type",
			mutate:      func(p *NewLedgerEntryParams) { p.AccountType = "BANK" },
			expectError: ErrInvalidAccountType,
		},
		{
			name:        "invalid entry type",
			mutate:      func(p *NewLedgerEntryParams) { p.EntryType = "WITHDRAW" },
			expectError: ErrInvalidEntryType,
		},
		{
			name:        "zero amount rejected",
			mutate:      func(p *NewLedgerEntryParams) { p.Amount = mustMoney(t, "0.00", "USD") },
			expectError: ErrInvalidAmount,
		},
		{
			name:        "reference id without type",
			mutate:      func(p *NewLedgerEntryParams) { p.ReferenceID = "inv-1" },
			expectError: ErrInconsistentReference,
		},
		{
			name:        "reference type without id",
			mutate:      func(p *NewLedgerEntryParams) { p.ReferenceType = "invoice" },
			expectError: ErrInconsistentReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validEntryParams(t)
			tt.mutate(&params)

			entry, err := NewLedgerEntry(params)

			if tt.expectError != nil {
				if !errors.Is(err, tt.expectError) {
					t.Fatalf("expected %v, got %v", tt.expectError, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if entry.CreatedAt.IsZero() || entry.PostedAt.IsZero() {
				t.Error("timestamps not set")
			}
		})
	}

	t.Run("missing required fields", func(t *testing.T) {
		for _, mutate := range []func(*NewLedgerEntryParams){
			func(p *NewLedgerEntryParams) { p.ID = "" },
			func(p *NewLedgerEntryParams) { p.TransactionID = " " },
			func(p *NewLedgerEntryParams) { p.AccountID = "" },
			func(p *NewLedgerEntryParams) { p.AccountName = "" },
		} {
			params := validEntryParams(t)
			mutate(&params)

			if _, err := NewLedgerEntry(params); err == nil {
				t.Errorf("expected error for params %+v", params)
			}
		}
	})
}

func TestLedgerEntry_SignedAmount(t *testing.T) {
	tests := []struct {
		name        string
		accountType AccountType
		entryType   EntryType
		wantSign    int
	}{
		{"debit to asset is positive", AccountTypeAsset, EntryTypeDebit, 1},
		{"credit to asset is negative", AccountTypeAsset, EntryTypeCredit, -1},
		{"debit to expense is positive", AccountTypeExpense, EntryTypeDebit, 1},
		{"debit to liability is negative", AccountTypeLiability, EntryTypeDebit, -1},
		{"credit to liability is positive", AccountTypeLiability, EntryTypeCredit, 1},
		{"credit to revenue is positive", AccountTypeRevenue, EntryTypeCredit, 1},
		{"debit to equity is negative", AccountTypeEquity, EntryTypeDebit, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validEntryParams(t)
			params.AccountType = tt.accountType
			params.EntryType = tt.entryType

			entry, err := NewLedgerEntry(params)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want := decimal.NewFromInt(100).Mul(decimal.NewFromInt(int64(tt.wantSign)))
			if got := entry.SignedAmount(); !got.Equal(want) {
				t.Errorf("SignedAmount() = %s, want %s", got, want)
			}
		})
	}
}

func TestLedgerEntry_BalancesWith(t *testing.T) {
	debitParams := validEntryParams(t)
	debit, _ := NewLedgerEntry(debitParams)

	creditParams := validEntryParams(t)
	creditParams.ID = "JE-tx-1-01A-L2"
	creditParams.AccountType = AccountTypeRevenue
	creditParams.EntryType = EntryTypeCredit
	credit, _ := NewLedgerEntry(creditParams)

	if !debit.BalancesWith(credit) {
		t.Error("expected 100 debit ASSET to balance 100 credit REVENUE")
	}

	if debit.BalancesWith(nil) {
		t.Error("nil should never balance")
	}

	sameSide := validEntryParams(t)
	sameSide.ID = "JE-tx-1-01A-L3"
	sameSide.AccountType = AccountTypeLiability
	liabilityDebit, _ := NewLedgerEntry(sameSide)

	if debit.BalancesWith(liabilityDebit) {
		t.Error("two debit lines must never balance, whatever the account types")
	}

	smaller := validEntryParams(t)
	smaller.EntryType = EntryTypeCredit
	smaller.Amount = mustMoney(t, "99.99", "USD")
	smallerCredit, _ := NewLedgerEntry(smaller)

	if debit.BalancesWith(smallerCredit) {
		t.Error("different amounts must not balance")
	}

	otherCurrency := validEntryParams(t)
	otherCurrency.AccountType = AccountTypeRevenue
	otherCurrency.EntryType = EntryTypeCredit
	otherCurrency.Amount = mustMoney(t, "100.00", "EUR")
	eurCredit, _ := NewLedgerEntry(otherCurrency)

	if debit.BalancesWith(eurCredit) {
		t.Error("different currencies must not balance")
	}
}

func TestLedgerEntry_CreateReversingEntry(t *testing.T) {
	params := validEntryParams(t)
	params.Description = "Coffee purchase"
	entry, err := NewLedgerEntry(params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reversing, err := entry.CreateReversingEntry("REV-JE-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if reversing.ID != "REV-JE-1-"+entry.ID {
		t.Errorf("ID = %q", reversing.ID)
	}
	if reversing.EntryType != EntryTypeCredit {
		t.Errorf("EntryType = %q, want CREDIT", reversing.EntryType)
	}
	if reversing.JournalEntryID != "REV-JE-1" {
		t.Errorf("JournalEntryID = %q", reversing.JournalEntryID)
	}
	if !reversing.Amount.Equals(entry.Amount) {
		t.Errorf("Amount = %s, want %s", reversing.Amount, entry.Amount)
	}
	if reversing.Description != "Reversal of: Coffee purchase" {
		t.Errorf("Description = %q", reversing.Description)
	}
	if !entry.BalancesWith(reversing) {
		t.Error("reversing entry must offset the original")
	}
}

func TestLedgerEntry_Matches(t *testing.T) {
	params := validEntryParams(t)
	params.ReferenceID = "inv-42"
	params.ReferenceType = "invoice"
	entry, err := NewLedgerEntry(params)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	min := mustMoney(t, "50.00", "USD")
	max := mustMoney(t, "80.00", "USD")

	tests := []struct {
		name     string
		criteria EntryCriteria
		want     bool
	}{
		{"empty criteria matches all", EntryCriteria{}, true},
		{"matching account type", EntryCriteria{AccountType: AccountTypeAsset}, true},
		{"mismatched account type", EntryCriteria{AccountType: AccountTypeRevenue}, false},
		{"matching entry type and reference", EntryCriteria{EntryType: EntryTypeDebit, ReferenceID: "inv-42"}, true},
		{"mismatched reference", EntryCriteria{ReferenceID: "inv-0"}, false},
		{"amount above minimum", EntryCriteria{MinAmount: &min}, true},
		{"amount above maximum", EntryCriteria{MaxAmount: &max}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := entry.Matches(tt.criteria); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}
