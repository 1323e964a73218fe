package domain

import (
	"strings"
	"testing"
)

func TestValidateCurrency(t *testing.T) {
	tests := []struct {
		name        string
		currency    string
		expectError bool
	}{
		{"valid USD", "USD", false},
		{"lower case normalized", "eur", false},
		{"surrounding whitespace trimmed", " BRL ", false},
		{"unknown code", "ABC", true},
		{"empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCurrency(tt.currency)

			if tt.expectError && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateRequired(t *testing.T) {
	if err := ValidateRequired("userId", "u-1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := ValidateRequired("userId", "   ")
	if err == nil {
		t.Fatal("expected error for blank value")
	}
	if !strings.Contains(err.Error(), "userId") {
		t.Errorf("error %q should name the field", err)
	}
}

func TestValidateDescription(t *testing.T) {
	if err := ValidateDescription("Coffee"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if err := ValidateDescription(""); err == nil {
		t.Error("expected error for empty description")
	}

	if err := ValidateDescription(strings.Repeat("x", MaxDescriptionLength+1)); err == nil {
		t.Error("expected error for oversized description")
	}
}

func TestValidateMetadata(t *testing.T) {
	if err := ValidateMetadata(nil); err != nil {
		t.Errorf("nil metadata: %v", err)
	}

	if err := ValidateMetadata(map[string]any{"category": "food"}); err != nil {
		t.Errorf("small metadata: %v", err)
	}

	big := map[string]any{"blob": strings.Repeat("x", MaxMetadataSize+1)}
	if err := ValidateMetadata(big); err == nil {
		t.Error("expected error for oversized metadata")
	}
}

func TestAccountType(t *testing.T) {
	for _, at := range []AccountType{
		AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense,
	} {
		if !at.Valid() {
			t.Errorf("%q must be valid", at)
		}
	}

	if AccountType("BANK").Valid() {
		t.Error("BANK must be invalid")
	}

	if !AccountTypeAsset.DebitIncreases() || !AccountTypeExpense.DebitIncreases() {
		t.Error("debits must increase ASSET and EXPENSE accounts")
	}
	if AccountTypeLiability.DebitIncreases() || AccountTypeRevenue.DebitIncreases() || AccountTypeEquity.DebitIncreases() {
		t.Error("debits must decrease LIABILITY, EQUITY and REVENUE accounts")
	}
}

func TestEntryType(t *testing.T) {
	if !EntryTypeDebit.Valid() || !EntryTypeCredit.Valid() {
		t.Error("DEBIT and CREDIT must be valid")
	}
	if EntryType("WITHDRAW").Valid() {
		t.Error("WITHDRAW must be invalid")
	}

	if EntryTypeDebit.Opposite() != EntryTypeCredit {
		t.Error("opposite of DEBIT must be CREDIT")
	}
	if EntryTypeCredit.Opposite() != EntryTypeDebit {
		t.Error("opposite of CREDIT must be DEBIT")
	}
}

func TestTransactionType(t *testing.T) {
	for _, tt := range []TransactionType{
		TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer,
	} {
		if !tt.Valid() {
			t.Errorf("%q must be valid", tt)
		}
	}

	if TransactionType("refund").Valid() {
		t.Error("refund must be invalid")
	}
}
