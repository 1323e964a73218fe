package domain

// AccountType classifies an account in the accounting equation.
type AccountType string

const (
	// AccountTypeAsset increases on the debit side.
	AccountTypeAsset AccountType = "ASSET"
	// AccountTypeLiability increases on the credit side.
	AccountTypeLiability AccountType = "LIABILITY"
	// AccountTypeEquity captures the owner's residual interest.
	AccountTypeEquity AccountType = "EQUITY"
	// AccountTypeRevenue represents inflows that increase equity.
	AccountTypeRevenue AccountType = "REVENUE"
	// AccountTypeExpense represents outflows that decrease equity.
	AccountTypeExpense AccountType = "EXPENSE"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity,
		AccountTypeRevenue, AccountTypeExpense:
		return true
	}

	return false
}

// DebitIncreases reports whether a debit increases this account type's
// natural balance.
func (t AccountType) DebitIncreases() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// EntryType is the side of a ledger entry.
type EntryType string

const (
	EntryTypeDebit  EntryType = "DEBIT"
	EntryTypeCredit EntryType = "CREDIT"
)

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	return t == EntryTypeDebit || t == EntryTypeCredit
}

// Opposite returns the flipped side.
func (t EntryType) Opposite() EntryType {
	if t == EntryTypeDebit {
		return EntryTypeCredit
	}

	return EntryTypeDebit
}
