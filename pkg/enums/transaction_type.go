package enums

import "fmt"

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionTypeAdd    TransactionType = "ADD"
	TransactionTypeRemove TransactionType = "REMOVE"
	TransactionTypeEdit   TransactionType = "EDIT"
)

var validTransactionTypes = []TransactionType{
	TransactionTypeAdd,
	TransactionTypeRemove,
	TransactionTypeEdit,
}

// IsValid reports whether the value matches a known transaction type.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
