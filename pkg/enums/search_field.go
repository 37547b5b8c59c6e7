package enums

import "fmt"

// SearchField narrows a search to one column. The zero value searches all of them.
type SearchField string

const (
	SearchFieldAll          SearchField = ""
	SearchFieldItemType     SearchField = "item_type"
	SearchFieldSubType      SearchField = "sub_type"
	SearchFieldDetails      SearchField = "details"
	SearchFieldSerialNumber SearchField = "serial_number"
)

var validSearchFields = []SearchField{
	SearchFieldAll,
	SearchFieldItemType,
	SearchFieldSubType,
	SearchFieldDetails,
	SearchFieldSerialNumber,
}

func (f SearchField) IsValid() bool {
	for _, candidate := range validSearchFields {
		if candidate == f {
			return true
		}
	}
	return false
}

// Includes reports whether a search over f covers the target column.
func (f SearchField) Includes(target SearchField) bool {
	return f == SearchFieldAll || f == target
}

func ParseSearchField(value string) (SearchField, error) {
	for _, candidate := range validSearchFields {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid search field %q", value)
}
