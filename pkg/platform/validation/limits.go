package validation

import (
	"fmt"
	"unicode/utf8"

	dErrors "etatcivil/pkg/domain-errors"
)

// Slice element count limits
const (
	// MaxStatusFilters bounds the status filter of a declaration listing.
	MaxStatusFilters = 7
)

// String element length limits, in characters.
const (
	// MaxNameLength applies to child and parent names and professions.
	MaxNameLength = 100

	// MaxPlaceLength applies to birth places, facility names and addresses.
	MaxPlaceLength = 200

	// MaxReasonLength applies to rejection reasons.
	MaxReasonLength = 1000

	// MaxChannelLength applies to payment channel names.
	MaxChannelLength = 32

	// MaxReferenceLength applies to payment references.
	MaxReferenceLength = 64
)

// CheckSliceCount validates that a slice does not exceed the maximum count.
func CheckSliceCount(fieldName string, count, max int) error {
	if count > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("too many %s: max %d allowed", fieldName, max))
	}
	return nil
}

// CheckStringLength validates that a string does not exceed the maximum
// number of characters.
func CheckStringLength(fieldName, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("%s exceeds max length of %d", fieldName, max))
	}
	return nil
}

// Field pairs a field name with its value for CheckLengths.
type Field struct {
	Name  string
	Value string
}

// CheckLengths returns the first CheckStringLength failure among fields.
func CheckLengths(max int, fields ...Field) error {
	for _, f := range fields {
		if err := CheckStringLength(f.Name, f.Value, max); err != nil {
			return err
		}
	}
	return nil
}
