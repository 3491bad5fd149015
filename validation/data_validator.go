// Package validation checks user supplied request parameters before they
// reach the store.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxQueryLength  = 255
	MaxDrugIDLength = 50
)

var (
	// ErrInvalidID is returned for ids that cannot name any record
	ErrInvalidID = errors.New("invalid id")

	drugIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._\-]*$`)
)

// DataValidatorImpl implements interfaces.InputValidator
type DataValidatorImpl struct{}

// NewDataValidator creates a new validator
func NewDataValidator() *DataValidatorImpl {
	return &DataValidatorImpl{}
}

// ValidateSearchQuery accepts an empty query (no filter) or any printable
// text up to MaxQueryLength characters. Queries are bound as parameters and
// LIKE-escaped by the store, so punctuation is matched literally.
func (v *DataValidatorImpl) ValidateSearchQuery(input string) error {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil
	}

	if !utf8.ValidString(trimmed) {
		return fmt.Errorf("query is not valid UTF-8")
	}
	if utf8.RuneCountInString(trimmed) > MaxQueryLength {
		return fmt.Errorf("query too long: maximum %d characters", MaxQueryLength)
	}
	if strings.IndexFunc(trimmed, isControl) >= 0 {
		return fmt.Errorf("query contains control characters")
	}
	return nil
}

// ValidateDrugID checks the shape of a registration id such as VN-16282-13
func (v *DataValidatorImpl) ValidateDrugID(input string) error {
	if input == "" {
		return fmt.Errorf("%w: drug id cannot be empty", ErrInvalidID)
	}
	if len(input) > MaxDrugIDLength {
		return fmt.Errorf("%w: drug id longer than %d characters", ErrInvalidID, MaxDrugIDLength)
	}
	if !drugIDRegex.MatchString(input) {
		return fmt.Errorf("%w: drug id contains invalid characters", ErrInvalidID)
	}
	return nil
}

// ParseInteractionID parses a positive decimal interaction id
func (v *DataValidatorImpl) ParseInteractionID(input string) (uint, error) {
	if input == "" || input[0] == '+' {
		return 0, fmt.Errorf("%w: interaction id must be a positive integer", ErrInvalidID)
	}
	id, err := strconv.ParseUint(input, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: interaction id must be a positive integer", ErrInvalidID)
	}
	return uint(id), nil
}

// isControl reports control characters other than ordinary whitespace
func isControl(r rune) bool {
	return unicode.IsControl(r) && r != ' ' && r != '\t'
}
