package store

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a drug or interaction lookup has no match.
	// It is an expected outcome, not a failure.
	ErrNotFound = errors.New("not found")

	// ErrDrugNotFound is returned when an interaction references a missing drug
	ErrDrugNotFound = errors.New("referenced drug not found")

	// ErrDuplicateDrug is returned when creating a drug whose id is taken
	ErrDuplicateDrug = errors.New("drug id already exists")

	// ErrDuplicatePair is returned when the unordered drug pair already has an interaction
	ErrDuplicatePair = errors.New("interaction already recorded for this drug pair")

	// ErrSelfInteraction is returned when both sides of an interaction are the same drug
	ErrSelfInteraction = errors.New("a drug cannot interact with itself")

	// ErrInvalidSeverity is returned for a severity outside the closed enumeration
	ErrInvalidSeverity = errors.New("invalid severity")
)

// ValidationError reports a missing or malformed required field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func required(field string) error {
	return &ValidationError{Field: field, Message: "is required"}
}

// IsValidation reports whether err is or wraps a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
