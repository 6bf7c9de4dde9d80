package service

import (
	"errors"
	"fmt"

	"deonai-be/pkg/database"
)

var (
	ErrNotFound   = errors.New("conversation not found")
	ErrValidation = errors.New("validation failed")
	ErrStore      = errors.New("store error")
)

// ValidationError names the offending field. It matches ErrValidation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// storeError classifies a persistence failure. References to conversations
// that do not exist (or are hidden by row-level security) become ErrNotFound;
// everything else is ErrStore.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if database.IsForeignKeyViolation(err) || database.IsInvalidInput(err) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}
