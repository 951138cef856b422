package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Sentinel errors of the store. Callers match them with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrNotFound   = errors.New("not found")
)

// ValidationError names the offending field. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func conflictf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConflict, fmt.Sprintf(format, args...))
}

func notFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// ErrorKind classifies err for logs, metrics and HTTP status mapping.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}

// translateError maps gorm and driver errors onto the store taxonomy.
func translateError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) || errors.Is(err, ErrNotFound) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFoundf("%s", what)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return conflictf("%s already exists", what)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return notFoundf("%s references a missing row", what)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return invalid(what, "check constraint violated")
	}

	// Fallback for driver messages the dialector does not translate.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"), strings.Contains(msg, "duplicate key value"):
		return conflictf("%s already exists", what)
	case strings.Contains(msg, "foreign key constraint"):
		return notFoundf("%s references a missing row", what)
	case strings.Contains(msg, "check constraint"):
		return invalid(what, "check constraint violated")
	}
	return fmt.Errorf("%s: %w", what, err)
}
