package services

import (
	"errors"
	"fmt"

	"bizdesk-backend/datastore"
)

var (
	ErrCustomerRequired  = errors.New("customer is required")
	ErrNoItems           = errors.New("document needs at least one item")
	ErrInvalidQuantity   = errors.New("item quantity must be greater than zero")
	ErrInvalidPrice      = errors.New("item unit price cannot be negative")
	ErrInvalidPercent    = errors.New("percentages must be between 0 and 100")
	ErrDescription       = errors.New("item needs a product or a description")
	ErrInvalidStatus     = errors.New("status is not allowed for this document")
	ErrInvalidAmount     = errors.New("amount must be greater than zero")
	ErrInsufficientFunds = errors.New("amount exceeds what is available")
	ErrCustomerMismatch  = errors.New("documents belong to different customers")
	ErrAlreadyConverted  = errors.New("quotation has already been converted")
	ErrInvalidInput      = errors.New("invalid input")

	ErrNotFound = errors.New("not found")
)

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Err     error
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// ConflictError is a constraint violation reported by the store.
type ConflictError struct {
	Constraint string
	Err        error
}

func (e *ConflictError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("conflict on %s: %v", e.Constraint, e.Err)
	}
	return fmt.Sprintf("conflict: %v", e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// DependencyMissingError means a table or procedure the operation needs does
// not exist in the database.
type DependencyMissingError struct {
	What string
	Hint string
	Err  error
}

func (e *DependencyMissingError) Error() string {
	return "setup required: " + e.What
}

func (e *DependencyMissingError) Unwrap() error { return e.Err }

// SideEffectWarning records a best-effort step that failed after the primary
// write succeeded.
type SideEffectWarning struct {
	Step string
	Err  error
}

func (w *SideEffectWarning) Error() string {
	return fmt.Sprintf("%s: %v", w.Step, w.Err)
}

func (w *SideEffectWarning) Unwrap() error { return w.Err }

// translate turns store errors into the service error types.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var se *datastore.Error
	if !errors.As(err, &se) {
		return err
	}
	switch se.Kind {
	case datastore.KindConflict, datastore.KindForeignKey:
		return &ConflictError{Constraint: se.Constraint, Err: err}
	case datastore.KindDependencyMissing:
		return &DependencyMissingError{What: se.Message, Hint: se.Hint, Err: err}
	case datastore.KindNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case datastore.KindInvalid:
		return &ValidationError{Err: ErrInvalidInput, Details: se.Message}
	default:
		return err
	}
}

// UserMessage renders err for a toast or an API error body.
func UserMessage(err error) string {
	var (
		ve *ValidationError
		ce *ConflictError
		de *DependencyMissingError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Error()
	case errors.As(err, &de):
		return fmt.Sprintf("Setup required: %s. Run the database setup and try again.", de.What)
	case errors.As(err, &ce):
		if ce.Constraint == "" {
			return "The record conflicts with existing data"
		}
		return "The record conflicts with existing data (" + ce.Constraint + ")"
	default:
		return err.Error()
	}
}

// FromStore converts a store error into the service error types. Other
// errors are returned unchanged.
func FromStore(err error) error {
	var (
		ve *ValidationError
		ce *ConflictError
		de *DependencyMissingError
	)
	if errors.As(err, &ve) || errors.As(err, &ce) || errors.As(err, &de) || errors.Is(err, ErrNotFound) {
		return err
	}
	return translate(err)
}
