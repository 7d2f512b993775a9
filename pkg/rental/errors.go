package rental

import (
	"errors"
	"fmt"
)

// Error classes surfaced by the booking engine. Specific errors wrap one of these.
var (
	ErrNotFound           = errors.New("not found")
	ErrSchedulingConflict = errors.New("scheduling conflict")
	ErrInvalidState       = errors.New("invalid state")
	ErrInvalidGranularity = errors.New("invalid granularity")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInternal           = errors.New("internal error")
)

// Domain-level error values returned by the rental services.
var (
	ErrUnitNotFound          = fmt.Errorf("unit %w", ErrNotFound)
	ErrModelNotFound         = fmt.Errorf("model %w", ErrNotFound)
	ErrRenterNotFound        = fmt.Errorf("renter %w", ErrNotFound)
	ErrBookingNotFound       = fmt.Errorf("booking %w", ErrNotFound)
	ErrUnitUnavailable       = fmt.Errorf("unit unavailable: %w", ErrSchedulingConflict)
	ErrBookingClosed         = fmt.Errorf("booking closed: %w", ErrInvalidState)
	ErrInvalidWindow         = errors.New("invalid window")
	ErrInvalidRenterID       = errors.New("invalid renter id")
	ErrInvalidUnitID         = errors.New("invalid unit id")
	ErrInvalidModelID        = errors.New("invalid model id")
	ErrInvalidBookingID      = errors.New("invalid booking id")
	ErrInvalidAmountCents    = errors.New("invalid amount cents")
	ErrInvalidMetadataJSON   = errors.New("invalid metadata json")
	ErrInvalidServiceConfig  = errors.New("invalid service config")
	ErrInvalidConflictPolicy = errors.New("invalid conflict policy")
	ErrInvalidInput          = errors.New("invalid input")
	ErrRateUnavailable       = errors.New("rate unavailable")
	ErrDuplicateNumberPlate  = errors.New("duplicate number plate")
	ErrDuplicateEmail        = errors.New("duplicate email")
	ErrModelInUse            = errors.New("model in use")
)

var domainErrors = []error{
	ErrNotFound,
	ErrSchedulingConflict,
	ErrInvalidState,
	ErrInvalidGranularity,
	ErrUnauthorized,
	ErrInvalidWindow,
	ErrInvalidRenterID,
	ErrInvalidUnitID,
	ErrInvalidModelID,
	ErrInvalidBookingID,
	ErrInvalidAmountCents,
	ErrInvalidMetadataJSON,
	ErrInvalidConflictPolicy,
	ErrInvalidInput,
	ErrRateUnavailable,
	ErrDuplicateNumberPlate,
	ErrDuplicateEmail,
	ErrModelInUse,
}

// IsDomainError reports whether err belongs to the caller-facing taxonomy.
func IsDomainError(err error) bool {
	for _, domainErr := range domainErrors {
		if errors.Is(err, domainErr) {
			return true
		}
	}
	return false
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
