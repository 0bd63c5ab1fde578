package service

import (
	"errors"
	"fmt"
)

// Validation failures. Each is client-correctable and maps to a 4xx.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrEmptyOrder       = errors.New("empty order")
	ErrTooManyLines     = errors.New("too many order lines")
	ErrInvalidItem      = errors.New("invalid item")
	ErrProductNotFound  = errors.New("product not found")
	ErrBelowMinimum     = errors.New("order total below minimum")
	ErrInvalidPaymentID = errors.New("invalid payment id")
)

// ValidationError carries a message that is safe to show to the customer.
type ValidationError struct {
	Kind    error
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Kind }

func invalid(kind error, format string, args ...any) error {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is client-correctable.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
