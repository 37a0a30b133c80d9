// Package services holds the business rules: identity, catalog, the order
// engine and its status simulator, payments and receipts, and reporting.
package services

import "errors"

var (
	ErrUnauthorized       = errors.New("missing or invalid session token")
	ErrForbidden          = errors.New("insufficient role")
	ErrNotFound           = errors.New("not found")
	ErrInvalidCart        = errors.New("no valid items in cart")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrAlreadyPaid        = errors.New("order already paid")
	ErrPaymentDeclined    = errors.New("payment declined")
	ErrEmailTaken         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
