package domain

import (
	"errors"
	"fmt"
)

// NetworkError is a transport level failure: connection, timeout, open
// circuit or a response without a readable envelope.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ApplicationError is a response where the server set its error flag.
// Message is the server text, unmodified.
type ApplicationError struct {
	Op      string
	Message string
}

func (e *ApplicationError) Error() string {
	return e.Message
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

var (
	ErrNotLoggedIn         = &ValidationError{Field: "session", Reason: "user is not logged in"}
	ErrEmptyCart           = &ValidationError{Field: "cart", Reason: "cart is empty, nothing to checkout"}
	ErrStaleCart           = &ValidationError{Field: "cart", Reason: "cart changed since last checkout, reload it first"}
	ErrInvalidQuantity     = &ValidationError{Field: "quantity", Reason: "quantity must be at least 1"}
	ErrMissingPayment      = &ValidationError{Field: "payment_method", Reason: "payment method is required"}
	ErrMissingAddress      = &ValidationError{Field: "address", Reason: "address is required for delivery"}
	ErrMissingCourier      = &ValidationError{Field: "courier", Reason: "courier is required for delivery"}
	ErrInvalidShipping     = &ValidationError{Field: "shipping_mode", Reason: "unknown shipping mode"}
	ErrLocationUnavailable = &ValidationError{Field: "location", Reason: "device location is unavailable"}
)

// ErrorMessage returns the text shown to the user for err. Server messages
// are passed through verbatim.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	var valErr *ValidationError
	if errors.As(err, &valErr) {
		return valErr.Reason
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.Err.Error()
	}
	return err.Error()
}

func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

func IsApplicationError(err error) bool {
	var appErr *ApplicationError
	return errors.As(err, &appErr)
}

func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}
