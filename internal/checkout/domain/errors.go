package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared across the checkout core. Handlers classify failures
// with errors.Is / errors.As and map them to transport responses.
var (
	// ErrNotFound is returned when the referenced order, payment or user does
	// not exist or is not visible to the requester.
	ErrNotFound = errors.New("not found")

	// ErrValidation marks client-fault input: empty cart, empty order,
	// bad status string, bad date filter.
	ErrValidation = errors.New("validation failed")

	// ErrAccessDenied is returned when the requester is authenticated but is
	// neither the resource owner nor an administrator.
	ErrAccessDenied = errors.New("access forbidden")

	// ErrConflict is returned when the operation collides with existing state,
	// e.g. the user already has a pending order.
	ErrConflict = errors.New("conflict")

	// ErrInvalidSignature is returned when webhook signature verification
	// fails. The payload must not be trusted in any way after this error.
	ErrInvalidSignature = errors.New("webhook signature verification failed")
)

// Validationf builds a client-fault error matchable via errors.Is(err, ErrValidation).
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// GatewayError reports a failed, timed-out or non-success interaction with
// the external payment gateway. Status carries the gateway's own status
// string when one was returned.
type GatewayError struct {
	Op     string
	Status string
	Err    error
}

func (e *GatewayError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
	case e.Status != "":
		return fmt.Sprintf("payment gateway %s returned status %q", e.Op, e.Status)
	default:
		return fmt.Sprintf("payment gateway %s failed", e.Op)
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }
