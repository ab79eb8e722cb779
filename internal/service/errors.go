package service

import (
	"errors"
	"fmt"

	"letter-order-service/internal/repository"
	"letter-order-service/internal/status"
)

// Business errors exported for the controller to map onto HTTP codes.
var (
	ErrNotFound          = repository.ErrNotFound
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrAlreadyPaid       = errors.New("order is already paid")
	ErrAmountNotSet      = errors.New("order total has not been finalized")
	ErrPDFLocked         = errors.New("pdf generation currently locked / in progress")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrProvider          = errors.New("payment provider error")
)

// ValidationError rejects malformed or oversized input before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// StatusConflictError is the optimistic-lock mismatch: the order is not in
// the status the caller expected. Current lets the caller detect what it
// raced against.
type StatusConflictError struct {
	Expected status.Status
	Current  status.Status
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("expected status %s but order is currently in %s", e.Expected, e.Current)
}
