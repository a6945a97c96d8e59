package domain

import (
	"errors"
	"fmt"
)

// Admission errors. All are rejected before any remote call and leave
// the session state unchanged.
var (
	// ErrIncompleteIdentity is returned when any identity field is empty
	ErrIncompleteIdentity = errors.New("identity fields name, house_flat_no and landmark are required")

	// ErrInvalidBounds is returned when total units or parallelism is below 1
	ErrInvalidBounds = errors.New("total orders and parallel windows must be at least 1")

	// ErrNoValidProducts is returned when no product entry has a non-empty URL
	ErrNoValidProducts = errors.New("at least one product with a non-empty url is required")

	// ErrPriceNotSet is returned when the remote per-unit price is absent or zero
	ErrPriceNotSet = errors.New("service price is not set")

	// ErrInsufficientBalance is returned when the account balance is zero or negative
	ErrInsufficientBalance = errors.New("account balance is not positive")

	// ErrAlreadyRunning is returned when a start is attempted while a run is live
	ErrAlreadyRunning = errors.New("a run is already in progress")

	// ErrNotTerminal is returned when reset is called before the run finished
	ErrNotTerminal = errors.New("session is not in a terminal state")

	// ErrNotRunning is returned when stop is called with no live run
	ErrNotRunning = errors.New("no run is in progress")
)

// CapacityError rejects a request for more units than the balance can
// pay for.
type CapacityError struct {
	Requested int
	Capacity  int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("requested %d orders but balance covers only %d", e.Requested, e.Capacity)
}

// StartRejectedError carries the remote-supplied reason for a refused
// start request. The session reverts to IDLE.
type StartRejectedError struct {
	Reason string
}

func (e *StartRejectedError) Error() string {
	return "remote rejected start: " + e.Reason
}

// StopFailedError carries the remote-supplied reason for a failed stop
// request. The session stays RUNNING so the stop can be retried.
type StopFailedError struct {
	Reason string
}

func (e *StopFailedError) Error() string {
	return "remote stop failed: " + e.Reason
}
