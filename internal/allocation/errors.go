// Package allocation implements the seat allocation engine: the
// occupancy index, the seat preference resolver, the conflict guard
// and the allocation state machine.  All operations resolve seats by
// label against the active layout and enforce that no seat ever holds
// two active allocations with overlapping time windows.
package allocation

import (
    "errors"
    "fmt"
    "strings"
    "time"
)

// ErrNoActiveLayout is returned when no layout is marked active.
// Handlers should translate this into an HTTP 404 response.
var ErrNoActiveLayout = errors.New("no active layout")

// ErrNoAllocations is returned by state transitions when the occupant
// has no allocations at all, active or historical.  Handlers should
// translate this into an HTTP 404 response.
var ErrNoAllocations = errors.New("no allocations for occupant")

// UnknownSeatError reports seat labels that do not exist in the
// active layout.
type UnknownSeatError struct {
    Labels []string
}

func (e *UnknownSeatError) Error() string {
    return "unknown seat labels: " + strings.Join(e.Labels, ", ")
}

// InvalidWindowError reports a malformed allocation window where the
// end does not come after the start.
type InvalidWindowError struct {
    Start time.Time
    End   time.Time
}

func (e *InvalidWindowError) Error() string {
    return fmt.Sprintf("invalid window: end %s must be after start %s",
        e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

// SeatConflictError reports an attempted double booking.  Labels
// carries every offending seat label so the caller can surface which
// seats to pick differently.
type SeatConflictError struct {
    Labels []string
}

func (e *SeatConflictError) Error() string {
    return "seat conflict on: " + strings.Join(e.Labels, ", ")
}

// InvalidTransitionError reports a state-machine rule violation, such
// as marking a seated party as a no-show or reserving for an occupant
// that still holds live allocations.
type InvalidTransitionError struct {
    Op     string
    Reason string
}

func (e *InvalidTransitionError) Error() string {
    return fmt.Sprintf("invalid %s transition: %s", e.Op, e.Reason)
}

// StorageError wraps an unexpected failure from the backing store.
// The engine's own rule violations never use it; callers seeing a
// StorageError may retry idempotent transitions or resubmit creates.
type StorageError struct {
    Err error
}

func (e *StorageError) Error() string { return "storage error: " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }
