package model

import "time"

// Allocation statuses as stored in seat_allocations.occupant_status.
// RESERVED, ARRIVED and SEATED all count as actively occupying the
// seat; FINISHED, NO_SHOW and CANCELED are terminal and always come
// with a released_at timestamp.
const (
    AllocationReserved = "RESERVED"
    AllocationArrived  = "ARRIVED"
    AllocationSeated   = "SEATED"
    AllocationFinished = "FINISHED"
    AllocationNoShow   = "NO_SHOW"
    AllocationCanceled = "CANCELED"
)

// SeatAllocation is a time-bounded claim of one seat by one occupant.
// Rows are never hard-deleted; a terminal transition sets ReleasedAt
// and the row drops out of occupancy while remaining as history.
//
// Core invariant: for any seat, allocations with ReleasedAt == nil
// must have pairwise non-overlapping [StartsAt, EndsAt) windows.
//
// Fields:
//  ID           – primary key identifier.
//  SeatID       – seat being claimed.
//  OccupantType – RESERVATION or WAITLIST.
//  OccupantID   – numeric ID of the occupant record.
//  StartsAt     – inclusive start of the claim window (UTC).
//  EndsAt       – exclusive end of the claim window (UTC).
//  Status       – see the Allocation* constants.
//  ReleasedAt   – set when the allocation stops being active.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type SeatAllocation struct {
    ID           uint64     // seat_allocations.id
    SeatID       uint64     // seat_allocations.seat_id
    OccupantType string     // seat_allocations.occupant_type
    OccupantID   uint64     // seat_allocations.occupant_id
    StartsAt     time.Time  // seat_allocations.starts_at
    EndsAt       time.Time  // seat_allocations.ends_at
    Status       string     // seat_allocations.occupant_status
    ReleasedAt   *time.Time // seat_allocations.released_at (nullable)
    CreatedAt    time.Time  // seat_allocations.created_at
    UpdatedAt    time.Time  // seat_allocations.updated_at
}

// Occupant returns the allocation's occupant reference.
func (a *SeatAllocation) Occupant() OccupantRef {
    return OccupantRef{Type: a.OccupantType, ID: a.OccupantID}
}

// Active reports whether the allocation currently occupies its seat:
// not yet released and not in a terminal status.
func (a *SeatAllocation) Active() bool {
    if a.ReleasedAt != nil {
        return false
    }
    switch a.Status {
    case AllocationReserved, AllocationArrived, AllocationSeated:
        return true
    }
    return false
}

// TerminalAllocationStatus reports whether s is one of the terminal
// allocation statuses.
func TerminalAllocationStatus(s string) bool {
    switch s {
    case AllocationFinished, AllocationNoShow, AllocationCanceled:
        return true
    }
    return false
}
