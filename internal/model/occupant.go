package model

// Occupant types as stored in seat_allocations.occupant_type.  An
// occupant is whichever party holds seat allocations: a reservation
// made ahead of time or a walk-in waitlist entry.  The allocation
// engine only ever sees this abstraction and never branches on the
// concrete record behind it.
const (
    OccupantReservation = "RESERVATION"
    OccupantWaitlist    = "WAITLIST"
)

// OccupantRef identifies one occupant.  ID is the numeric primary key
// of the underlying reservation or waitlist row.
type OccupantRef struct {
    Type string // RESERVATION or WAITLIST
    ID   uint64
}

// ValidOccupantType reports whether t is a known occupant type.
func ValidOccupantType(t string) bool {
    return t == OccupantReservation || t == OccupantWaitlist
}
