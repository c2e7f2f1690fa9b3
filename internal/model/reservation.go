package model

import "time"

// Reservation statuses as stored in reservations.status.  BOOKED is
// the state before any seats have been allocated; RESERVED and SEATED
// mirror the party's live allocations; the remaining three are
// terminal.
const (
    ReservationBooked   = "BOOKED"
    ReservationReserved = "RESERVED"
    ReservationSeated   = "SEATED"
    ReservationFinished = "FINISHED"
    ReservationCanceled = "CANCELED"
    ReservationNoShow   = "NO_SHOW"
)

// MaxPreferenceSets caps the number of ranked seat-preference sets a
// reservation may carry.
const MaxPreferenceSets = 3

// Reservation records a booked party.  While the status is RESERVED or
// SEATED the party's assigned seats correspond to exactly one active
// SeatAllocation per seat; the engine keeps the two in step inside a
// single transaction.
//
// Fields:
//  ID          – primary key identifier.
//  PublicRef   – UUID handed to clients; numeric IDs stay internal.
//  Name        – contact name of the party.
//  Phone       – contact phone number.
//  PartySize   – number of guests (>= 1).
//  StartsAt    – requested start of the visit (UTC).
//  DurationMin – planned visit length in minutes.
//  Status      – see the Reservation* constants.
//  Preferences – ranked seat-preference sets, first choice at index 0.
//                Each set is one complete seating option for the party.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Reservation struct {
    ID          uint64     // reservations.id
    PublicRef   string     // reservations.public_ref
    Name        string     // reservations.name
    Phone       string     // reservations.phone
    PartySize   uint32     // reservations.party_size
    StartsAt    time.Time  // reservations.starts_at
    DurationMin uint32     // reservations.duration_min
    Status      string     // reservations.status
    Preferences [][]string // reservation_preferences rows, ordered by rank
    CreatedAt   time.Time  // reservations.created_at
    UpdatedAt   time.Time  // reservations.updated_at
}

// EndsAt returns the end of the reservation's requested window.
func (r *Reservation) EndsAt() time.Time {
    return r.StartsAt.Add(time.Duration(r.DurationMin) * time.Minute)
}
