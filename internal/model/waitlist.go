package model

import "time"

// Waitlist statuses as stored in waitlist_entries.status.
const (
    WaitlistWaiting = "WAITING"
    WaitlistSeated  = "SEATED"
    WaitlistRemoved = "REMOVED"
    WaitlistNoShow  = "NO_SHOW"
)

// WaitlistEntry is a walk-in party waiting to be seated.  It takes
// part in the same allocation mechanism as a Reservation through the
// occupant abstraction.
//
// Fields:
//  ID          – primary key identifier.
//  PublicRef   – UUID handed to clients.
//  Name        – contact name of the party.
//  Phone       – contact phone number.
//  PartySize   – number of guests (>= 1).
//  CheckedInAt – when the party joined the waitlist (UTC).
//  Status      – see the Waitlist* constants.
type WaitlistEntry struct {
    ID          uint64    // waitlist_entries.id
    PublicRef   string    // waitlist_entries.public_ref
    Name        string    // waitlist_entries.name
    Phone       string    // waitlist_entries.phone
    PartySize   uint32    // waitlist_entries.party_size
    CheckedInAt time.Time // waitlist_entries.checked_in_at
    Status      string    // waitlist_entries.status
}
