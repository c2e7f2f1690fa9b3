package model

import "time"

// Layout is the full seating geometry of the venue: a named set of
// sections and their seats.  Staff may keep several layouts around
// (seasonal floor plans, private-event setups) but at most one is
// active at a time; occupancy and allocation logic always operate on
// the active layout.
//
// Fields:
//  ID        – primary key identifier.
//  Name      – human readable name of the floor plan.
//  IsActive  – whether this layout is the one currently in use.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Layout struct {
    ID        uint64    // layouts.id
    Name      string    // layouts.name
    IsActive  bool      // layouts.is_active
    CreatedAt time.Time // layouts.created_at
    UpdatedAt time.Time // layouts.updated_at
}
