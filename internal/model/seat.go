package model

// Seat is one physical seat inside a section.  The label is the
// human-facing identifier (e.g. "A1") and must be unique within a
// layout: reservation preferences and the occupancy index exchange
// labels, never raw positions or numeric IDs.
//
// Fields:
//  ID        – primary key identifier.
//  SectionID – section to which this seat belongs.
//  Label     – human readable label, unique per layout.
//  Capacity  – number of guests the seat accommodates (>= 1).
//  PosX      – X position relative to the section, rendering only.
//  PosY      – Y position relative to the section, rendering only.
//  SortOrder – position of the seat within its section.
type Seat struct {
    ID        uint64 // seats.id
    SectionID uint64 // seats.section_id
    Label     string // seats.label
    Capacity  uint32 // seats.capacity
    PosX      int32  // seats.pos_x
    PosY      int32  // seats.pos_y
    SortOrder uint32 // seats.sort_order
}
