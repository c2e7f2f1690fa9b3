package model

// Section types as stored in sections.section_type.
const (
    SectionTypeTable   = "TABLE"
    SectionTypeCounter = "COUNTER"
)

// Section is a group of seats inside a layout, typically a table or a
// stretch of counter.  The orientation, floor number and offset exist
// only so the floor-plan editor can render the section; allocation
// logic never reads them.
//
// Fields:
//  ID          – primary key identifier.
//  LayoutID    – layout to which this section belongs.
//  Name        – display name (e.g. "Table 4", "Counter A").
//  SectionType – TABLE or COUNTER.
//  Orientation – rendering orientation (e.g. "horizontal").
//  FloorNo     – floor number the section sits on.
//  OffsetX     – editor X offset, rendering only.
//  OffsetY     – editor Y offset, rendering only.
//  SortOrder   – position of the section within the layout; drives the
//                stable seat enumeration order.
type Section struct {
    ID          uint64 // sections.id
    LayoutID    uint64 // sections.layout_id
    Name        string // sections.name
    SectionType string // sections.section_type
    Orientation string // sections.orientation
    FloorNo     uint32 // sections.floor_no
    OffsetX     int32  // sections.offset_x
    OffsetY     int32  // sections.offset_y
    SortOrder   uint32 // sections.sort_order
}
