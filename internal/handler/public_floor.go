package handler

import (
    "net/http"
    "sort"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/tavolo/restaurant-seat-allocation/internal/allocation"
)

// PublicHandler exposes the active floor plan and the occupancy index
// without authentication, so reservation and waitlist UIs can render
// seat pickers for guests.
type PublicHandler struct {
    Layouts     LayoutSource
    Allocations AllocationReader
}

// NewPublicHandler constructs a PublicHandler.  All dependencies must
// be non-nil.
func NewPublicHandler(layouts LayoutSource, allocations AllocationReader) *PublicHandler {
    if layouts == nil || allocations == nil {
        panic("nil dependency passed to NewPublicHandler")
    }
    return &PublicHandler{Layouts: layouts, Allocations: allocations}
}

// GetActiveLayout handles GET /v1/layouts/active.  It returns the
// active layout with its sections and seats grouped per section, in
// stable order.  Responds 404 when no layout is active.
func (h *PublicHandler) GetActiveLayout(c echo.Context) error {
    ctx := c.Request().Context()
    layout, err := h.Layouts.GetActive(ctx)
    if err != nil {
        return engineError(c, err)
    }
    sections, err := h.Layouts.ListSections(ctx, layout.ID)
    if err != nil {
        return engineError(c, err)
    }
    seats, err := h.Layouts.ListSeats(ctx, layout.ID)
    if err != nil {
        return engineError(c, err)
    }

    type seatJSON struct {
        Label    string `json:"label"`
        Capacity uint32 `json:"capacity"`
        PosX     int32  `json:"pos_x"`
        PosY     int32  `json:"pos_y"`
    }
    type sectionJSON struct {
        ID          uint64     `json:"id"`
        Name        string     `json:"name"`
        SectionType string     `json:"type"`
        Orientation string     `json:"orientation"`
        FloorNo     uint32     `json:"floor_no"`
        OffsetX     int32      `json:"offset_x"`
        OffsetY     int32      `json:"offset_y"`
        Seats       []seatJSON `json:"seats"`
    }

    bySection := make(map[uint64][]seatJSON)
    for _, s := range seats {
        bySection[s.SectionID] = append(bySection[s.SectionID], seatJSON{
            Label: s.Label, Capacity: s.Capacity, PosX: s.PosX, PosY: s.PosY,
        })
    }
    out := make([]sectionJSON, 0, len(sections))
    for _, sec := range sections {
        sj := sectionJSON{
            ID: sec.ID, Name: sec.Name, SectionType: wireStatus(sec.SectionType),
            Orientation: sec.Orientation, FloorNo: sec.FloorNo,
            OffsetX: sec.OffsetX, OffsetY: sec.OffsetY,
            Seats: bySection[sec.ID],
        }
        if sj.Seats == nil {
            sj.Seats = []seatJSON{}
        }
        out = append(out, sj)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "id":       layout.ID,
        "name":     layout.Name,
        "sections": out,
    })
}

// GetActiveSeats handles GET /v1/layouts/active/seats.  It returns
// the flat seat list of the active layout in stable enumeration order
// (section order, then seat order within the section).
func (h *PublicHandler) GetActiveSeats(c echo.Context) error {
    ctx := c.Request().Context()
    layout, err := h.Layouts.GetActive(ctx)
    if err != nil {
        return engineError(c, err)
    }
    seats, err := h.Layouts.ListSeats(ctx, layout.ID)
    if err != nil {
        return engineError(c, err)
    }
    type seatJSON struct {
        Label    string `json:"label"`
        Capacity uint32 `json:"capacity"`
    }
    out := make([]seatJSON, 0, len(seats))
    for _, s := range seats {
        out = append(out, seatJSON{Label: s.Label, Capacity: s.Capacity})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetOccupancy handles GET /v1/occupancy?date=YYYY-MM-DD[&at=RFC3339].
// It recomputes the occupied seat label set for the requested UTC day
// (or a single instant when at= is given) from the current allocation
// rows.  The result is never cached server-side; occupancy changes
// with every allocation operation.
func (h *PublicHandler) GetOccupancy(c echo.Context) error {
    day, err := parseDate(c.QueryParam("date"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
    }
    query := allocation.DayWindow(day)
    if raw := c.QueryParam("at"); raw != "" {
        at, err := time.Parse(time.RFC3339, raw)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid at, want RFC3339"})
        }
        at = at.UTC()
        query = allocation.Window{Start: at, End: at.Add(time.Nanosecond)}
    }

    ctx := c.Request().Context()
    ix, err := activeLabelIndex(ctx, h.Layouts)
    if err != nil {
        return engineError(c, err)
    }
    allocs, err := h.Allocations.AllocationsIntersecting(ctx, query.Start, query.End)
    if err != nil {
        return engineError(c, err)
    }
    occupied := allocation.ComputeOccupiedLabels(query, allocs, ix.LabelBySeatID())

    labels := make([]string, 0, len(occupied))
    for label := range occupied {
        labels = append(labels, label)
    }
    sort.Strings(labels)
    return c.JSON(http.StatusOK, echo.Map{
        "date":     query.Start.Format("2006-01-02"),
        "occupied": labels,
    })
}
