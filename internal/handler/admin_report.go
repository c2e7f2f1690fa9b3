package handler

import (
    "context"
    "fmt"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/tavolo/restaurant-seat-allocation/internal/allocation"
    "github.com/tavolo/restaurant-seat-allocation/internal/model"
    "github.com/tavolo/restaurant-seat-allocation/internal/report"
)

// OccupantResolver resolves numeric occupant IDs back to their
// public refs for exports.
type OccupantResolver interface {
    ReservationByID(ctx context.Context, id uint64) (*model.Reservation, error)
    WaitlistByID(ctx context.Context, id uint64) (*model.WaitlistEntry, error)
}

// ReportHandler serves back-office exports.
type ReportHandler struct {
    Layouts     LayoutSource
    Allocations AllocationReader
    Occupants   OccupantResolver
}

// NewReportHandler constructs a ReportHandler.
func NewReportHandler(layouts LayoutSource, allocations AllocationReader, occupants OccupantResolver) *ReportHandler {
    return &ReportHandler{Layouts: layouts, Allocations: allocations, Occupants: occupants}
}

// OccupancyExport handles GET /v1/reports/occupancy.xlsx.  It renders
// every allocation of the requested day, released ones included, as
// an xlsx attachment.
func (h *ReportHandler) OccupancyExport(c echo.Context) error {
    day, err := parseDate(c.QueryParam("date"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, expected YYYY-MM-DD"})
    }
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

    window := allocation.DayWindow(day)
    allocs, err := h.Allocations.AllocationsIntersecting(ctx, window.Start, window.End)
    if err != nil {
        return engineError(c, err)
    }

    refs, err := h.resolveRefs(ctx, allocs)
    if err != nil {
        return engineError(c, err)
    }

    rows := report.BuildOccupancyRows(seats, sections, allocs, refs)
    data, err := report.OccupancyWorkbook(day, rows)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to build report"})
    }

    filename := fmt.Sprintf("occupancy-%s.xlsx", day.Format("2006-01-02"))
    c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
    return c.Blob(http.StatusOK,
        "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// resolveRefs looks up the public ref of every distinct occupant in
// the allocation list.  An occupant whose row has gone missing keeps
// an empty ref instead of failing the export.
func (h *ReportHandler) resolveRefs(ctx context.Context, allocs []model.SeatAllocation) (map[model.OccupantRef]string, error) {
    refs := make(map[model.OccupantRef]string)
    for _, a := range allocs {
        occ := a.Occupant()
        if _, done := refs[occ]; done {
            continue
        }
        switch occ.Type {
        case model.OccupantReservation:
            res, err := h.Occupants.ReservationByID(ctx, occ.ID)
            if err != nil {
                refs[occ] = ""
                continue
            }
            refs[occ] = res.PublicRef
        case model.OccupantWaitlist:
            entry, err := h.Occupants.WaitlistByID(ctx, occ.ID)
            if err != nil {
                refs[occ] = ""
                continue
            }
            refs[occ] = entry.PublicRef
        }
    }
    return refs, nil
}
