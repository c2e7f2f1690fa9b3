// Package handler implements the HTTP surface of the seat allocation
// service.  Handlers are grouped by audience: PublicHandler exposes
// the floor plan and occupancy, StaffHandler drives reservations,
// the waitlist and allocation lifecycle operations, and AdminHandler
// manages layouts and reports.  JWT authentication and role checks
// are applied by middleware before any staff or admin handler runs.
package handler

import (
    "context"
    "database/sql"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/tavolo/restaurant-seat-allocation/internal/allocation"
    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

// LayoutSource is the read side of the layout store.
type LayoutSource interface {
    GetActive(ctx context.Context) (*model.Layout, error)
    ListSections(ctx context.Context, layoutID uint64) ([]model.Section, error)
    ListSeats(ctx context.Context, layoutID uint64) ([]model.Seat, error)
}

// AllocationReader serves the occupancy and report queries.
type AllocationReader interface {
    AllocationsIntersecting(ctx context.Context, from, to time.Time) ([]model.SeatAllocation, error)
}

// ReservationStore persists reservations.
type ReservationStore interface {
    Create(ctx context.Context, name, phone string, partySize uint32, startsAt time.Time, durationMin uint32, preferences [][]string) (*model.Reservation, error)
    GetByRef(ctx context.Context, publicRef string) (*model.Reservation, error)
    ListByDate(ctx context.Context, dayStart time.Time) ([]model.Reservation, error)
}

// WaitlistStore persists waitlist entries.
type WaitlistStore interface {
    Create(ctx context.Context, name, phone string, partySize uint32) (*model.WaitlistEntry, error)
    GetByRef(ctx context.Context, publicRef string) (*model.WaitlistEntry, error)
    ListWaiting(ctx context.Context) ([]model.WaitlistEntry, error)
    SetStatus(ctx context.Context, id uint64, status string) error
}

// activeLabelIndex loads the active layout's seats and builds the
// label index allocation logic resolves against.
func activeLabelIndex(ctx context.Context, layouts LayoutSource) (*allocation.LabelIndex, error) {
    layout, err := layouts.GetActive(ctx)
    if err != nil {
        return nil, err
    }
    seats, err := layouts.ListSeats(ctx, layout.ID)
    if err != nil {
        return nil, err
    }
    return allocation.NewLabelIndex(seats), nil
}

// parseDate reads a YYYY-MM-DD query value as the start of a UTC day.
// An empty value defaults to today.
func parseDate(raw string) (time.Time, error) {
    if raw == "" {
        return time.Now().UTC().Truncate(24 * time.Hour), nil
    }
    d, err := time.Parse("2006-01-02", raw)
    if err != nil {
        return time.Time{}, err
    }
    return d.UTC(), nil
}

// normalizeOccupantType maps the JSON occupant type to the stored
// enum.  The wire format uses lowercase.
func normalizeOccupantType(raw string) (string, bool) {
    switch strings.ToLower(strings.TrimSpace(raw)) {
    case "reservation":
        return model.OccupantReservation, true
    case "waitlist":
        return model.OccupantWaitlist, true
    }
    return "", false
}

// wireStatus lowercases a stored status enum for responses, so the
// API speaks "reserved"/"no_show" while the database stores
// RESERVED/NO_SHOW.
func wireStatus(s string) string {
    return strings.ToLower(s)
}

// allocationJSON is the response shape of one seat allocation.
type allocationJSON struct {
    ID         uint64  `json:"id"`
    SeatLabel  string  `json:"seat_label"`
    Occupant   string  `json:"occupant_type"`
    StartsAt   string  `json:"starts_at"`
    EndsAt     string  `json:"ends_at"`
    Status     string  `json:"status"`
    ReleasedAt *string `json:"released_at,omitempty"`
}

// renderAllocations maps allocations to their response shape,
// resolving seat IDs back to labels.  Seats from inactive layouts
// keep an empty label rather than failing the whole response.
func renderAllocations(allocs []model.SeatAllocation, ix *allocation.LabelIndex) []allocationJSON {
    out := make([]allocationJSON, 0, len(allocs))
    for i := range allocs {
        a := &allocs[i]
        label, _ := ix.Label(a.SeatID)
        aj := allocationJSON{
            ID:        a.ID,
            SeatLabel: label,
            Occupant:  wireStatus(a.OccupantType),
            StartsAt:  a.StartsAt.UTC().Format(time.RFC3339),
            EndsAt:    a.EndsAt.UTC().Format(time.RFC3339),
            Status:    wireStatus(a.Status),
        }
        if a.ReleasedAt != nil {
            rel := a.ReleasedAt.UTC().Format(time.RFC3339)
            aj.ReleasedAt = &rel
        }
        out = append(out, aj)
    }
    return out
}

// engineError translates engine and repository failures into HTTP
// responses.  Every engine rule violation is recoverable at the
// caller; only unexpected storage failures surface as 500s.
func engineError(c echo.Context, err error) error {
    var (
        unknown    *allocation.UnknownSeatError
        badWindow  *allocation.InvalidWindowError
        conflict   *allocation.SeatConflictError
        transition *allocation.InvalidTransitionError
    )
    switch {
    case errors.As(err, &unknown):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{
            "error":  "unknown seat labels",
            "labels": unknown.Labels,
        })
    case errors.As(err, &badWindow):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": badWindow.Error()})
    case errors.As(err, &conflict):
        return c.JSON(http.StatusConflict, echo.Map{
            "error":       "seat conflict",
            "conflicting": conflict.Labels,
        })
    case errors.As(err, &transition):
        return c.JSON(http.StatusConflict, echo.Map{"error": transition.Error()})
    case errors.Is(err, allocation.ErrNoActiveLayout):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no active layout"})
    case errors.Is(err, allocation.ErrNoAllocations):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no allocations for occupant"})
    case errors.Is(err, sql.ErrNoRows):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
