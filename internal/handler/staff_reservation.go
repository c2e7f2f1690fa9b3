package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/tavolo/restaurant-seat-allocation/internal/allocation"
    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

// reservationJSON is the response shape of one reservation.
type reservationJSON struct {
    Ref         string     `json:"ref"`
    Name        string     `json:"name"`
    Phone       string     `json:"phone"`
    PartySize   uint32     `json:"party_size"`
    StartsAt    string     `json:"starts_at"`
    DurationMin uint32     `json:"duration_min"`
    Status      string     `json:"status"`
    Preferences [][]string `json:"preferences"`
}

func renderReservation(r *model.Reservation) reservationJSON {
    prefs := r.Preferences
    if prefs == nil {
        prefs = [][]string{}
    }
    return reservationJSON{
        Ref:         r.PublicRef,
        Name:        r.Name,
        Phone:       r.Phone,
        PartySize:   r.PartySize,
        StartsAt:    r.StartsAt.UTC().Format(time.RFC3339),
        DurationMin: r.DurationMin,
        Status:      wireStatus(r.Status),
        Preferences: prefs,
    }
}

// CreateReservation handles POST /v1/reservations.  It records a
// booked party with up to three ranked seat-preference sets.  No
// seats are allocated yet; that happens on assign.
func (h *StaffHandler) CreateReservation(c echo.Context) error {
    var body struct {
        Name        string     `json:"name"`
        Phone       string     `json:"phone"`
        PartySize   uint32     `json:"party_size"`
        StartsAt    string     `json:"starts_at"`
        DurationMin uint32     `json:"duration_min"`
        Preferences [][]string `json:"preferences"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }
    if body.PartySize == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "party_size must be at least 1"})
    }
    starts, err := time.Parse(time.RFC3339, body.StartsAt)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid starts_at, want RFC3339"})
    }
    if body.DurationMin == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "duration_min must be at least 1"})
    }
    if len(body.Preferences) > model.MaxPreferenceSets {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "at most 3 preference sets"})
    }

    res, err := h.Reservations.Create(c.Request().Context(),
        body.Name, body.Phone, body.PartySize, starts.UTC(), body.DurationMin, body.Preferences)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"reservation": renderReservation(res)})
}

// ListReservations handles GET /v1/reservations?date=YYYY-MM-DD.  It
// returns reservations whose requested window touches the given UTC
// day, for the staff dashboard.
func (h *StaffHandler) ListReservations(c echo.Context) error {
    day, err := parseDate(c.QueryParam("date"))
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, want YYYY-MM-DD"})
    }
    items, err := h.Reservations.ListByDate(c.Request().Context(), day)
    if err != nil {
        return engineError(c, err)
    }
    out := make([]reservationJSON, 0, len(items))
    for i := range items {
        out = append(out, renderReservation(&items[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// GetReservation handles GET /v1/reservations/:ref.
func (h *StaffHandler) GetReservation(c echo.Context) error {
    res, err := h.Reservations.GetByRef(c.Request().Context(), c.Param("ref"))
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"reservation": renderReservation(res)})
}

// AssignReservation handles POST /v1/reservations/:ref/assign.  It
// evaluates the reservation's ranked preference sets against the
// occupancy of its own time window, reserves the first fully
// available option and reports which option was chosen.  When no
// option survives it responds 409 so staff can pick seats manually.
//
// The resolver runs outside the reserve transaction; the engine
// re-validates via the conflict guard inside it, so a concurrent
// claim surfaces as a seat conflict rather than a double booking.
func (h *StaffHandler) AssignReservation(c echo.Context) error {
    ctx := c.Request().Context()
    res, err := h.Reservations.GetByRef(ctx, c.Param("ref"))
    if err != nil {
        return engineError(c, err)
    }
    if len(res.Preferences) == 0 {
        return c.JSON(http.StatusConflict, echo.Map{"error": "reservation has no seat preferences"})
    }

    ix, err := activeLabelIndex(ctx, h.Layouts)
    if err != nil {
        return engineError(c, err)
    }
    window := allocation.Window{Start: res.StartsAt, End: res.EndsAt()}
    allocs, err := h.Allocations.AllocationsIntersecting(ctx, window.Start, window.End)
    if err != nil {
        return engineError(c, err)
    }
    occupied := allocation.ComputeOccupiedLabels(window, allocs, ix.LabelBySeatID())

    option := allocation.ResolveOption(res.Preferences, occupied)
    if option == allocation.NoOption {
        return c.JSON(http.StatusConflict, echo.Map{"error": "no seating option available"})
    }

    req := allocation.ReserveRequest{
        Occupant:   model.OccupantRef{Type: model.OccupantReservation, ID: res.ID},
        SeatLabels: res.Preferences[option],
        StartsAt:   window.Start,
        EndsAt:     window.End,
    }
    created, err := h.Engine.Reserve(ctx, ix, req)
    if err != nil {
        return engineError(c, err)
    }
    h.publishCreated("reservation", res.PublicRef, req, created, ix)
    return c.JSON(http.StatusCreated, echo.Map{
        "option_index": option,
        "allocations":  renderAllocations(created, ix),
    })
}
