package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/tavolo/restaurant-seat-allocation/internal/allocation"
    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

// waitlistJSON is the response shape of one waitlist entry.
type waitlistJSON struct {
    Ref         string `json:"ref"`
    Name        string `json:"name"`
    Phone       string `json:"phone"`
    PartySize   uint32 `json:"party_size"`
    CheckedInAt string `json:"checked_in_at"`
    Status      string `json:"status"`
}

func renderWaitlistEntry(e *model.WaitlistEntry) waitlistJSON {
    return waitlistJSON{
        Ref:         e.PublicRef,
        Name:        e.Name,
        Phone:       e.Phone,
        PartySize:   e.PartySize,
        CheckedInAt: e.CheckedInAt.UTC().Format(time.RFC3339),
        Status:      wireStatus(e.Status),
    }
}

// CheckInWaitlist handles POST /v1/waitlist.  It records a walk-in
// party in status WAITING.
func (h *StaffHandler) CheckInWaitlist(c echo.Context) error {
    var body struct {
        Name      string `json:"name"`
        Phone     string `json:"phone"`
        PartySize uint32 `json:"party_size"`
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
    entry, err := h.Waitlist.Create(c.Request().Context(), body.Name, body.Phone, body.PartySize)
    if err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"entry": renderWaitlistEntry(entry)})
}

// ListWaitlist handles GET /v1/waitlist.  It returns waiting parties
// oldest first.
func (h *StaffHandler) ListWaitlist(c echo.Context) error {
    items, err := h.Waitlist.ListWaiting(c.Request().Context())
    if err != nil {
        return engineError(c, err)
    }
    out := make([]waitlistJSON, 0, len(items))
    for i := range items {
        out = append(out, renderWaitlistEntry(&items[i]))
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// SeatWaitlist handles POST /v1/waitlist/:ref/seat.  It finds free
// seats for the party size right now, reserves them for the default
// seating window and seats the party immediately.  The request may
// pass seat_labels to override the automatic pick.
func (h *StaffHandler) SeatWaitlist(c echo.Context) error {
    var body struct {
        SeatLabels  []string `json:"seat_labels"`
        DurationMin uint32   `json:"duration_min"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ctx := c.Request().Context()
    entry, err := h.Waitlist.GetByRef(ctx, c.Param("ref"))
    if err != nil {
        return engineError(c, err)
    }
    if entry.Status != model.WaitlistWaiting {
        return c.JSON(http.StatusConflict, echo.Map{"error": "entry is not waiting"})
    }
    duration := body.DurationMin
    if duration == 0 {
        duration = h.DefaultSeatingMin
    }
    now := time.Now().UTC()
    window := allocation.Window{Start: now, End: now.Add(time.Duration(duration) * time.Minute)}

    ix, err := activeLabelIndex(ctx, h.Layouts)
    if err != nil {
        return engineError(c, err)
    }

    labels := body.SeatLabels
    if len(labels) == 0 {
        allocs, err := h.Allocations.AllocationsIntersecting(ctx, window.Start, window.End)
        if err != nil {
            return engineError(c, err)
        }
        occupied := allocation.ComputeOccupiedLabels(window, allocs, ix.LabelBySeatID())
        labels = pickFreeSeats(ctx, h.Layouts, occupied, entry.PartySize)
        if labels == nil {
            return c.JSON(http.StatusConflict, echo.Map{"error": "not enough free seats for party"})
        }
    }

    occ := model.OccupantRef{Type: model.OccupantWaitlist, ID: entry.ID}
    req := allocation.ReserveRequest{Occupant: occ, SeatLabels: labels, StartsAt: window.Start, EndsAt: window.End}
    created, err := h.Engine.Reserve(ctx, ix, req)
    if err != nil {
        return engineError(c, err)
    }
    seated, err := h.Engine.Seat(ctx, occ)
    if err != nil {
        return engineError(c, err)
    }
    h.publishCreated("waitlist", entry.PublicRef, req, created, ix)
    return c.JSON(http.StatusCreated, echo.Map{
        "entry":       entry.PublicRef,
        "allocations": renderAllocations(seated, ix),
    })
}

// RemoveWaitlist handles DELETE /v1/waitlist/:ref.  Parties that
// leave before holding any seat are removed directly; parties with
// live allocations go through the cancel transition instead.
func (h *StaffHandler) RemoveWaitlist(c echo.Context) error {
    ctx := c.Request().Context()
    entry, err := h.Waitlist.GetByRef(ctx, c.Param("ref"))
    if err != nil {
        return engineError(c, err)
    }
    occ := model.OccupantRef{Type: model.OccupantWaitlist, ID: entry.ID}
    if _, err := h.Engine.Cancel(ctx, occ); err != nil {
        if err != allocation.ErrNoAllocations {
            return engineError(c, err)
        }
        // Never held a seat; just flip the entry's status.
        if err := h.Waitlist.SetStatus(ctx, entry.ID, model.WaitlistRemoved); err != nil {
            return engineError(c, err)
        }
    }
    return c.NoContent(http.StatusNoContent)
}

// pickFreeSeats walks the active layout's seats in stable order and
// greedily collects free seats until their combined capacity covers
// the party.  The stable order keeps automatic picks deterministic.
func pickFreeSeats(ctx context.Context, layouts LayoutSource, occupied map[string]struct{}, partySize uint32) []string {
    layout, err := layouts.GetActive(ctx)
    if err != nil {
        return nil
    }
    seats, err := layouts.ListSeats(ctx, layout.ID)
    if err != nil {
        return nil
    }
    var labels []string
    var capacity uint32
    for _, s := range seats {
        if _, taken := occupied[s.Label]; taken {
            continue
        }
        labels = append(labels, s.Label)
        capacity += s.Capacity
        if capacity >= partySize {
            return labels
        }
    }
    return nil
}
