package handler

import (
    "context"
    "log"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/tavolo/restaurant-seat-allocation/internal/allocation"
    "github.com/tavolo/restaurant-seat-allocation/internal/model"
    "github.com/tavolo/restaurant-seat-allocation/internal/queue"
)

// StaffHandler drives the allocation lifecycle on behalf of staff:
// explicit reserves, atomic multi-creates and the state transitions
// from arrival through release.  JWT authentication and role checks
// happen in middleware before these run.
type StaffHandler struct {
    Engine       *allocation.Engine
    Layouts      LayoutSource
    Allocations  AllocationReader
    Reservations ReservationStore
    Waitlist     WaitlistStore
    // DefaultSeatingMin is the fallback allocation window length for
    // walk-ins seated without an explicit duration.
    DefaultSeatingMin uint32
    // Publish, when set, receives an event after every successful
    // create or transition.  Failures are the publisher's problem;
    // the request has already committed.
    Publish func(ctx context.Context, ev queue.AllocationEvent) error
}

// NewStaffHandler constructs a StaffHandler with the provided
// dependencies.  Publish may be nil to disable eventing.
func NewStaffHandler(engine *allocation.Engine, layouts LayoutSource, allocations AllocationReader, reservations ReservationStore, waitlist WaitlistStore) *StaffHandler {
    if engine == nil || layouts == nil || allocations == nil || reservations == nil || waitlist == nil {
        panic("nil dependency passed to NewStaffHandler")
    }
    return &StaffHandler{
        Engine:            engine,
        Layouts:           layouts,
        Allocations:       allocations,
        Reservations:      reservations,
        Waitlist:          waitlist,
        DefaultSeatingMin: 90,
    }
}

// reserveBody is the JSON shape of one reserve request.
type reserveBody struct {
    OccupantType string   `json:"occupant_type"`
    OccupantRef  string   `json:"occupant_ref"`
    SeatLabels   []string `json:"seat_labels"`
    StartsAt     string   `json:"starts_at"`
    EndsAt       string   `json:"ends_at"`
}

// occupantBody identifies an occupant for transition endpoints.
type occupantBody struct {
    OccupantType string `json:"occupant_type"`
    OccupantRef  string `json:"occupant_ref"`
}

// resolveOccupant maps a wire occupant reference onto the numeric
// occupant the engine works with.
func (h *StaffHandler) resolveOccupant(ctx context.Context, rawType, ref string) (model.OccupantRef, error) {
    typ, ok := normalizeOccupantType(rawType)
    if !ok {
        return model.OccupantRef{}, echo.NewHTTPError(http.StatusBadRequest, "invalid occupant_type")
    }
    switch typ {
    case model.OccupantReservation:
        res, err := h.Reservations.GetByRef(ctx, ref)
        if err != nil {
            return model.OccupantRef{}, err
        }
        return model.OccupantRef{Type: typ, ID: res.ID}, nil
    default:
        entry, err := h.Waitlist.GetByRef(ctx, ref)
        if err != nil {
            return model.OccupantRef{}, err
        }
        return model.OccupantRef{Type: typ, ID: entry.ID}, nil
    }
}

// toReserveRequest validates and converts one wire request.
func (h *StaffHandler) toReserveRequest(ctx context.Context, body reserveBody) (allocation.ReserveRequest, string, error) {
    occ, err := h.resolveOccupant(ctx, body.OccupantType, body.OccupantRef)
    if err != nil {
        return allocation.ReserveRequest{}, "", err
    }
    starts, err := time.Parse(time.RFC3339, body.StartsAt)
    if err != nil {
        return allocation.ReserveRequest{}, "", echo.NewHTTPError(http.StatusBadRequest, "invalid starts_at, want RFC3339")
    }
    ends, err := time.Parse(time.RFC3339, body.EndsAt)
    if err != nil {
        return allocation.ReserveRequest{}, "", echo.NewHTTPError(http.StatusBadRequest, "invalid ends_at, want RFC3339")
    }
    return allocation.ReserveRequest{
        Occupant:   occ,
        SeatLabels: body.SeatLabels,
        StartsAt:   starts.UTC(),
        EndsAt:     ends.UTC(),
    }, body.OccupantRef, nil
}

// Reserve handles POST /v1/allocations/reserve.  It creates one
// RESERVED allocation per seat label for a single occupant, or fails
// the whole request on any conflict, unknown label or bad window.
func (h *StaffHandler) Reserve(c echo.Context) error {
    var body reserveBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ctx := c.Request().Context()
    req, ref, err := h.toReserveRequest(ctx, body)
    if err != nil {
        if he, ok := err.(*echo.HTTPError); ok {
            return c.JSON(he.Code, echo.Map{"error": he.Message})
        }
        return engineError(c, err)
    }
    ix, err := activeLabelIndex(ctx, h.Layouts)
    if err != nil {
        return engineError(c, err)
    }
    created, err := h.Engine.Reserve(ctx, ix, req)
    if err != nil {
        return engineError(c, err)
    }
    h.publishCreated(body.OccupantType, ref, req, created, ix)
    return c.JSON(http.StatusCreated, echo.Map{"allocations": renderAllocations(created, ix)})
}

// MultiCreate handles POST /v1/allocations/multi-create.  The batch
// is all-or-nothing: the conflict guard runs across every request in
// the batch inside one transaction, so two entries in the same batch
// cannot take the same seat from each other either.
func (h *StaffHandler) MultiCreate(c echo.Context) error {
    var body struct {
        Requests []reserveBody `json:"requests"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if len(body.Requests) == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "requests is required"})
    }
    ctx := c.Request().Context()

    reqs := make([]allocation.ReserveRequest, 0, len(body.Requests))
    refs := make([]string, 0, len(body.Requests))
    for _, rb := range body.Requests {
        req, ref, err := h.toReserveRequest(ctx, rb)
        if err != nil {
            if he, ok := err.(*echo.HTTPError); ok {
                return c.JSON(he.Code, echo.Map{"error": he.Message})
            }
            return engineError(c, err)
        }
        reqs = append(reqs, req)
        refs = append(refs, ref)
    }
    ix, err := activeLabelIndex(ctx, h.Layouts)
    if err != nil {
        return engineError(c, err)
    }
    created, err := h.Engine.MultiCreate(ctx, ix, reqs)
    if err != nil {
        return engineError(c, err)
    }
    for i := range reqs {
        h.publishCreated(body.Requests[i].OccupantType, refs[i], reqs[i], created, ix)
    }
    return c.JSON(http.StatusCreated, echo.Map{"allocations": renderAllocations(created, ix)})
}

// Arrive handles POST /v1/allocations/arrive.
func (h *StaffHandler) Arrive(c echo.Context) error { return h.transition(c, allocation.OpArrive) }

// Seat handles POST /v1/allocations/seat and its /occupy alias.
func (h *StaffHandler) Seat(c echo.Context) error { return h.transition(c, allocation.OpSeat) }

// Finish handles POST /v1/allocations/finish.
func (h *StaffHandler) Finish(c echo.Context) error { return h.transition(c, allocation.OpFinish) }

// NoShow handles POST /v1/allocations/no-show.
func (h *StaffHandler) NoShow(c echo.Context) error { return h.transition(c, allocation.OpNoShow) }

// Cancel handles POST /v1/allocations/cancel.
func (h *StaffHandler) Cancel(c echo.Context) error { return h.transition(c, allocation.OpCancel) }

// transition runs one state-machine operation for the occupant named
// in the request body and returns the updated allocations.
func (h *StaffHandler) transition(c echo.Context, op string) error {
    var body occupantBody
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    ctx := c.Request().Context()
    occ, err := h.resolveOccupant(ctx, body.OccupantType, body.OccupantRef)
    if err != nil {
        if he, ok := err.(*echo.HTTPError); ok {
            return c.JSON(he.Code, echo.Map{"error": he.Message})
        }
        return engineError(c, err)
    }

    var updated []model.SeatAllocation
    switch op {
    case allocation.OpArrive:
        updated, err = h.Engine.Arrive(ctx, occ)
    case allocation.OpSeat:
        updated, err = h.Engine.Seat(ctx, occ)
    case allocation.OpFinish:
        updated, err = h.Engine.Finish(ctx, occ)
    case allocation.OpNoShow:
        updated, err = h.Engine.NoShow(ctx, occ)
    case allocation.OpCancel:
        updated, err = h.Engine.Cancel(ctx, occ)
    }
    if err != nil {
        return engineError(c, err)
    }

    ix, ixErr := activeLabelIndex(ctx, h.Layouts)
    if ixErr != nil {
        // The transition committed; render without labels rather than
        // failing the response.
        ix = allocation.NewLabelIndex(nil)
    }
    if allocation.TerminalOp(op) {
        h.publishReleased(body.OccupantType, body.OccupantRef, updated, ix)
    }
    return c.JSON(http.StatusOK, echo.Map{"allocations": renderAllocations(updated, ix)})
}

// publishCreated emits an allocation.reserved event for one request's
// seats in the background.
func (h *StaffHandler) publishCreated(rawType, ref string, req allocation.ReserveRequest, created []model.SeatAllocation, ix *allocation.LabelIndex) {
    if h.Publish == nil {
        return
    }
    labels := make([]string, 0, len(req.SeatLabels))
    for _, a := range created {
        if a.OccupantType == req.Occupant.Type && a.OccupantID == req.Occupant.ID {
            if label, ok := ix.Label(a.SeatID); ok {
                labels = append(labels, label)
            }
        }
    }
    ev := queue.AllocationEvent{
        Kind:         queue.KindReserved,
        OccupantType: rawType,
        OccupantRef:  ref,
        SeatLabels:   labels,
        StartsAt:     req.StartsAt.UTC().Format(time.RFC3339),
        EndsAt:       req.EndsAt.UTC().Format(time.RFC3339),
        Status:       wireStatus(model.AllocationReserved),
        OccurredAt:   time.Now().UTC().Format(time.RFC3339),
    }
    go func() {
        if err := h.Publish(context.Background(), ev); err != nil {
            log.Printf("allocation event publish failed: %v", err)
        }
    }()
}

// publishReleased emits an allocation.released event after a terminal
// transition.
func (h *StaffHandler) publishReleased(rawType, ref string, updated []model.SeatAllocation, ix *allocation.LabelIndex) {
    if h.Publish == nil || len(updated) == 0 {
        return
    }
    labels := make([]string, 0, len(updated))
    for _, a := range updated {
        if label, ok := ix.Label(a.SeatID); ok {
            labels = append(labels, label)
        }
    }
    first := updated[0]
    ev := queue.AllocationEvent{
        Kind:         queue.KindReleased,
        OccupantType: rawType,
        OccupantRef:  ref,
        SeatLabels:   labels,
        StartsAt:     first.StartsAt.UTC().Format(time.RFC3339),
        EndsAt:       first.EndsAt.UTC().Format(time.RFC3339),
        Status:       wireStatus(first.Status),
        OccurredAt:   time.Now().UTC().Format(time.RFC3339),
    }
    go func() {
        if err := h.Publish(context.Background(), ev); err != nil {
            log.Printf("allocation event publish failed: %v", err)
        }
    }()
}
