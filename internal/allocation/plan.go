package allocation

import (
    "sort"
    "time"

    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

// ReserveRequest asks for one occupant to claim a set of seats for a
// time window.  SeatLabels must be non-empty and resolve against the
// active layout.
type ReserveRequest struct {
    Occupant   model.OccupantRef
    SeatLabels []string
    StartsAt   time.Time
    EndsAt     time.Time
}

// Window returns the request's allocation window.
func (r ReserveRequest) Window() Window {
    return Window{Start: r.StartsAt, End: r.EndsAt}
}

// planAllocations validates a batch of reserve requests against the
// label index and the currently active allocations, and returns the
// rows to insert.  It is pure: all checks the engine performs before
// writing happen here, so the all-or-nothing rule is a consequence of
// the plan either existing in full or not at all.
//
// Checks, in order per request: occupant type, non-empty labels,
// window validity, label resolution, the occupant-must-release-first
// rule, then conflicts against existing allocations and against every
// earlier request in the same batch (two requests in one batch cannot
// hand the same seat window to each other).
func planAllocations(reqs []ReserveRequest, ix *LabelIndex, existing []model.SeatAllocation) ([]*model.SeatAllocation, error) {
    planned := make([]*model.SeatAllocation, 0, len(reqs))
    var unknown, conflicting []string

    for _, req := range reqs {
        if !model.ValidOccupantType(req.Occupant.Type) {
            return nil, &InvalidTransitionError{Op: OpReserve, Reason: "unknown occupant type " + req.Occupant.Type}
        }
        if len(req.SeatLabels) == 0 {
            return nil, &InvalidTransitionError{Op: OpReserve, Reason: "no seat labels given"}
        }
        w := req.Window()
        if !w.Valid() {
            return nil, &InvalidWindowError{Start: req.StartsAt, End: req.EndsAt}
        }
        if occupantHoldsActive(req.Occupant, existing) {
            return nil, &InvalidTransitionError{
                Op:     OpReserve,
                Reason: "occupant already holds active allocations; cancel or finish them first",
            }
        }
        for _, label := range req.SeatLabels {
            seatID, ok := ix.SeatID(label)
            if !ok {
                unknown = append(unknown, label)
                continue
            }
            if HasConflict(seatID, w, existing) || conflictsWithPlanned(seatID, w, planned) {
                conflicting = append(conflicting, label)
                continue
            }
            planned = append(planned, &model.SeatAllocation{
                SeatID:       seatID,
                OccupantType: req.Occupant.Type,
                OccupantID:   req.Occupant.ID,
                StartsAt:     req.StartsAt.UTC(),
                EndsAt:       req.EndsAt.UTC(),
                Status:       model.AllocationReserved,
            })
        }
    }

    if len(unknown) > 0 {
        return nil, &UnknownSeatError{Labels: dedupeLabels(unknown)}
    }
    if len(conflicting) > 0 {
        return nil, &SeatConflictError{Labels: dedupeLabels(conflicting)}
    }
    return planned, nil
}

// occupantHoldsActive reports whether occ still has a live allocation
// among existing.  The engine refuses to re-reserve in that case so a
// stale booking cannot silently leak its seats.
func occupantHoldsActive(occ model.OccupantRef, existing []model.SeatAllocation) bool {
    for i := range existing {
        a := &existing[i]
        if a.Active() && a.OccupantType == occ.Type && a.OccupantID == occ.ID {
            return true
        }
    }
    return false
}

func conflictsWithPlanned(seatID uint64, w Window, planned []*model.SeatAllocation) bool {
    for _, p := range planned {
        if p.SeatID == seatID && w.Overlaps(Window{Start: p.StartsAt, End: p.EndsAt}) {
            return true
        }
    }
    return false
}

// dedupeLabels returns the unique labels in sorted order so error
// payloads are deterministic.
func dedupeLabels(labels []string) []string {
    seen := make(map[string]struct{}, len(labels))
    out := make([]string, 0, len(labels))
    for _, l := range labels {
        if _, ok := seen[l]; ok {
            continue
        }
        seen[l] = struct{}{}
        out = append(out, l)
    }
    sort.Strings(out)
    return out
}
