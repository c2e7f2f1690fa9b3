package allocation

import "github.com/tavolo/restaurant-seat-allocation/internal/model"

// ComputeOccupiedLabels builds the occupancy index for a query
// window: the set of seat labels unavailable at any point inside it.
// An allocation occupies its seat while it is active (not released,
// status one of RESERVED/ARRIVED/SEATED) and its window intersects
// the query window.  Seat IDs without an entry in labelBySeatID are
// skipped; they belong to a layout that is no longer active.
//
// The index is a derived read model and must be recomputed per query.
// Callers may reuse the returned set within a single interaction but
// never across requests, because allocation state changes constantly.
func ComputeOccupiedLabels(query Window, allocs []model.SeatAllocation, labelBySeatID map[uint64]string) map[string]struct{} {
    occupied := make(map[string]struct{})
    for i := range allocs {
        a := &allocs[i]
        if !a.Active() {
            continue
        }
        if !query.Overlaps(Window{Start: a.StartsAt, End: a.EndsAt}) {
            continue
        }
        label, ok := labelBySeatID[a.SeatID]
        if !ok {
            continue
        }
        occupied[label] = struct{}{}
    }
    return occupied
}
