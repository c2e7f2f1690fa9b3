package allocation

import "github.com/tavolo/restaurant-seat-allocation/internal/model"

// HasConflict reports whether reserving seatID for the given window
// would overlap an existing active allocation of the same seat.
// Released and terminal allocations never conflict.  The caller must
// invoke this inside the same atomic unit as the allocation insert;
// checking outside the transaction leaves a race window.
func HasConflict(seatID uint64, w Window, existing []model.SeatAllocation) bool {
    for i := range existing {
        a := &existing[i]
        if a.SeatID != seatID || !a.Active() {
            continue
        }
        if w.Overlaps(Window{Start: a.StartsAt, End: a.EndsAt}) {
            return true
        }
    }
    return false
}
