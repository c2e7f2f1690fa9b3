package allocation

import (
    "context"
    "time"

    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

// Store is the persistence boundary of the engine.  The MySQL
// implementation lives in the repository package; tests use the
// in-memory store from this package.
type Store interface {
    // Transact runs fn as a single atomic unit.  Reads performed
    // through the Tx must observe a consistent snapshot that later
    // writes in the same unit cannot invalidate: the conflict guard
    // check and the allocation inserts happen inside one call so no
    // caller ever observes a double-booked seat, even transiently.
    Transact(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside a Store transaction.
type Tx interface {
    // ActiveBySeats returns all active (non-released, non-terminal)
    // allocations for the given seats.  Implementations should lock
    // the returned rows for the duration of the transaction so
    // concurrent reserves on the same seats serialize.
    ActiveBySeats(ctx context.Context, seatIDs []uint64) ([]model.SeatAllocation, error)

    // ActiveByOccupants returns all active allocations held by the
    // given occupants.
    ActiveByOccupants(ctx context.Context, occs []model.OccupantRef) ([]model.SeatAllocation, error)

    // ByOccupant returns every allocation for the occupant, including
    // released history, newest window first.
    ByOccupant(ctx context.Context, occ model.OccupantRef) ([]model.SeatAllocation, error)

    // Insert persists new allocations and fills in their IDs and
    // timestamps.
    Insert(ctx context.Context, allocs []*model.SeatAllocation) error

    // UpdateStatus moves the identified allocations into status.  A
    // non-nil releasedAt marks them released at that instant.
    UpdateStatus(ctx context.Context, ids []uint64, status string, releasedAt *time.Time) error

    // SetOccupantStatus records the mirrored status on the occupant's
    // own row (reservation or waitlist entry).
    SetOccupantStatus(ctx context.Context, occ model.OccupantRef, status string) error
}
