package allocation

import (
    "context"
    "errors"
    "fmt"
    "time"

    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

// Engine is the allocation state machine.  It owns the lifecycle of
// seat allocations (reserve, arrive, seat, finish, no-show, cancel)
// and guarantees that creating or releasing allocations never
// produces a double booking.  Every operation runs inside a single
// Store transaction; the engine itself never blocks beyond what the
// store does.
type Engine struct {
    store Store
    now   func() time.Time
}

// NewEngine constructs an Engine over the given store.
func NewEngine(store Store) *Engine {
    if store == nil {
        panic("nil store passed to NewEngine")
    }
    return &Engine{store: store, now: time.Now}
}

// Reserve creates one RESERVED allocation per seat label for a single
// occupant.  The whole request succeeds or fails as a unit: any
// unknown label, invalid window or seat conflict leaves the store
// untouched.  See MultiCreate for the batch semantics it shares.
func (e *Engine) Reserve(ctx context.Context, ix *LabelIndex, req ReserveRequest) ([]model.SeatAllocation, error) {
    return e.MultiCreate(ctx, ix, []ReserveRequest{req})
}

// MultiCreate atomically creates allocations for several occupant and
// seat groupings.  The conflict guard runs across the entire batch
// inside one transaction, so two requests in the same batch cannot
// allocate the same seat to each other and no concurrent caller can
// observe a half-applied batch.
func (e *Engine) MultiCreate(ctx context.Context, ix *LabelIndex, reqs []ReserveRequest) ([]model.SeatAllocation, error) {
    if len(reqs) == 0 {
        return nil, &InvalidTransitionError{Op: OpReserve, Reason: "empty batch"}
    }
    if ix == nil || ix.Len() == 0 {
        return nil, ErrNoActiveLayout
    }

    seatIDs, occs := batchTargets(reqs, ix)

    var created []model.SeatAllocation
    err := e.store.Transact(ctx, func(tx Tx) error {
        bySeat, err := tx.ActiveBySeats(ctx, seatIDs)
        if err != nil {
            return err
        }
        byOcc, err := tx.ActiveByOccupants(ctx, occs)
        if err != nil {
            return err
        }
        existing := mergeAllocations(bySeat, byOcc)

        planned, err := planAllocations(reqs, ix, existing)
        if err != nil {
            return err
        }
        if err := tx.Insert(ctx, planned); err != nil {
            return err
        }
        for _, occ := range occs {
            if s := occupantStatus(occ.Type, OpReserve); s != "" {
                if err := tx.SetOccupantStatus(ctx, occ, s); err != nil {
                    return err
                }
            }
        }
        created = make([]model.SeatAllocation, 0, len(planned))
        for _, p := range planned {
            created = append(created, *p)
        }
        return nil
    })
    if err != nil {
        return nil, wrapStorage(err)
    }
    return created, nil
}

// Arrive marks the occupant's reserved allocations as arrived.
func (e *Engine) Arrive(ctx context.Context, occ model.OccupantRef) ([]model.SeatAllocation, error) {
    return e.transition(ctx, occ, OpArrive)
}

// Seat marks the occupant's allocations as seated.  Arrived parties
// and, for walk-in convenience, still-reserved parties are accepted.
func (e *Engine) Seat(ctx context.Context, occ model.OccupantRef) ([]model.SeatAllocation, error) {
    return e.transition(ctx, occ, OpSeat)
}

// Finish releases the occupant's allocations as finished.  Calling it
// again once everything is released is a no-op.
func (e *Engine) Finish(ctx context.Context, occ model.OccupantRef) ([]model.SeatAllocation, error) {
    return e.transition(ctx, occ, OpFinish)
}

// NoShow releases reserved or arrived allocations as no-shows.  A
// seated party cannot be a no-show.
func (e *Engine) NoShow(ctx context.Context, occ model.OccupantRef) ([]model.SeatAllocation, error) {
    return e.transition(ctx, occ, OpNoShow)
}

// Cancel releases the occupant's non-terminal allocations as
// canceled.  Idempotent once everything is released.
func (e *Engine) Cancel(ctx context.Context, occ model.OccupantRef) ([]model.SeatAllocation, error) {
    return e.transition(ctx, occ, OpCancel)
}

// transition applies one state-machine operation to all of the
// occupant's active allocations inside a single transaction.
func (e *Engine) transition(ctx context.Context, occ model.OccupantRef, op string) ([]model.SeatAllocation, error) {
    if !model.ValidOccupantType(occ.Type) {
        return nil, &InvalidTransitionError{Op: op, Reason: "unknown occupant type " + occ.Type}
    }
    t := transitions[op]

    var out []model.SeatAllocation
    err := e.store.Transact(ctx, func(tx Tx) error {
        all, err := tx.ByOccupant(ctx, occ)
        if err != nil {
            return err
        }
        if len(all) == 0 {
            return ErrNoAllocations
        }
        active := make([]model.SeatAllocation, 0, len(all))
        for _, a := range all {
            if a.Active() {
                active = append(active, a)
            }
        }
        if len(active) == 0 {
            if TerminalOp(op) {
                // Retried finish/cancel/no-show after everything was
                // already released: report the current state as-is.
                out = all
                return nil
            }
            return &InvalidTransitionError{Op: op, Reason: "occupant has no active allocations"}
        }
        for i := range active {
            if !CanTransition(op, active[i].Status) {
                return &InvalidTransitionError{
                    Op:     op,
                    Reason: fmt.Sprintf("allocation %d is %s", active[i].ID, active[i].Status),
                }
            }
        }

        now := e.now().UTC()
        var releasedAt *time.Time
        if t.terminal {
            releasedAt = &now
        }
        ids := make([]uint64, 0, len(active))
        for i := range active {
            ids = append(ids, active[i].ID)
        }
        if err := tx.UpdateStatus(ctx, ids, t.target, releasedAt); err != nil {
            return err
        }
        if s := occupantStatus(occ.Type, op); s != "" {
            if err := tx.SetOccupantStatus(ctx, occ, s); err != nil {
                return err
            }
        }
        out = active
        for i := range out {
            out[i].Status = t.target
            out[i].ReleasedAt = releasedAt
            out[i].UpdatedAt = now
        }
        return nil
    })
    if err != nil {
        return nil, wrapStorage(err)
    }
    return out, nil
}

// batchTargets collects the resolvable seat IDs and distinct
// occupants of a batch so the transaction can load and lock exactly
// the rows the planner will inspect.
func batchTargets(reqs []ReserveRequest, ix *LabelIndex) ([]uint64, []model.OccupantRef) {
    seatSeen := make(map[uint64]struct{})
    seatIDs := make([]uint64, 0)
    occSeen := make(map[model.OccupantRef]struct{})
    occs := make([]model.OccupantRef, 0, len(reqs))
    for _, req := range reqs {
        for _, label := range req.SeatLabels {
            if id, ok := ix.SeatID(label); ok {
                if _, dup := seatSeen[id]; !dup {
                    seatSeen[id] = struct{}{}
                    seatIDs = append(seatIDs, id)
                }
            }
        }
        if _, dup := occSeen[req.Occupant]; !dup {
            occSeen[req.Occupant] = struct{}{}
            occs = append(occs, req.Occupant)
        }
    }
    return seatIDs, occs
}

// mergeAllocations combines two allocation lists, dropping duplicate
// rows loaded by both the seat and the occupant query.
func mergeAllocations(a, b []model.SeatAllocation) []model.SeatAllocation {
    seen := make(map[uint64]struct{}, len(a))
    out := make([]model.SeatAllocation, 0, len(a)+len(b))
    for _, x := range a {
        seen[x.ID] = struct{}{}
        out = append(out, x)
    }
    for _, x := range b {
        if _, dup := seen[x.ID]; !dup {
            out = append(out, x)
        }
    }
    return out
}

// wrapStorage passes the engine's own error kinds through unchanged
// and wraps anything else as a StorageError.
func wrapStorage(err error) error {
    if err == nil {
        return nil
    }
    if errors.Is(err, ErrNoActiveLayout) || errors.Is(err, ErrNoAllocations) {
        return err
    }
    var (
        unknown    *UnknownSeatError
        badWindow  *InvalidWindowError
        conflict   *SeatConflictError
        transition *InvalidTransitionError
        storage    *StorageError
    )
    if errors.As(err, &unknown) || errors.As(err, &badWindow) ||
        errors.As(err, &conflict) || errors.As(err, &transition) ||
        errors.As(err, &storage) {
        return err
    }
    return &StorageError{Err: err}
}
