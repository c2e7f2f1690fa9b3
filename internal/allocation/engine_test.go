package allocation

import (
    "context"
    "errors"
    "math/rand"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

func testIndex() *LabelIndex {
    return NewLabelIndex([]model.Seat{
        {ID: 10, Label: "A1"},
        {ID: 11, Label: "A2"},
        {ID: 12, Label: "B1"},
        {ID: 13, Label: "B2"},
    })
}

func reservation(id uint64) model.OccupantRef {
    return model.OccupantRef{Type: model.OccupantReservation, ID: id}
}

func walkIn(id uint64) model.OccupantRef {
    return model.OccupantRef{Type: model.OccupantWaitlist, ID: id}
}

func TestEngine_Reserve(t *testing.T) {
    store := NewMemoryStore()
    engine := NewEngine(store)
    ctx := context.Background()

    created, err := engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant:   reservation(1),
        SeatLabels: []string{"A1", "A2"},
        StartsAt:   at(18, 0),
        EndsAt:     at(19, 0),
    })
    require.NoError(t, err)
    require.Len(t, created, 2)
    for _, a := range created {
        assert.Equal(t, model.AllocationReserved, a.Status)
        assert.Nil(t, a.ReleasedAt)
        assert.NotZero(t, a.ID)
    }
    assert.Equal(t, model.ReservationReserved, store.OccupantStatus(reservation(1)))
}

func TestEngine_Reserve_Conflict(t *testing.T) {
    store := NewMemoryStore()
    engine := NewEngine(store)
    ctx := context.Background()

    _, err := engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant:   reservation(1),
        SeatLabels: []string{"A1"},
        StartsAt:   at(18, 0),
        EndsAt:     at(19, 0),
    })
    require.NoError(t, err)

    _, err = engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant:   reservation(2),
        SeatLabels: []string{"A1"},
        StartsAt:   at(18, 30),
        EndsAt:     at(19, 30),
    })
    var conflict *SeatConflictError
    require.ErrorAs(t, err, &conflict)
    assert.Equal(t, []string{"A1"}, conflict.Labels)
    assert.Len(t, store.Allocations(), 1, "failed reserve must not persist anything")
}

func TestEngine_Reserve_BackToBackWindows(t *testing.T) {
    store := NewMemoryStore()
    engine := NewEngine(store)
    ctx := context.Background()

    _, err := engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant: reservation(1), SeatLabels: []string{"A1"}, StartsAt: at(18, 0), EndsAt: at(19, 0),
    })
    require.NoError(t, err)

    _, err = engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant: reservation(2), SeatLabels: []string{"A1"}, StartsAt: at(19, 0), EndsAt: at(20, 0),
    })
    assert.NoError(t, err, "windows sharing only a boundary instant do not conflict")
}

func TestEngine_Reserve_UnknownSeat(t *testing.T) {
    engine := NewEngine(NewMemoryStore())

    _, err := engine.Reserve(context.Background(), testIndex(), ReserveRequest{
        Occupant: reservation(1), SeatLabels: []string{"A1", "Z9"}, StartsAt: at(18, 0), EndsAt: at(19, 0),
    })
    var unknown *UnknownSeatError
    require.ErrorAs(t, err, &unknown)
    assert.Equal(t, []string{"Z9"}, unknown.Labels)
}

func TestEngine_Reserve_InvalidWindow(t *testing.T) {
    engine := NewEngine(NewMemoryStore())

    _, err := engine.Reserve(context.Background(), testIndex(), ReserveRequest{
        Occupant: reservation(1), SeatLabels: []string{"A1"}, StartsAt: at(19, 0), EndsAt: at(18, 0),
    })
    var badWindow *InvalidWindowError
    assert.ErrorAs(t, err, &badWindow)

    _, err = engine.Reserve(context.Background(), testIndex(), ReserveRequest{
        Occupant: reservation(1), SeatLabels: []string{"A1"}, StartsAt: at(18, 0), EndsAt: at(18, 0),
    })
    assert.ErrorAs(t, err, &badWindow, "zero-duration window")
}

func TestEngine_Reserve_NoActiveLayout(t *testing.T) {
    engine := NewEngine(NewMemoryStore())

    _, err := engine.Reserve(context.Background(), nil, ReserveRequest{
        Occupant: reservation(1), SeatLabels: []string{"A1"}, StartsAt: at(18, 0), EndsAt: at(19, 0),
    })
    assert.ErrorIs(t, err, ErrNoActiveLayout)
}

func TestEngine_Reserve_OccupantMustReleaseFirst(t *testing.T) {
    store := NewMemoryStore()
    engine := NewEngine(store)
    ctx := context.Background()

    _, err := engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant: reservation(1), SeatLabels: []string{"A1"}, StartsAt: at(18, 0), EndsAt: at(19, 0),
    })
    require.NoError(t, err)

    _, err = engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant: reservation(1), SeatLabels: []string{"B1"}, StartsAt: at(20, 0), EndsAt: at(21, 0),
    })
    var invalid *InvalidTransitionError
    require.ErrorAs(t, err, &invalid)

    // After cancel the occupant can book again.
    _, err = engine.Cancel(ctx, reservation(1))
    require.NoError(t, err)
    _, err = engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant: reservation(1), SeatLabels: []string{"B1"}, StartsAt: at(20, 0), EndsAt: at(21, 0),
    })
    assert.NoError(t, err)
}

func TestEngine_MultiCreate_AllOrNothing(t *testing.T) {
    store := NewMemoryStore()
    engine := NewEngine(store)
    ctx := context.Background()

    _, err := engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant: reservation(1), SeatLabels: []string{"B1"}, StartsAt: at(18, 0), EndsAt: at(19, 0),
    })
    require.NoError(t, err)
    before := len(store.Allocations())

    // Second grouping collides with the existing B1 booking; the
    // whole batch must fail, including the conflict-free first one.
    _, err = engine.MultiCreate(ctx, testIndex(), []ReserveRequest{
        {Occupant: reservation(2), SeatLabels: []string{"A1"}, StartsAt: at(18, 0), EndsAt: at(19, 0)},
        {Occupant: reservation(3), SeatLabels: []string{"B1"}, StartsAt: at(18, 30), EndsAt: at(19, 30)},
    })
    var conflict *SeatConflictError
    require.ErrorAs(t, err, &conflict)
    assert.Len(t, store.Allocations(), before, "no partial batch may persist")
    assert.Equal(t, "", store.OccupantStatus(reservation(2)))
}

func TestEngine_MultiCreate_IntraBatchConflict(t *testing.T) {
    store := NewMemoryStore()
    engine := NewEngine(store)

    _, err := engine.MultiCreate(context.Background(), testIndex(), []ReserveRequest{
        {Occupant: reservation(1), SeatLabels: []string{"A1"}, StartsAt: at(18, 0), EndsAt: at(19, 0)},
        {Occupant: reservation(2), SeatLabels: []string{"A1"}, StartsAt: at(18, 30), EndsAt: at(19, 30)},
    })
    var conflict *SeatConflictError
    require.ErrorAs(t, err, &conflict)
    assert.Equal(t, []string{"A1"}, conflict.Labels)
    assert.Empty(t, store.Allocations())
}

func TestEngine_MultiCreate_AssignsUniqueIDs(t *testing.T) {
    store := NewMemoryStore()
    engine := NewEngine(store)

    created, err := engine.MultiCreate(context.Background(), testIndex(), []ReserveRequest{
        {Occupant: reservation(1), SeatLabels: []string{"A1", "A2"}, StartsAt: at(18, 0), EndsAt: at(19, 0)},
        {Occupant: walkIn(2), SeatLabels: []string{"B1"}, StartsAt: at(18, 0), EndsAt: at(19, 0)},
    })
    require.NoError(t, err)
    require.Len(t, created, 3)
    seen := make(map[uint64]bool)
    for _, a := range created {
        require.NotZero(t, a.ID, "inserted allocations must carry their IDs")
        assert.False(t, seen[a.ID], "allocation IDs must be unique")
        seen[a.ID] = true
        assert.False(t, a.CreatedAt.IsZero())
    }
}

func TestEngine_MultiCreate_EmptyBatch(t *testing.T) {
    engine := NewEngine(NewMemoryStore())
    _, err := engine.MultiCreate(context.Background(), testIndex(), nil)
    var invalid *InvalidTransitionError
    assert.ErrorAs(t, err, &invalid)
}

func TestEngine_Lifecycle(t *testing.T) {
    store := NewMemoryStore()
    engine := NewEngine(store)
    ctx := context.Background()
    occ := reservation(1)

    _, err := engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant: occ, SeatLabels: []string{"A1", "A2"}, StartsAt: at(18, 0), EndsAt: at(19, 0),
    })
    require.NoError(t, err)

    arrived, err := engine.Arrive(ctx, occ)
    require.NoError(t, err)
    for _, a := range arrived {
        assert.Equal(t, model.AllocationArrived, a.Status)
    }

    seated, err := engine.Seat(ctx, occ)
    require.NoError(t, err)
    for _, a := range seated {
        assert.Equal(t, model.AllocationSeated, a.Status)
        assert.Nil(t, a.ReleasedAt)
    }
    assert.Equal(t, model.ReservationSeated, store.OccupantStatus(occ))

    finished, err := engine.Finish(ctx, occ)
    require.NoError(t, err)
    for _, a := range finished {
        assert.Equal(t, model.AllocationFinished, a.Status)
        require.NotNil(t, a.ReleasedAt)
    }
    assert.Equal(t, model.ReservationFinished, store.OccupantStatus(occ))

    // The seats are free again for the same window.
    _, err = engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant: reservation(2), SeatLabels: []string{"A1", "A2"}, StartsAt: at(18, 0), EndsAt: at(19, 0),
    })
    assert.NoError(t, err)
}

func TestEngine_SeatDirectlyFromReserved(t *testing.T) {
    store := NewMemoryStore()
    engine := NewEngine(store)
    ctx := context.Background()
    occ := walkIn(7)

    _, err := engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant: occ, SeatLabels: []string{"B1"}, StartsAt: at(18, 0), EndsAt: at(19, 30),
    })
    require.NoError(t, err)

    seated, err := engine.Seat(ctx, occ)
    require.NoError(t, err)
    require.Len(t, seated, 1)
    assert.Equal(t, model.AllocationSeated, seated[0].Status)
    assert.Equal(t, model.WaitlistSeated, store.OccupantStatus(occ))
}

func TestEngine_NoShowRejectsSeatedParty(t *testing.T) {
    store := NewMemoryStore()
    engine := NewEngine(store)
    ctx := context.Background()
    occ := reservation(1)

    _, err := engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant: occ, SeatLabels: []string{"A1"}, StartsAt: at(18, 0), EndsAt: at(19, 0),
    })
    require.NoError(t, err)
    _, err = engine.Seat(ctx, occ)
    require.NoError(t, err)

    _, err = engine.NoShow(ctx, occ)
    var invalid *InvalidTransitionError
    assert.ErrorAs(t, err, &invalid)
}

func TestEngine_TerminalOpsIdempotent(t *testing.T) {
    store := NewMemoryStore()
    engine := NewEngine(store)
    ctx := context.Background()
    occ := reservation(1)

    _, err := engine.Reserve(ctx, testIndex(), ReserveRequest{
        Occupant: occ, SeatLabels: []string{"A1"}, StartsAt: at(18, 0), EndsAt: at(19, 0),
    })
    require.NoError(t, err)
    first, err := engine.Cancel(ctx, occ)
    require.NoError(t, err)
    require.Len(t, first, 1)

    again, err := engine.Cancel(ctx, occ)
    require.NoError(t, err, "repeated cancel is a no-op")
    require.Len(t, again, 1)
    assert.Equal(t, model.AllocationCanceled, again[0].Status)

    // Non-terminal operations still fail once released.
    _, err = engine.Arrive(ctx, occ)
    var invalid *InvalidTransitionError
    assert.ErrorAs(t, err, &invalid)
}

func TestEngine_TransitionUnknownOccupant(t *testing.T) {
    engine := NewEngine(NewMemoryStore())
    _, err := engine.Finish(context.Background(), reservation(42))
    assert.ErrorIs(t, err, ErrNoAllocations)
}

// TestEngine_NoDoubleBooking throws randomized reserve/release traffic
// at a small layout and checks the core invariant after every step:
// no seat ever holds two active allocations with overlapping windows.
func TestEngine_NoDoubleBooking(t *testing.T) {
    store := NewMemoryStore()
    engine := NewEngine(store)
    ctx := context.Background()
    ix := testIndex()
    rng := rand.New(rand.NewSource(1))
    labels := []string{"A1", "A2", "B1", "B2"}

    for step := 0; step < 500; step++ {
        occ := reservation(uint64(rng.Intn(12) + 1))
        if rng.Intn(3) == 0 {
            _, err := engine.Cancel(ctx, occ)
            if err != nil {
                assert.ErrorIs(t, err, ErrNoAllocations)
            }
        } else {
            start := at(10+rng.Intn(12), 0)
            req := ReserveRequest{
                Occupant:   occ,
                SeatLabels: []string{labels[rng.Intn(len(labels))]},
                StartsAt:   start,
                EndsAt:     start.Add(time.Duration(30+rng.Intn(120)) * time.Minute),
            }
            // Conflicts and busy occupants are expected; anything
            // else is a bug.
            if _, err := engine.Reserve(ctx, ix, req); err != nil {
                var conflict *SeatConflictError
                var invalid *InvalidTransitionError
                if !errors.As(err, &conflict) && !errors.As(err, &invalid) {
                    t.Fatalf("unexpected error: %v", err)
                }
            }
        }

        assertNoOverlap(t, store.Allocations())
    }
}

func assertNoOverlap(t *testing.T, allocs []model.SeatAllocation) {
    t.Helper()
    for i := range allocs {
        if !allocs[i].Active() {
            continue
        }
        for j := i + 1; j < len(allocs); j++ {
            if !allocs[j].Active() || allocs[i].SeatID != allocs[j].SeatID {
                continue
            }
            a := Window{Start: allocs[i].StartsAt, End: allocs[i].EndsAt}
            b := Window{Start: allocs[j].StartsAt, End: allocs[j].EndsAt}
            if a.Overlaps(b) {
                t.Fatalf("seat %d double booked: allocations %d and %d overlap", allocs[i].SeatID, allocs[i].ID, allocs[j].ID)
            }
        }
    }
}
