package allocation

import (
    "context"
    "sync"
    "time"

    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

// MemoryStore is an in-memory Store used by tests and local
// development.  Transact serializes on a mutex and stages writes so a
// failed unit leaves the store untouched, mirroring the rollback
// behavior of the SQL store.
type MemoryStore struct {
    mu        sync.Mutex
    nextID    uint64
    allocs    []model.SeatAllocation
    occStatus map[model.OccupantRef]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{nextID: 1, occStatus: make(map[model.OccupantRef]string)}
}

// Transact implements Store.
func (s *MemoryStore) Transact(ctx context.Context, fn func(tx Tx) error) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    tx := &memTx{store: s}
    if err := fn(tx); err != nil {
        return err
    }
    tx.apply()
    return nil
}

// AllocationsIntersecting returns every allocation whose window
// overlaps [from, to), released or not.  It serves as the occupancy
// query in tests, matching AllocationRepo's method of the same name.
func (s *MemoryStore) AllocationsIntersecting(ctx context.Context, from, to time.Time) ([]model.SeatAllocation, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    w := Window{Start: from, End: to}
    out := make([]model.SeatAllocation, 0)
    for _, a := range s.allocs {
        if w.Overlaps(Window{Start: a.StartsAt, End: a.EndsAt}) {
            out = append(out, a)
        }
    }
    return out, nil
}

// Allocations returns a copy of every stored allocation.
func (s *MemoryStore) Allocations() []model.SeatAllocation {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := make([]model.SeatAllocation, len(s.allocs))
    copy(out, s.allocs)
    return out
}

// OccupantStatus returns the last status mirrored onto an occupant,
// or "" when the engine never touched it.
func (s *MemoryStore) OccupantStatus(occ model.OccupantRef) string {
    s.mu.Lock()
    defer s.mu.Unlock()
    return s.occStatus[occ]
}

// memTx stages writes against a MemoryStore and applies them only
// when the transactional fn succeeds.
type memTx struct {
    store    *MemoryStore
    inserts  []*model.SeatAllocation
    updates  []memUpdate
    statuses []memOccStatus
}

type memUpdate struct {
    ids        map[uint64]struct{}
    status     string
    releasedAt *time.Time
}

type memOccStatus struct {
    occ    model.OccupantRef
    status string
}

func (t *memTx) ActiveBySeats(ctx context.Context, seatIDs []uint64) ([]model.SeatAllocation, error) {
    want := make(map[uint64]struct{}, len(seatIDs))
    for _, id := range seatIDs {
        want[id] = struct{}{}
    }
    out := make([]model.SeatAllocation, 0)
    for _, a := range t.store.allocs {
        if _, ok := want[a.SeatID]; ok && a.Active() {
            out = append(out, a)
        }
    }
    return out, nil
}

func (t *memTx) ActiveByOccupants(ctx context.Context, occs []model.OccupantRef) ([]model.SeatAllocation, error) {
    want := make(map[model.OccupantRef]struct{}, len(occs))
    for _, o := range occs {
        want[o] = struct{}{}
    }
    out := make([]model.SeatAllocation, 0)
    for _, a := range t.store.allocs {
        if _, ok := want[a.Occupant()]; ok && a.Active() {
            out = append(out, a)
        }
    }
    return out, nil
}

func (t *memTx) ByOccupant(ctx context.Context, occ model.OccupantRef) ([]model.SeatAllocation, error) {
    out := make([]model.SeatAllocation, 0)
    for _, a := range t.store.allocs {
        if a.Occupant() == occ {
            out = append(out, a)
        }
    }
    return out, nil
}

func (t *memTx) Insert(ctx context.Context, allocs []*model.SeatAllocation) error {
    // IDs and timestamps are filled in here so callers see them
    // before Transact returns, as the SQL store does via LastInsertId.
    // The store mutex is held for the whole Transact, so nextID is
    // safe to advance even though the row append stays staged.
    now := time.Now().UTC()
    for _, a := range allocs {
        a.ID = t.store.nextID
        t.store.nextID++
        a.CreatedAt = now
        a.UpdatedAt = now
    }
    t.inserts = append(t.inserts, allocs...)
    return nil
}

func (t *memTx) UpdateStatus(ctx context.Context, ids []uint64, status string, releasedAt *time.Time) error {
    set := make(map[uint64]struct{}, len(ids))
    for _, id := range ids {
        set[id] = struct{}{}
    }
    t.updates = append(t.updates, memUpdate{ids: set, status: status, releasedAt: releasedAt})
    return nil
}

func (t *memTx) SetOccupantStatus(ctx context.Context, occ model.OccupantRef, status string) error {
    t.statuses = append(t.statuses, memOccStatus{occ: occ, status: status})
    return nil
}

func (t *memTx) apply() {
    now := time.Now().UTC()
    for _, a := range t.inserts {
        t.store.allocs = append(t.store.allocs, *a)
    }
    for _, u := range t.updates {
        for i := range t.store.allocs {
            if _, ok := u.ids[t.store.allocs[i].ID]; ok {
                t.store.allocs[i].Status = u.status
                t.store.allocs[i].ReleasedAt = u.releasedAt
                t.store.allocs[i].UpdatedAt = now
            }
        }
    }
    for _, s := range t.statuses {
        t.store.occStatus[s.occ] = s.status
    }
}
