package repository

import (
    "context"
    "database/sql"
    "strings"
    "time"

    "github.com/tavolo/restaurant-seat-allocation/internal/allocation"
    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

const dbTimeLayout = "2006-01-02 15:04:05"

// AllocationRepo persists seat allocations and implements
// allocation.Store, so the engine's conflict checks and inserts run
// inside one MySQL transaction.  Allocation rows are append-mostly:
// status and released_at are updated in place, rows are never
// deleted.
type AllocationRepo struct {
    db *sql.DB
}

// NewAllocationRepo returns a new AllocationRepo bound to the given database.
func NewAllocationRepo(db *sql.DB) *AllocationRepo { return &AllocationRepo{db: db} }

// Transact implements allocation.Store.  The engine's per-operation
// work runs in fn against a single transaction which is rolled back
// on any error, so a failed batch never leaves partial allocations
// behind.
func (r *AllocationRepo) Transact(ctx context.Context, fn func(tx allocation.Tx) error) error {
    sqltx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = sqltx.Rollback()
        }
    }()
    if err := fn(&allocTx{tx: sqltx}); err != nil {
        return err
    }
    if err := sqltx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

const allocColumns = `id, seat_id, occupant_type, occupant_id, starts_at, ends_at, occupant_status, released_at, created_at, updated_at`

// AllocationsIntersecting returns every allocation whose window
// overlaps [from, to), including released history.  The occupancy
// index filters the active ones itself; returning the full set keeps
// the query reusable for the daily report.
func (r *AllocationRepo) AllocationsIntersecting(ctx context.Context, from, to time.Time) ([]model.SeatAllocation, error) {
    q := `SELECT ` + allocColumns + ` FROM seat_allocations
          WHERE starts_at < ? AND ends_at > ? ORDER BY starts_at, id`
    rows, err := r.db.QueryContext(ctx, q, to.UTC().Format(dbTimeLayout), from.UTC().Format(dbTimeLayout))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanAllocations(rows)
}

// ListByOccupant returns the occupant's full allocation history,
// newest window first.
func (r *AllocationRepo) ListByOccupant(ctx context.Context, occ model.OccupantRef) ([]model.SeatAllocation, error) {
    q := `SELECT ` + allocColumns + ` FROM seat_allocations
          WHERE occupant_type = ? AND occupant_id = ? ORDER BY starts_at DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, occ.Type, occ.ID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanAllocations(rows)
}

// allocTx implements allocation.Tx over one *sql.Tx.
type allocTx struct {
    tx *sql.Tx
}

// activeStatusList is the SQL fragment matching actively-occupying
// statuses.
const activeStatusList = `('RESERVED','ARRIVED','SEATED')`

// ActiveBySeats loads the active allocations for the given seats with
// FOR UPDATE, so two staff members reserving the same seat at the
// same time serialize on these rows and the second sees the first's
// insert (or its conflict) rather than a stale snapshot.
func (t *allocTx) ActiveBySeats(ctx context.Context, seatIDs []uint64) ([]model.SeatAllocation, error) {
    if len(seatIDs) == 0 {
        return []model.SeatAllocation{}, nil
    }
    placeholders := make([]string, len(seatIDs))
    args := make([]interface{}, len(seatIDs))
    for i, id := range seatIDs {
        placeholders[i] = "?"
        args[i] = id
    }
    q := `SELECT ` + allocColumns + ` FROM seat_allocations
          WHERE seat_id IN (` + strings.Join(placeholders, ",") + `)
            AND released_at IS NULL AND occupant_status IN ` + activeStatusList + `
          FOR UPDATE`
    rows, err := t.tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanAllocations(rows)
}

// ActiveByOccupants loads the active allocations held by the given
// occupants.
func (t *allocTx) ActiveByOccupants(ctx context.Context, occs []model.OccupantRef) ([]model.SeatAllocation, error) {
    if len(occs) == 0 {
        return []model.SeatAllocation{}, nil
    }
    clauses := make([]string, len(occs))
    args := make([]interface{}, 0, len(occs)*2)
    for i, o := range occs {
        clauses[i] = "(occupant_type = ? AND occupant_id = ?)"
        args = append(args, o.Type, o.ID)
    }
    q := `SELECT ` + allocColumns + ` FROM seat_allocations
          WHERE (` + strings.Join(clauses, " OR ") + `)
            AND released_at IS NULL AND occupant_status IN ` + activeStatusList + `
          FOR UPDATE`
    rows, err := t.tx.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanAllocations(rows)
}

// ByOccupant loads every allocation of one occupant, released history
// included.
func (t *allocTx) ByOccupant(ctx context.Context, occ model.OccupantRef) ([]model.SeatAllocation, error) {
    q := `SELECT ` + allocColumns + ` FROM seat_allocations
          WHERE occupant_type = ? AND occupant_id = ?
          ORDER BY starts_at DESC, id DESC
          FOR UPDATE`
    rows, err := t.tx.QueryContext(ctx, q, occ.Type, occ.ID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return scanAllocations(rows)
}

// Insert persists the planned allocations one row at a time so each
// record gets its generated ID back.  Batches are small (a party's
// seats), so the extra round trips inside the transaction are cheap.
func (t *allocTx) Insert(ctx context.Context, allocs []*model.SeatAllocation) error {
    const q = `INSERT INTO seat_allocations (seat_id, occupant_type, occupant_id, starts_at, ends_at, occupant_status)
               VALUES (?, ?, ?, ?, ?, ?)`
    for _, a := range allocs {
        res, err := t.tx.ExecContext(ctx, q,
            a.SeatID, a.OccupantType, a.OccupantID,
            a.StartsAt.UTC().Format(dbTimeLayout), a.EndsAt.UTC().Format(dbTimeLayout), a.Status)
        if err != nil {
            return err
        }
        id, err := res.LastInsertId()
        if err != nil {
            return err
        }
        a.ID = uint64(id)
    }
    return nil
}

// UpdateStatus moves the identified allocations into status, stamping
// released_at when the transition is terminal.
func (t *allocTx) UpdateStatus(ctx context.Context, ids []uint64, status string, releasedAt *time.Time) error {
    if len(ids) == 0 {
        return nil
    }
    placeholders := make([]string, len(ids))
    args := make([]interface{}, 0, len(ids)+2)
    var rel interface{}
    if releasedAt != nil {
        rel = releasedAt.UTC().Format(dbTimeLayout)
    }
    args = append(args, status, rel)
    for i, id := range ids {
        placeholders[i] = "?"
        args = append(args, id)
    }
    q := `UPDATE seat_allocations SET occupant_status = ?, released_at = ?
          WHERE id IN (` + strings.Join(placeholders, ",") + `)`
    _, err := t.tx.ExecContext(ctx, q, args...)
    return err
}

// SetOccupantStatus mirrors the allocation lifecycle onto the
// occupant's own row inside the same transaction, keeping a
// reservation's status in step with its allocations.
func (t *allocTx) SetOccupantStatus(ctx context.Context, occ model.OccupantRef, status string) error {
    var q string
    switch occ.Type {
    case model.OccupantReservation:
        q = `UPDATE reservations SET status = ? WHERE id = ?`
    case model.OccupantWaitlist:
        q = `UPDATE waitlist_entries SET status = ? WHERE id = ?`
    default:
        return nil
    }
    _, err := t.tx.ExecContext(ctx, q, status, occ.ID)
    return err
}

// scanAllocations drains rows produced by a SELECT of allocColumns.
func scanAllocations(rows *sql.Rows) ([]model.SeatAllocation, error) {
    out := make([]model.SeatAllocation, 0)
    for rows.Next() {
        var a model.SeatAllocation
        var released sql.NullTime
        if err := rows.Scan(&a.ID, &a.SeatID, &a.OccupantType, &a.OccupantID,
            &a.StartsAt, &a.EndsAt, &a.Status, &released, &a.CreatedAt, &a.UpdatedAt); err != nil {
            return nil, err
        }
        if released.Valid {
            rel := released.Time
            a.ReleasedAt = &rel
        }
        out = append(out, a)
    }
    return out, rows.Err()
}
