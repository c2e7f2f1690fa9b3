package repository

import (
    "context"
    "database/sql"

    "github.com/google/uuid"

    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

// WaitlistRepo provides CRUD operations for walk-in waitlist entries.
type WaitlistRepo struct {
    db *sql.DB
}

// NewWaitlistRepo returns a new WaitlistRepo bound to the given database.
func NewWaitlistRepo(db *sql.DB) *WaitlistRepo { return &WaitlistRepo{db: db} }

// Create checks a walk-in party onto the waitlist in status WAITING.
// The check-in time is set by the database.
func (r *WaitlistRepo) Create(ctx context.Context, name, phone string, partySize uint32) (*model.WaitlistEntry, error) {
    ref := uuid.NewString()
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO waitlist_entries (public_ref, name, phone, party_size, status)
         VALUES (?, ?, ?, ?, ?)`,
        ref, name, phone, partySize, model.WaitlistWaiting)
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    return r.GetByID(ctx, uint64(id))
}

// GetByID returns one waitlist entry.  sql.ErrNoRows is returned when
// it does not exist.
func (r *WaitlistRepo) GetByID(ctx context.Context, id uint64) (*model.WaitlistEntry, error) {
    const q = `SELECT id, public_ref, name, phone, party_size, checked_in_at, status
               FROM waitlist_entries WHERE id = ?`
    return r.getOne(ctx, q, id)
}

// GetByRef returns one waitlist entry by its client-facing UUID.
func (r *WaitlistRepo) GetByRef(ctx context.Context, publicRef string) (*model.WaitlistEntry, error) {
    const q = `SELECT id, public_ref, name, phone, party_size, checked_in_at, status
               FROM waitlist_entries WHERE public_ref = ?`
    return r.getOne(ctx, q, publicRef)
}

func (r *WaitlistRepo) getOne(ctx context.Context, q string, arg interface{}) (*model.WaitlistEntry, error) {
    var e model.WaitlistEntry
    err := r.db.QueryRowContext(ctx, q, arg).Scan(
        &e.ID, &e.PublicRef, &e.Name, &e.Phone, &e.PartySize, &e.CheckedInAt, &e.Status,
    )
    if err != nil {
        return nil, err
    }
    return &e, nil
}

// ListWaiting returns entries still waiting to be seated, oldest
// check-in first so staff work the queue in arrival order.
func (r *WaitlistRepo) ListWaiting(ctx context.Context) ([]model.WaitlistEntry, error) {
    const q = `SELECT id, public_ref, name, phone, party_size, checked_in_at, status
               FROM waitlist_entries WHERE status = ? ORDER BY checked_in_at, id`
    rows, err := r.db.QueryContext(ctx, q, model.WaitlistWaiting)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.WaitlistEntry, 0)
    for rows.Next() {
        var e model.WaitlistEntry
        if err := rows.Scan(&e.ID, &e.PublicRef, &e.Name, &e.Phone, &e.PartySize, &e.CheckedInAt, &e.Status); err != nil {
            return nil, err
        }
        out = append(out, e)
    }
    return out, rows.Err()
}

// SetStatus updates an entry's status directly, used by the remove
// endpoint for parties that leave before ever holding a seat.
func (r *WaitlistRepo) SetStatus(ctx context.Context, id uint64, status string) error {
    res, err := r.db.ExecContext(ctx, `UPDATE waitlist_entries SET status = ? WHERE id = ?`, status, id)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 0 {
        return sql.ErrNoRows
    }
    return nil
}
