package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "time"

    "github.com/google/uuid"

    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

// ReservationRepo provides CRUD operations for reservations and
// their ranked seat-preference sets.  Preference sets live in the
// reservation_preferences table, one row per rank, with the labels of
// the set stored as a JSON array.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// Create inserts a reservation in status BOOKED together with its
// preference sets and returns the stored record.  A fresh public_ref
// UUID is generated for the client to use in later calls.
func (r *ReservationRepo) Create(ctx context.Context, name, phone string, partySize uint32, startsAt time.Time, durationMin uint32, preferences [][]string) (*model.Reservation, error) {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    ref := uuid.NewString()
    res, err := tx.ExecContext(ctx,
        `INSERT INTO reservations (public_ref, name, phone, party_size, starts_at, duration_min, status)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
        ref, name, phone, partySize, startsAt.UTC().Format("2006-01-02 15:04:05"), durationMin, model.ReservationBooked)
    if err != nil {
        return nil, err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return nil, err
    }
    for rank, set := range preferences {
        labels, err := json.Marshal(set)
        if err != nil {
            return nil, err
        }
        if _, err := tx.ExecContext(ctx,
            `INSERT INTO reservation_preferences (reservation_id, rank_no, seat_labels) VALUES (?, ?, ?)`,
            id, rank, string(labels)); err != nil {
            return nil, err
        }
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return r.GetByID(ctx, uint64(id))
}

// GetByID returns one reservation with its preferences.  sql.ErrNoRows
// is returned when it does not exist.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    const q = `SELECT id, public_ref, name, phone, party_size, starts_at, duration_min, status, created_at, updated_at
               FROM reservations WHERE id = ?`
    return r.getOne(ctx, q, id)
}

// GetByRef returns one reservation by its client-facing UUID.
func (r *ReservationRepo) GetByRef(ctx context.Context, publicRef string) (*model.Reservation, error) {
    const q = `SELECT id, public_ref, name, phone, party_size, starts_at, duration_min, status, created_at, updated_at
               FROM reservations WHERE public_ref = ?`
    return r.getOne(ctx, q, publicRef)
}

func (r *ReservationRepo) getOne(ctx context.Context, q string, arg interface{}) (*model.Reservation, error) {
    var res model.Reservation
    err := r.db.QueryRowContext(ctx, q, arg).Scan(
        &res.ID, &res.PublicRef, &res.Name, &res.Phone, &res.PartySize,
        &res.StartsAt, &res.DurationMin, &res.Status, &res.CreatedAt, &res.UpdatedAt,
    )
    if err != nil {
        return nil, err
    }
    prefs, err := r.preferences(ctx, res.ID)
    if err != nil {
        return nil, err
    }
    res.Preferences = prefs
    return &res, nil
}

// preferences loads the ranked preference sets for one reservation,
// ordered by rank ascending (index 0 = first choice).
func (r *ReservationRepo) preferences(ctx context.Context, reservationID uint64) ([][]string, error) {
    const q = `SELECT seat_labels FROM reservation_preferences WHERE reservation_id = ? ORDER BY rank_no`
    rows, err := r.db.QueryContext(ctx, q, reservationID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    prefs := make([][]string, 0, model.MaxPreferenceSets)
    for rows.Next() {
        var raw string
        if err := rows.Scan(&raw); err != nil {
            return nil, err
        }
        var set []string
        if err := json.Unmarshal([]byte(raw), &set); err != nil {
            return nil, err
        }
        prefs = append(prefs, set)
    }
    return prefs, rows.Err()
}

// ListByDate returns all reservations whose requested window
// intersects the UTC day starting at dayStart, newest first.
func (r *ReservationRepo) ListByDate(ctx context.Context, dayStart time.Time) ([]model.Reservation, error) {
    dayEnd := dayStart.Add(24 * time.Hour)
    const q = `SELECT id, public_ref, name, phone, party_size, starts_at, duration_min, status, created_at, updated_at
               FROM reservations
               WHERE starts_at < ? AND DATE_ADD(starts_at, INTERVAL duration_min MINUTE) > ?
               ORDER BY starts_at, id`
    rows, err := r.db.QueryContext(ctx, q,
        dayEnd.UTC().Format("2006-01-02 15:04:05"), dayStart.UTC().Format("2006-01-02 15:04:05"))
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        var res model.Reservation
        if err := rows.Scan(&res.ID, &res.PublicRef, &res.Name, &res.Phone, &res.PartySize,
            &res.StartsAt, &res.DurationMin, &res.Status, &res.CreatedAt, &res.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    for i := range out {
        prefs, err := r.preferences(ctx, out[i].ID)
        if err != nil {
            return nil, err
        }
        out[i].Preferences = prefs
    }
    return out, nil
}
