package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/tavolo/restaurant-seat-allocation/internal/allocation"
    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

// LayoutRepo provides read and write access to layouts, sections and
// seats.  The allocation engine only ever reads through it; writes
// come from the admin layout endpoints that persist what the
// floor-plan editor produces.
type LayoutRepo struct {
    db *sql.DB
}

// NewLayoutRepo returns a new LayoutRepo bound to the given database.
func NewLayoutRepo(db *sql.DB) *LayoutRepo { return &LayoutRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions
// spanning several repositories.
func (r *LayoutRepo) DB() *sql.DB { return r.db }

// GetActive returns the layout currently marked active.  When no
// layout is active it returns allocation.ErrNoActiveLayout.
func (r *LayoutRepo) GetActive(ctx context.Context) (*model.Layout, error) {
    const q = `SELECT id, name, is_active, created_at, updated_at
               FROM layouts WHERE is_active = 1 LIMIT 1`
    var l model.Layout
    err := r.db.QueryRowContext(ctx, q).Scan(&l.ID, &l.Name, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
    if err == sql.ErrNoRows {
        return nil, allocation.ErrNoActiveLayout
    }
    if err != nil {
        return nil, err
    }
    return &l, nil
}

// GetByID returns one layout by its primary key.  sql.ErrNoRows is
// returned when it does not exist.
func (r *LayoutRepo) GetByID(ctx context.Context, layoutID uint64) (*model.Layout, error) {
    const q = `SELECT id, name, is_active, created_at, updated_at FROM layouts WHERE id = ?`
    var l model.Layout
    if err := r.db.QueryRowContext(ctx, q, layoutID).Scan(&l.ID, &l.Name, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
        return nil, err
    }
    return &l, nil
}

// List returns all layouts, active first, then newest first.
func (r *LayoutRepo) List(ctx context.Context) ([]model.Layout, error) {
    const q = `SELECT id, name, is_active, created_at, updated_at
               FROM layouts ORDER BY is_active DESC, created_at DESC`
    rows, err := r.db.QueryContext(ctx, q)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    layouts := make([]model.Layout, 0)
    for rows.Next() {
        var l model.Layout
        if err := rows.Scan(&l.ID, &l.Name, &l.IsActive, &l.CreatedAt, &l.UpdatedAt); err != nil {
            return nil, err
        }
        layouts = append(layouts, l)
    }
    return layouts, rows.Err()
}

// ListSections returns the layout's sections in their sort order.
func (r *LayoutRepo) ListSections(ctx context.Context, layoutID uint64) ([]model.Section, error) {
    const q = `SELECT id, layout_id, name, section_type, orientation, floor_no, offset_x, offset_y, sort_order
               FROM sections WHERE layout_id = ? ORDER BY sort_order, id`
    rows, err := r.db.QueryContext(ctx, q, layoutID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    sections := make([]model.Section, 0)
    for rows.Next() {
        var s model.Section
        if err := rows.Scan(&s.ID, &s.LayoutID, &s.Name, &s.SectionType, &s.Orientation,
            &s.FloorNo, &s.OffsetX, &s.OffsetY, &s.SortOrder); err != nil {
            return nil, err
        }
        sections = append(sections, s)
    }
    return sections, rows.Err()
}

// ListSeats returns every seat of the layout in stable order: section
// sort order first, then seat sort order within the section.  This
// order drives the label index used by occupancy queries, so it must
// not change between calls for the same layout.
func (r *LayoutRepo) ListSeats(ctx context.Context, layoutID uint64) ([]model.Seat, error) {
    const q = `SELECT st.id, st.section_id, st.label, st.capacity, st.pos_x, st.pos_y, st.sort_order
               FROM seats st
               JOIN sections sc ON sc.id = st.section_id
               WHERE sc.layout_id = ?
               ORDER BY sc.sort_order, sc.id, st.sort_order, st.id`
    rows, err := r.db.QueryContext(ctx, q, layoutID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    seats := make([]model.Seat, 0)
    for rows.Next() {
        var s model.Seat
        if err := rows.Scan(&s.ID, &s.SectionID, &s.Label, &s.Capacity, &s.PosX, &s.PosY, &s.SortOrder); err != nil {
            return nil, err
        }
        seats = append(seats, s)
    }
    return seats, rows.Err()
}

// SectionInput and SeatInput carry editor output into Create.

type SeatInput struct {
    Label    string
    Capacity uint32
    PosX     int32
    PosY     int32
}

type SectionInput struct {
    Name        string
    SectionType string
    Orientation string
    FloorNo     uint32
    OffsetX     int32
    OffsetY     int32
    Seats       []SeatInput
}

// Create inserts a layout with its sections and seats in one
// transaction.  New layouts start inactive; activation is a separate
// explicit step.  Seat labels are checked for uniqueness across the
// whole layout before any row is written; a duplicate fails the
// entire create with ErrDuplicateLabel.
func (r *LayoutRepo) Create(ctx context.Context, name string, sections []SectionInput) (uint64, error) {
    seen := make(map[string]struct{})
    for _, sec := range sections {
        for _, st := range sec.Seats {
            label := strings.TrimSpace(st.Label)
            if _, dup := seen[label]; dup {
                return 0, ErrDuplicateLabel
            }
            seen[label] = struct{}{}
        }
    }

    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    res, err := tx.ExecContext(ctx, `INSERT INTO layouts (name, is_active) VALUES (?, 0)`, name)
    if err != nil {
        return 0, err
    }
    layoutID, err := res.LastInsertId()
    if err != nil {
        return 0, err
    }
    for i, sec := range sections {
        sres, err := tx.ExecContext(ctx,
            `INSERT INTO sections (layout_id, name, section_type, orientation, floor_no, offset_x, offset_y, sort_order)
             VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
            layoutID, sec.Name, sec.SectionType, sec.Orientation, sec.FloorNo, sec.OffsetX, sec.OffsetY, i)
        if err != nil {
            return 0, err
        }
        sectionID, err := sres.LastInsertId()
        if err != nil {
            return 0, err
        }
        if len(sec.Seats) == 0 {
            continue
        }
        query := `INSERT INTO seats (section_id, label, capacity, pos_x, pos_y, sort_order) VALUES `
        args := make([]interface{}, 0, len(sec.Seats)*6)
        for j, st := range sec.Seats {
            if j > 0 {
                query += ","
            }
            query += "(?, ?, ?, ?, ?, ?)"
            args = append(args, sectionID, strings.TrimSpace(st.Label), st.Capacity, st.PosX, st.PosY, j)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return 0, err
        }
    }
    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return uint64(layoutID), nil
}

// Activate marks the given layout active and every other layout
// inactive, in one transaction so "current floor plan" queries never
// see zero or two active layouts.  sql.ErrNoRows is returned when the
// layout does not exist.
func (r *LayoutRepo) Activate(ctx context.Context, layoutID uint64) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    var exists uint64
    if err := tx.QueryRowContext(ctx, `SELECT id FROM layouts WHERE id = ? FOR UPDATE`, layoutID).Scan(&exists); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `UPDATE layouts SET is_active = 0 WHERE is_active = 1 AND id <> ?`, layoutID); err != nil {
        return err
    }
    if _, err := tx.ExecContext(ctx, `UPDATE layouts SET is_active = 1 WHERE id = ?`, layoutID); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
