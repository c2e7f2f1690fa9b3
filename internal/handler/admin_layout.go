package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/tavolo/restaurant-seat-allocation/internal/model"
    "github.com/tavolo/restaurant-seat-allocation/internal/repository"
)

// LayoutAdmin is the write side of the layout store.
type LayoutAdmin interface {
    Create(ctx context.Context, name string, sections []repository.SectionInput) (uint64, error)
    Activate(ctx context.Context, layoutID uint64) error
    List(ctx context.Context) ([]model.Layout, error)
}

// AdminHandler manages floor-plan layouts on behalf of admins.  It
// stores what the floor-plan editor produces; geometry is persisted
// but only labels and capacities matter to allocation logic.
type AdminHandler struct {
    Layouts LayoutAdmin
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(layouts LayoutAdmin) *AdminHandler {
    if layouts == nil {
        panic("nil layout store passed to NewAdminHandler")
    }
    return &AdminHandler{Layouts: layouts}
}

// CreateLayout handles POST /v1/layouts.  The body carries the full
// editor output: sections with their seats.  Duplicate seat labels
// anywhere in the layout fail the whole create with 422.  New
// layouts start inactive.
func (h *AdminHandler) CreateLayout(c echo.Context) error {
    var body struct {
        Name     string `json:"name"`
        Sections []struct {
            Name        string `json:"name"`
            SectionType string `json:"type"`
            Orientation string `json:"orientation"`
            FloorNo     uint32 `json:"floor_no"`
            OffsetX     int32  `json:"offset_x"`
            OffsetY     int32  `json:"offset_y"`
            Seats       []struct {
                Label    string `json:"label"`
                Capacity uint32 `json:"capacity"`
                PosX     int32  `json:"pos_x"`
                PosY     int32  `json:"pos_y"`
            } `json:"seats"`
        } `json:"sections"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.Name == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
    }

    sections := make([]repository.SectionInput, 0, len(body.Sections))
    for _, sec := range body.Sections {
        st := normalizeSectionType(sec.SectionType)
        if st == "" {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "section type must be table or counter"})
        }
        si := repository.SectionInput{
            Name:        sec.Name,
            SectionType: st,
            Orientation: sec.Orientation,
            FloorNo:     sec.FloorNo,
            OffsetX:     sec.OffsetX,
            OffsetY:     sec.OffsetY,
        }
        for _, seat := range sec.Seats {
            if seat.Label == "" {
                return c.JSON(http.StatusBadRequest, echo.Map{"error": "seat label is required"})
            }
            capacity := seat.Capacity
            if capacity == 0 {
                capacity = 1
            }
            si.Seats = append(si.Seats, repository.SeatInput{
                Label: seat.Label, Capacity: capacity, PosX: seat.PosX, PosY: seat.PosY,
            })
        }
        sections = append(sections, si)
    }

    id, err := h.Layouts.Create(c.Request().Context(), body.Name, sections)
    if err != nil {
        if errors.Is(err, repository.ErrDuplicateLabel) {
            return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "duplicate seat label in layout"})
        }
        return engineError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// ActivateLayout handles POST /v1/layouts/:id/activate.  Activation
// is exclusive: every other layout is deactivated in the same
// transaction.
func (h *AdminHandler) ActivateLayout(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid layout id"})
    }
    if err := h.Layouts.Activate(c.Request().Context(), id); err != nil {
        return engineError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"activated": id})
}

// ListLayouts handles GET /v1/layouts, active layout first.
func (h *AdminHandler) ListLayouts(c echo.Context) error {
    layouts, err := h.Layouts.List(c.Request().Context())
    if err != nil {
        return engineError(c, err)
    }
    type layoutJSON struct {
        ID       uint64 `json:"id"`
        Name     string `json:"name"`
        IsActive bool   `json:"is_active"`
    }
    out := make([]layoutJSON, 0, len(layouts))
    for _, l := range layouts {
        out = append(out, layoutJSON{ID: l.ID, Name: l.Name, IsActive: l.IsActive})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

func normalizeSectionType(raw string) string {
    switch raw {
    case "table", "TABLE":
        return model.SectionTypeTable
    case "counter", "COUNTER":
        return model.SectionTypeCounter
    }
    return ""
}
