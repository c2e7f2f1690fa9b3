package handler

import (
    "context"
    "database/sql"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/tavolo/restaurant-seat-allocation/internal/allocation"
    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

// fakeLayouts serves one fixed layout: two tables with two seats each.
type fakeLayouts struct {
    active bool
}

func (f *fakeLayouts) GetActive(ctx context.Context) (*model.Layout, error) {
    if !f.active {
        return nil, allocation.ErrNoActiveLayout
    }
    return &model.Layout{ID: 1, Name: "Main Floor", IsActive: true}, nil
}

func (f *fakeLayouts) ListSections(ctx context.Context, layoutID uint64) ([]model.Section, error) {
    return []model.Section{
        {ID: 1, LayoutID: 1, Name: "Table A", SectionType: model.SectionTypeTable, SortOrder: 0},
        {ID: 2, LayoutID: 1, Name: "Counter B", SectionType: model.SectionTypeCounter, SortOrder: 1},
    }, nil
}

func (f *fakeLayouts) ListSeats(ctx context.Context, layoutID uint64) ([]model.Seat, error) {
    return []model.Seat{
        {ID: 10, SectionID: 1, Label: "A1", Capacity: 2},
        {ID: 11, SectionID: 1, Label: "A2", Capacity: 2},
        {ID: 12, SectionID: 2, Label: "B1", Capacity: 1},
        {ID: 13, SectionID: 2, Label: "B2", Capacity: 1},
    }, nil
}

// fakeReservations keeps reservations in a slice keyed by public ref.
type fakeReservations struct {
    items []*model.Reservation
}

func (f *fakeReservations) Create(ctx context.Context, name, phone string, partySize uint32, startsAt time.Time, durationMin uint32, preferences [][]string) (*model.Reservation, error) {
    res := &model.Reservation{
        ID:          uint64(len(f.items) + 1),
        PublicRef:   fmt.Sprintf("res-%d", len(f.items)+1),
        Name:        name,
        Phone:       phone,
        PartySize:   partySize,
        StartsAt:    startsAt,
        DurationMin: durationMin,
        Status:      model.ReservationBooked,
        Preferences: preferences,
    }
    f.items = append(f.items, res)
    return res, nil
}

func (f *fakeReservations) GetByRef(ctx context.Context, publicRef string) (*model.Reservation, error) {
    for _, r := range f.items {
        if r.PublicRef == publicRef {
            return r, nil
        }
    }
    return nil, sql.ErrNoRows
}

func (f *fakeReservations) ListByDate(ctx context.Context, dayStart time.Time) ([]model.Reservation, error) {
    day := allocation.DayWindow(dayStart)
    out := make([]model.Reservation, 0)
    for _, r := range f.items {
        if day.Overlaps(allocation.Window{Start: r.StartsAt, End: r.EndsAt()}) {
            out = append(out, *r)
        }
    }
    return out, nil
}

// fakeWaitlist mirrors fakeReservations for walk-ins.
type fakeWaitlist struct {
    items []*model.WaitlistEntry
}

func (f *fakeWaitlist) Create(ctx context.Context, name, phone string, partySize uint32) (*model.WaitlistEntry, error) {
    e := &model.WaitlistEntry{
        ID:          uint64(len(f.items) + 1),
        PublicRef:   fmt.Sprintf("wl-%d", len(f.items)+1),
        Name:        name,
        Phone:       phone,
        PartySize:   partySize,
        CheckedInAt: time.Now().UTC(),
        Status:      model.WaitlistWaiting,
    }
    f.items = append(f.items, e)
    return e, nil
}

func (f *fakeWaitlist) GetByRef(ctx context.Context, publicRef string) (*model.WaitlistEntry, error) {
    for _, e := range f.items {
        if e.PublicRef == publicRef {
            return e, nil
        }
    }
    return nil, sql.ErrNoRows
}

func (f *fakeWaitlist) ListWaiting(ctx context.Context) ([]model.WaitlistEntry, error) {
    out := make([]model.WaitlistEntry, 0)
    for _, e := range f.items {
        if e.Status == model.WaitlistWaiting {
            out = append(out, *e)
        }
    }
    return out, nil
}

func (f *fakeWaitlist) SetStatus(ctx context.Context, id uint64, status string) error {
    for _, e := range f.items {
        if e.ID == id {
            e.Status = status
            return nil
        }
    }
    return sql.ErrNoRows
}

type fixture struct {
    e      *echo.Echo
    store  *allocation.MemoryStore
    staff  *StaffHandler
    public *PublicHandler
    res    *fakeReservations
    wl     *fakeWaitlist
}

func newFixture(t *testing.T) *fixture {
    t.Helper()
    layouts := &fakeLayouts{active: true}
    store := allocation.NewMemoryStore()
    engine := allocation.NewEngine(store)
    res := &fakeReservations{}
    wl := &fakeWaitlist{}
    return &fixture{
        e:      echo.New(),
        store:  store,
        staff:  NewStaffHandler(engine, layouts, store, res, wl),
        public: NewPublicHandler(layouts, store),
        res:    res,
        wl:     wl,
    }
}

func (f *fixture) request(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, target, strings.NewReader(body))
        req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
    } else {
        req = httptest.NewRequest(method, target, nil)
    }
    rec := httptest.NewRecorder()
    return f.e.NewContext(req, rec), rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
    t.Helper()
    var out map[string]any
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
    return out
}

func (f *fixture) reserve(t *testing.T, ref string, labels []string, start, end string) *httptest.ResponseRecorder {
    t.Helper()
    body := fmt.Sprintf(`{"occupant_type":"reservation","occupant_ref":%q,"seat_labels":[%s],"starts_at":%q,"ends_at":%q}`,
        ref, `"`+strings.Join(labels, `","`)+`"`, start, end)
    c, rec := f.request(http.MethodPost, "/v1/allocations/reserve", body)
    require.NoError(t, f.staff.Reserve(c))
    return rec
}

func (f *fixture) newReservation(t *testing.T, prefs string) string {
    t.Helper()
    body := fmt.Sprintf(`{"name":"Ito","party_size":2,"starts_at":"2026-03-14T18:00:00Z","duration_min":60,"preferences":%s}`, prefs)
    c, rec := f.request(http.MethodPost, "/v1/reservations", body)
    require.NoError(t, f.staff.CreateReservation(c))
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    out := decode(t, rec)
    return out["reservation"].(map[string]any)["ref"].(string)
}

func TestGetActiveLayout(t *testing.T) {
    f := newFixture(t)
    c, rec := f.request(http.MethodGet, "/v1/layouts/active", "")
    require.NoError(t, f.public.GetActiveLayout(c))
    require.Equal(t, http.StatusOK, rec.Code)

    out := decode(t, rec)
    assert.Equal(t, "Main Floor", out["name"])
    sections := out["sections"].([]any)
    require.Len(t, sections, 2)
    first := sections[0].(map[string]any)
    assert.Equal(t, "Table A", first["name"])
    assert.Len(t, first["seats"].([]any), 2)
}

func TestGetActiveLayout_NoneActive(t *testing.T) {
    f := newFixture(t)
    f.public.Layouts = &fakeLayouts{active: false}
    c, rec := f.request(http.MethodGet, "/v1/layouts/active", "")
    require.NoError(t, f.public.GetActiveLayout(c))
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReserveAndOccupancy(t *testing.T) {
    f := newFixture(t)
    ref := f.newReservation(t, `[]`)

    rec := f.reserve(t, ref, []string{"A1", "A2"}, "2026-03-14T18:00:00Z", "2026-03-14T19:00:00Z")
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    out := decode(t, rec)
    allocs := out["allocations"].([]any)
    require.Len(t, allocs, 2)
    assert.Equal(t, "reserved", allocs[0].(map[string]any)["status"])

    c, rec2 := f.request(http.MethodGet, "/v1/occupancy?date=2026-03-14", "")
    require.NoError(t, f.public.GetOccupancy(c))
    require.Equal(t, http.StatusOK, rec2.Code)
    occ := decode(t, rec2)
    assert.Equal(t, []any{"A1", "A2"}, occ["occupied"])
}

func TestReserve_Conflict(t *testing.T) {
    f := newFixture(t)
    ref1 := f.newReservation(t, `[]`)
    ref2 := f.newReservation(t, `[]`)

    rec := f.reserve(t, ref1, []string{"A1"}, "2026-03-14T18:00:00Z", "2026-03-14T19:00:00Z")
    require.Equal(t, http.StatusCreated, rec.Code)

    rec = f.reserve(t, ref2, []string{"A1"}, "2026-03-14T18:30:00Z", "2026-03-14T19:30:00Z")
    require.Equal(t, http.StatusConflict, rec.Code)
    out := decode(t, rec)
    assert.Equal(t, []any{"A1"}, out["conflicting"])
}

func TestReserve_UnknownSeat(t *testing.T) {
    f := newFixture(t)
    ref := f.newReservation(t, `[]`)
    rec := f.reserve(t, ref, []string{"Z9"}, "2026-03-14T18:00:00Z", "2026-03-14T19:00:00Z")
    assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestReserve_UnknownReservation(t *testing.T) {
    f := newFixture(t)
    rec := f.reserve(t, "res-missing", []string{"A1"}, "2026-03-14T18:00:00Z", "2026-03-14T19:00:00Z")
    assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransitionFlow(t *testing.T) {
    f := newFixture(t)
    ref := f.newReservation(t, `[]`)
    f.reserve(t, ref, []string{"A1"}, "2026-03-14T18:00:00Z", "2026-03-14T19:00:00Z")

    body := fmt.Sprintf(`{"occupant_type":"reservation","occupant_ref":%q}`, ref)

    c, rec := f.request(http.MethodPost, "/v1/allocations/arrive", body)
    require.NoError(t, f.staff.Arrive(c))
    require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

    c, rec = f.request(http.MethodPost, "/v1/allocations/seat", body)
    require.NoError(t, f.staff.Seat(c))
    require.Equal(t, http.StatusOK, rec.Code)

    // A seated party cannot be a no-show.
    c, rec = f.request(http.MethodPost, "/v1/allocations/no-show", body)
    require.NoError(t, f.staff.NoShow(c))
    assert.Equal(t, http.StatusConflict, rec.Code)

    c, rec = f.request(http.MethodPost, "/v1/allocations/finish", body)
    require.NoError(t, f.staff.Finish(c))
    require.Equal(t, http.StatusOK, rec.Code)
    out := decode(t, rec)
    first := out["allocations"].([]any)[0].(map[string]any)
    assert.Equal(t, "finished", first["status"])
    assert.NotEmpty(t, first["released_at"])

    // Repeated finish stays 200; the seat is already released.
    c, rec = f.request(http.MethodPost, "/v1/allocations/finish", body)
    require.NoError(t, f.staff.Finish(c))
    assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFinishFreesSeatForOccupancy(t *testing.T) {
    f := newFixture(t)
    ref := f.newReservation(t, `[]`)
    f.reserve(t, ref, []string{"A1"}, "2026-03-14T18:00:00Z", "2026-03-14T19:00:00Z")

    body := fmt.Sprintf(`{"occupant_type":"reservation","occupant_ref":%q}`, ref)
    c, _ := f.request(http.MethodPost, "/v1/allocations/finish", body)
    require.NoError(t, f.staff.Finish(c))

    c, rec := f.request(http.MethodGet, "/v1/occupancy?date=2026-03-14", "")
    require.NoError(t, f.public.GetOccupancy(c))
    out := decode(t, rec)
    assert.Empty(t, out["occupied"], "released seat must drop out of occupancy before ends_at")
}

func TestMultiCreate_AllOrNothing(t *testing.T) {
    f := newFixture(t)
    ref1 := f.newReservation(t, `[]`)
    ref2 := f.newReservation(t, `[]`)
    ref3 := f.newReservation(t, `[]`)

    f.reserve(t, ref1, []string{"B1"}, "2026-03-14T18:00:00Z", "2026-03-14T19:00:00Z")
    before := len(f.store.Allocations())

    body := fmt.Sprintf(`{"requests":[
        {"occupant_type":"reservation","occupant_ref":%q,"seat_labels":["A1"],"starts_at":"2026-03-14T18:00:00Z","ends_at":"2026-03-14T19:00:00Z"},
        {"occupant_type":"reservation","occupant_ref":%q,"seat_labels":["B1"],"starts_at":"2026-03-14T18:30:00Z","ends_at":"2026-03-14T19:30:00Z"}
    ]}`, ref2, ref3)
    c, rec := f.request(http.MethodPost, "/v1/allocations/multi-create", body)
    require.NoError(t, f.staff.MultiCreate(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
    assert.Len(t, f.store.Allocations(), before, "failed batch must not persist anything")
}

func TestAssignReservation(t *testing.T) {
    f := newFixture(t)
    blocker := f.newReservation(t, `[]`)
    f.reserve(t, blocker, []string{"A1"}, "2026-03-14T18:00:00Z", "2026-03-14T19:00:00Z")

    // First choice needs A1 which is taken; second choice B1 is free.
    ref := f.newReservation(t, `[["A1","A2"],["B1"]]`)
    c, rec := f.request(http.MethodPost, "/v1/reservations/"+ref+"/assign", "")
    c.SetParamNames("ref")
    c.SetParamValues(ref)
    require.NoError(t, f.staff.AssignReservation(c))
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

    out := decode(t, rec)
    assert.Equal(t, float64(1), out["option_index"])
    allocs := out["allocations"].([]any)
    require.Len(t, allocs, 1)
    assert.Equal(t, "B1", allocs[0].(map[string]any)["seat_label"])
}

func TestAssignReservation_NoOption(t *testing.T) {
    f := newFixture(t)
    blocker := f.newReservation(t, `[]`)
    f.reserve(t, blocker, []string{"A1", "B1"}, "2026-03-14T18:00:00Z", "2026-03-14T19:00:00Z")

    ref := f.newReservation(t, `[["A1"],["B1"]]`)
    c, rec := f.request(http.MethodPost, "/v1/reservations/"+ref+"/assign", "")
    c.SetParamNames("ref")
    c.SetParamValues(ref)
    require.NoError(t, f.staff.AssignReservation(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAssignReservation_DifferentWindowsShareSeat(t *testing.T) {
    f := newFixture(t)
    lunch := f.newReservation(t, `[]`)
    f.reserve(t, lunch, []string{"A1"}, "2026-03-14T12:00:00Z", "2026-03-14T13:00:00Z")

    // Dinner wants the same seat; the lunch booking must not block it.
    dinner := f.newReservation(t, `[["A1"]]`)
    c, rec := f.request(http.MethodPost, "/v1/reservations/"+dinner+"/assign", "")
    c.SetParamNames("ref")
    c.SetParamValues(dinner)
    require.NoError(t, f.staff.AssignReservation(c))
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    out := decode(t, rec)
    assert.Equal(t, float64(0), out["option_index"])
}

func TestCreateReservation_Validation(t *testing.T) {
    f := newFixture(t)
    tests := []struct {
        name string
        body string
    }{
        {"missing name", `{"party_size":2,"starts_at":"2026-03-14T18:00:00Z","duration_min":60}`},
        {"zero party", `{"name":"Ito","party_size":0,"starts_at":"2026-03-14T18:00:00Z","duration_min":60}`},
        {"bad starts_at", `{"name":"Ito","party_size":2,"starts_at":"tonight","duration_min":60}`},
        {"zero duration", `{"name":"Ito","party_size":2,"starts_at":"2026-03-14T18:00:00Z","duration_min":0}`},
        {"too many preference sets", `{"name":"Ito","party_size":2,"starts_at":"2026-03-14T18:00:00Z","duration_min":60,"preferences":[["A1"],["A2"],["B1"],["B2"]]}`},
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            c, rec := f.request(http.MethodPost, "/v1/reservations", tt.body)
            require.NoError(t, f.staff.CreateReservation(c))
            assert.Equal(t, http.StatusBadRequest, rec.Code)
        })
    }
}

func TestWaitlistFlow(t *testing.T) {
    f := newFixture(t)

    c, rec := f.request(http.MethodPost, "/v1/waitlist", `{"name":"Sato","party_size":3}`)
    require.NoError(t, f.staff.CheckInWaitlist(c))
    require.Equal(t, http.StatusCreated, rec.Code)
    ref := decode(t, rec)["entry"].(map[string]any)["ref"].(string)

    c, rec = f.request(http.MethodGet, "/v1/waitlist", "")
    require.NoError(t, f.staff.ListWaitlist(c))
    assert.Len(t, decode(t, rec)["items"].([]any), 1)

    // Automatic pick: A1+A2 cover a party of 3 in stable order.
    c, rec = f.request(http.MethodPost, "/v1/waitlist/"+ref+"/seat", `{}`)
    c.SetParamNames("ref")
    c.SetParamValues(ref)
    require.NoError(t, f.staff.SeatWaitlist(c))
    require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
    allocs := decode(t, rec)["allocations"].([]any)
    require.Len(t, allocs, 2)
    labels := []string{
        allocs[0].(map[string]any)["seat_label"].(string),
        allocs[1].(map[string]any)["seat_label"].(string),
    }
    assert.ElementsMatch(t, []string{"A1", "A2"}, labels)
    assert.Equal(t, "seated", allocs[0].(map[string]any)["status"])
    assert.Equal(t, model.WaitlistSeated,
        f.store.OccupantStatus(model.OccupantRef{Type: model.OccupantWaitlist, ID: 1}))

    // Seating the same party again must fail.
    c, rec = f.request(http.MethodPost, "/v1/waitlist/"+ref+"/seat", `{}`)
    c.SetParamNames("ref")
    c.SetParamValues(ref)
    require.NoError(t, f.staff.SeatWaitlist(c))
    assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRemoveWaitlist_NeverSeated(t *testing.T) {
    f := newFixture(t)
    c, rec := f.request(http.MethodPost, "/v1/waitlist", `{"name":"Sato","party_size":2}`)
    require.NoError(t, f.staff.CheckInWaitlist(c))
    ref := decode(t, rec)["entry"].(map[string]any)["ref"].(string)

    c, rec = f.request(http.MethodDelete, "/v1/waitlist/"+ref, "")
    c.SetParamNames("ref")
    c.SetParamValues(ref)
    require.NoError(t, f.staff.RemoveWaitlist(c))
    assert.Equal(t, http.StatusNoContent, rec.Code)
    assert.Equal(t, model.WaitlistRemoved, f.wl.items[0].Status)
}
