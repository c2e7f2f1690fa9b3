package report

import (
    "bytes"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "github.com/xuri/excelize/v2"

    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

func at(hour int) time.Time {
    return time.Date(2026, 3, 14, hour, 0, 0, 0, time.UTC)
}

func testRows() []OccupancyRow {
    seats := []model.Seat{
        {ID: 10, SectionID: 1, Label: "A1", Capacity: 2},
        {ID: 11, SectionID: 1, Label: "A2", Capacity: 2},
        {ID: 12, SectionID: 2, Label: "B1", Capacity: 1},
    }
    sections := []model.Section{
        {ID: 1, Name: "Table A"},
        {ID: 2, Name: "Counter B"},
    }
    released := at(19)
    allocs := []model.SeatAllocation{
        {ID: 3, SeatID: 12, OccupantType: model.OccupantWaitlist, OccupantID: 5, StartsAt: at(20), EndsAt: at(21), Status: model.AllocationSeated},
        {ID: 1, SeatID: 10, OccupantType: model.OccupantReservation, OccupantID: 1, StartsAt: at(18), EndsAt: at(19), Status: model.AllocationFinished, ReleasedAt: &released},
        {ID: 2, SeatID: 10, OccupantType: model.OccupantReservation, OccupantID: 2, StartsAt: at(12), EndsAt: at(13), Status: model.AllocationReserved},
    }
    refs := map[model.OccupantRef]string{
        {Type: model.OccupantReservation, ID: 1}: "res-1",
        {Type: model.OccupantReservation, ID: 2}: "res-2",
        {Type: model.OccupantWaitlist, ID: 5}:    "wl-5",
    }
    return BuildOccupancyRows(seats, sections, allocs, refs)
}

func TestBuildOccupancyRows(t *testing.T) {
    rows := testRows()
    require.Len(t, rows, 3)

    // Seat order first, then start time within the seat.
    assert.Equal(t, "A1", rows[0].SeatLabel)
    assert.Equal(t, "res-2", rows[0].OccupantRef)
    assert.Equal(t, "A1", rows[1].SeatLabel)
    assert.Equal(t, "res-1", rows[1].OccupantRef)
    assert.NotNil(t, rows[1].ReleasedAt)
    assert.Equal(t, "B1", rows[2].SeatLabel)
    assert.Equal(t, "Counter B", rows[2].SectionName)
    assert.Equal(t, "wl-5", rows[2].OccupantRef)
}

func TestBuildOccupancyRows_SkipsUnknownSeats(t *testing.T) {
    seats := []model.Seat{{ID: 10, SectionID: 1, Label: "A1"}}
    allocs := []model.SeatAllocation{
        {ID: 1, SeatID: 99, StartsAt: at(18), EndsAt: at(19), Status: model.AllocationReserved},
    }
    rows := BuildOccupancyRows(seats, nil, allocs, nil)
    assert.Empty(t, rows, "allocations on seats outside the layout are dropped")
}

func TestOccupancyWorkbook(t *testing.T) {
    day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
    data, err := OccupancyWorkbook(day, testRows())
    require.NoError(t, err)
    require.NotEmpty(t, data)

    f, err := excelize.OpenReader(bytes.NewReader(data))
    require.NoError(t, err)
    defer f.Close()

    sheet := "Occupancy 2026-03-14"
    header, err := f.GetCellValue(sheet, "A1")
    require.NoError(t, err)
    assert.Equal(t, "Seat", header)

    seat, err := f.GetCellValue(sheet, "A2")
    require.NoError(t, err)
    assert.Equal(t, "A1", seat)

    status, err := f.GetCellValue(sheet, "F3")
    require.NoError(t, err)
    assert.Equal(t, model.AllocationFinished, status)

    rowsCount, err := f.GetRows(sheet)
    require.NoError(t, err)
    assert.Len(t, rowsCount, 4, "header plus three data rows")
}

func TestOccupancyWorkbook_Empty(t *testing.T) {
    day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
    data, err := OccupancyWorkbook(day, nil)
    require.NoError(t, err)

    f, err := excelize.OpenReader(bytes.NewReader(data))
    require.NoError(t, err)
    defer f.Close()
    rows, err := f.GetRows("Occupancy 2026-03-14")
    require.NoError(t, err)
    assert.Len(t, rows, 1, "header only")
}
