// Package report builds Excel workbooks for back-office exports.
package report

import (
    "bytes"
    "fmt"
    "time"

    "github.com/xuri/excelize/v2"

    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

// occupancyHeader is the column layout of the occupancy export, one
// row per allocation of the day.
var occupancyHeader = []string{
    "Seat",
    "Section",
    "Capacity",
    "Occupant Type",
    "Occupant Ref",
    "Status",
    "Starts At",
    "Ends At",
    "Released At",
}

const timeLayout = "2006-01-02 15:04"

// OccupancyRow is one allocation flattened for the export, with the
// seat and section already joined and the occupant's public_ref in
// place of the numeric ID.
type OccupancyRow struct {
    SeatLabel    string
    SectionName  string
    Capacity     uint32
    OccupantType string
    OccupantRef  string
    Status       string
    StartsAt     time.Time
    EndsAt       time.Time
    ReleasedAt   *time.Time
}

// BuildOccupancyRows joins allocations with the layout's seats and
// sections.  Rows follow the stable seat enumeration order and, per
// seat, ascending start time; allocations pointing at seats missing
// from the layout are skipped rather than failing the export.
func BuildOccupancyRows(seats []model.Seat, sections []model.Section, allocs []model.SeatAllocation, refByOccupant map[model.OccupantRef]string) []OccupancyRow {
    sectionName := make(map[uint64]string, len(sections))
    for _, s := range sections {
        sectionName[s.ID] = s.Name
    }
    bySeat := make(map[uint64][]model.SeatAllocation)
    for _, a := range allocs {
        bySeat[a.SeatID] = append(bySeat[a.SeatID], a)
    }

    rows := make([]OccupancyRow, 0, len(allocs))
    for _, seat := range seats {
        seatAllocs := bySeat[seat.ID]
        for i := 0; i < len(seatAllocs); i++ {
            // insertion sort keeps the common zero/one-alloc case cheap
            for j := i; j > 0 && seatAllocs[j].StartsAt.Before(seatAllocs[j-1].StartsAt); j-- {
                seatAllocs[j], seatAllocs[j-1] = seatAllocs[j-1], seatAllocs[j]
            }
        }
        for _, a := range seatAllocs {
            rows = append(rows, OccupancyRow{
                SeatLabel:    seat.Label,
                SectionName:  sectionName[seat.SectionID],
                Capacity:     seat.Capacity,
                OccupantType: a.OccupantType,
                OccupantRef:  refByOccupant[a.Occupant()],
                Status:       a.Status,
                StartsAt:     a.StartsAt,
                EndsAt:       a.EndsAt,
                ReleasedAt:   a.ReleasedAt,
            })
        }
    }
    return rows
}

// OccupancyWorkbook renders the rows into an xlsx workbook with one
// sheet named after the report day.
func OccupancyWorkbook(day time.Time, rows []OccupancyRow) ([]byte, error) {
    f := excelize.NewFile()
    // WriteTo needs the file open, so no deferred Close on success.

    sheet := "Occupancy " + day.UTC().Format("2006-01-02")
    index, err := f.NewSheet(sheet)
    if err != nil {
        f.Close()
        return nil, fmt.Errorf("failed to create sheet: %w", err)
    }
    f.DeleteSheet("Sheet1")
    f.SetActiveSheet(index)

    headerStyle, err := f.NewStyle(&excelize.Style{
        Font: &excelize.Font{Bold: true},
        Alignment: &excelize.Alignment{
            Horizontal: "center",
            Vertical:   "center",
        },
    })
    if err != nil {
        f.Close()
        return nil, fmt.Errorf("failed to create header style: %w", err)
    }

    for col, header := range occupancyHeader {
        cell, err := excelize.CoordinatesToCellName(col+1, 1)
        if err != nil {
            f.Close()
            return nil, fmt.Errorf("failed to convert coordinates: %w", err)
        }
        if err := f.SetCellValue(sheet, cell, header); err != nil {
            f.Close()
            return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
        }
        if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
            f.Close()
            return nil, fmt.Errorf("failed to set header style: %w", err)
        }
    }

    for rowIdx, row := range rows {
        released := ""
        if row.ReleasedAt != nil {
            released = row.ReleasedAt.UTC().Format(timeLayout)
        }
        values := []interface{}{
            row.SeatLabel,
            row.SectionName,
            row.Capacity,
            row.OccupantType,
            row.OccupantRef,
            row.Status,
            row.StartsAt.UTC().Format(timeLayout),
            row.EndsAt.UTC().Format(timeLayout),
            released,
        }
        for col, value := range values {
            cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
            if err != nil {
                f.Close()
                return nil, fmt.Errorf("failed to convert coordinates: %w", err)
            }
            if err := f.SetCellValue(sheet, cell, value); err != nil {
                f.Close()
                return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
            }
        }
    }

    var buf bytes.Buffer
    if _, err := f.WriteTo(&buf); err != nil {
        f.Close()
        return nil, fmt.Errorf("failed to write workbook: %w", err)
    }
    if err := f.Close(); err != nil {
        return nil, fmt.Errorf("failed to close workbook: %w", err)
    }
    return buf.Bytes(), nil
}
