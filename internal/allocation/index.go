package allocation

import "github.com/tavolo/restaurant-seat-allocation/internal/model"

// LabelIndex maps between seat labels and seat IDs for one layout.
// Allocation logic always resolves by label; the numeric IDs exist
// only for storage.  Build the index from the active layout's seats
// in their stable order.
type LabelIndex struct {
    idByLabel map[string]uint64
    labelByID map[uint64]string
}

// NewLabelIndex builds a LabelIndex from seats.  Labels are expected
// to be unique within a layout; when duplicates slip through the
// first seat wins, matching the stable enumeration order.
func NewLabelIndex(seats []model.Seat) *LabelIndex {
    ix := &LabelIndex{
        idByLabel: make(map[string]uint64, len(seats)),
        labelByID: make(map[uint64]string, len(seats)),
    }
    for i := range seats {
        s := &seats[i]
        if _, dup := ix.idByLabel[s.Label]; dup {
            continue
        }
        ix.idByLabel[s.Label] = s.ID
        ix.labelByID[s.ID] = s.Label
    }
    return ix
}

// SeatID resolves a label to its seat ID.
func (ix *LabelIndex) SeatID(label string) (uint64, bool) {
    id, ok := ix.idByLabel[label]
    return id, ok
}

// Label resolves a seat ID back to its label.
func (ix *LabelIndex) Label(seatID uint64) (string, bool) {
    label, ok := ix.labelByID[seatID]
    return label, ok
}

// LabelBySeatID exposes the ID-to-label map for occupancy queries.
// Callers must not mutate the returned map.
func (ix *LabelIndex) LabelBySeatID() map[uint64]string {
    return ix.labelByID
}

// Len returns the number of indexed seats.
func (ix *LabelIndex) Len() int { return len(ix.idByLabel) }
