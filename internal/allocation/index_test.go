package allocation

import (
    "testing"

    "github.com/stretchr/testify/assert"

    "github.com/tavolo/restaurant-seat-allocation/internal/model"
)

func TestLabelIndex(t *testing.T) {
    ix := NewLabelIndex([]model.Seat{
        {ID: 10, Label: "A1"},
        {ID: 11, Label: "A2"},
    })

    id, ok := ix.SeatID("A2")
    assert.True(t, ok)
    assert.Equal(t, uint64(11), id)

    label, ok := ix.Label(10)
    assert.True(t, ok)
    assert.Equal(t, "A1", label)

    _, ok = ix.SeatID("Z9")
    assert.False(t, ok)
    assert.Equal(t, 2, ix.Len())
}

func TestLabelIndex_DuplicateLabelFirstWins(t *testing.T) {
    ix := NewLabelIndex([]model.Seat{
        {ID: 10, Label: "A1"},
        {ID: 99, Label: "A1"},
    })

    id, ok := ix.SeatID("A1")
    assert.True(t, ok)
    assert.Equal(t, uint64(10), id)
    assert.Equal(t, 1, ix.Len())
}
