package allocation

import "github.com/tavolo/restaurant-seat-allocation/internal/model"

// Operation names used in InvalidTransitionError messages and event
// payloads.
const (
    OpReserve = "reserve"
    OpArrive  = "arrive"
    OpSeat    = "seat"
    OpFinish  = "finish"
    OpNoShow  = "no_show"
    OpCancel  = "cancel"
)

// transition describes one state-machine operation: the status it
// moves active allocations into, the statuses it may move them from,
// and whether the target is terminal (terminal transitions release
// the seat).
type transition struct {
    target   string
    from     map[string]bool
    terminal bool
}

// transitions encodes the allocation lifecycle
// reserved -> arrived -> seated -> {finished | no_show}, with
// canceled reachable from any non-terminal status and finish accepted
// from any active status so a reserved party can be closed out
// directly.
var transitions = map[string]transition{
    OpArrive: {
        target: model.AllocationArrived,
        from:   map[string]bool{model.AllocationReserved: true},
    },
    OpSeat: {
        // Direct reserved -> seated covers walk-ins seated without a
        // separate arrival step.
        target: model.AllocationSeated,
        from: map[string]bool{
            model.AllocationReserved: true,
            model.AllocationArrived:  true,
        },
    },
    OpFinish: {
        target: model.AllocationFinished,
        from: map[string]bool{
            model.AllocationReserved: true,
            model.AllocationArrived:  true,
            model.AllocationSeated:   true,
        },
        terminal: true,
    },
    OpNoShow: {
        target: model.AllocationNoShow,
        from: map[string]bool{
            model.AllocationReserved: true,
            model.AllocationArrived:  true,
        },
        terminal: true,
    },
    OpCancel: {
        target: model.AllocationCanceled,
        from: map[string]bool{
            model.AllocationReserved: true,
            model.AllocationArrived:  true,
            model.AllocationSeated:   true,
        },
        terminal: true,
    },
}

// CanTransition reports whether op may be applied to an allocation in
// the given status.
func CanTransition(op, from string) bool {
    t, ok := transitions[op]
    if !ok {
        return false
    }
    return t.from[from]
}

// TerminalOp reports whether op moves allocations into a terminal
// status.  Terminal operations are idempotent: applying one to an
// occupant whose allocations are already released is a no-op.
func TerminalOp(op string) bool {
    t, ok := transitions[op]
    return ok && t.terminal
}

// occupantStatus maps an allocation operation to the status recorded
// on the occupant itself, per occupant type.  Reservations and
// waitlist entries carry different status vocabularies; an empty
// result means the operation leaves the occupant status untouched.
func occupantStatus(occType, op string) string {
    switch occType {
    case model.OccupantReservation:
        switch op {
        case OpReserve:
            return model.ReservationReserved
        case OpSeat:
            return model.ReservationSeated
        case OpFinish:
            return model.ReservationFinished
        case OpNoShow:
            return model.ReservationNoShow
        case OpCancel:
            return model.ReservationCanceled
        }
    case model.OccupantWaitlist:
        switch op {
        case OpSeat:
            return model.WaitlistSeated
        case OpNoShow:
            return model.WaitlistNoShow
        case OpCancel:
            return model.WaitlistRemoved
        }
    }
    return ""
}
