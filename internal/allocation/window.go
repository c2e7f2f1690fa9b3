package allocation

import "time"

// Window is a half-open time interval [Start, End).  All allocation
// windows are expressed in UTC.
type Window struct {
    Start time.Time
    End   time.Time
}

// Valid reports whether the window is well formed; zero-duration and
// inverted windows are rejected.
func (w Window) Valid() bool {
    return w.End.After(w.Start)
}

// Overlaps applies the half-open interval test: [s1,e1) and [s2,e2)
// conflict iff s1 < e2 and s2 < e1.  Back-to-back windows sharing a
// boundary instant do not overlap.
func (w Window) Overlaps(o Window) bool {
    return w.Start.Before(o.End) && o.Start.Before(w.End)
}

// DayWindow returns the UTC day [00:00, 24:00) containing t.
func DayWindow(t time.Time) Window {
    day := t.UTC().Truncate(24 * time.Hour)
    return Window{Start: day, End: day.Add(24 * time.Hour)}
}
