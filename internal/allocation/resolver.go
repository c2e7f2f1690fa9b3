package allocation

// NoOption is returned by ResolveOption when no preference set can be
// satisfied against the current occupancy.
const NoOption = -1

// ResolveOption evaluates ranked seat-preference sets against an
// occupancy index and returns the index of the first set whose labels
// are all unoccupied, or NoOption.  Index 0 is the party's first
// choice.  Empty sets are skipped rather than trivially satisfied.
//
// The function is pure and deterministic: the same inputs always pick
// the same option, so staff UI and automated assignment agree.
func ResolveOption(preferenceSets [][]string, occupied map[string]struct{}) int {
    for i, set := range preferenceSets {
        if len(set) == 0 {
            continue
        }
        available := true
        for _, label := range set {
            if _, taken := occupied[label]; taken {
                available = false
                break
            }
        }
        if available {
            return i
        }
    }
    return NoOption
}
