// Package repository implements MySQL persistence for layouts,
// reservations, waitlist entries and seat allocations.  Multi-row
// writes run inside explicit transactions; the allocation repository
// additionally implements the engine's transactional store contract.
// All timestamps are stored and compared in UTC.
package repository

import "errors"

// ErrDuplicateLabel is returned when a layout create would produce
// two seats with the same label inside one layout.  Allocation logic
// resolves seats by label, so labels must stay unique per layout.
// Handlers should translate this into an HTTP 422 response.
var ErrDuplicateLabel = errors.New("duplicate seat label in layout")
