package postgres

import "errors"

// Errors returned by the adapter itself, as opposed to errors propagated
// from the driver (those are wrapped with fmt.Errorf and %w).
var (
	ErrSchoolNotFound    = errors.New("school not found")
	ErrTimetableNotFound = errors.New("timetable not found")

	// ErrGenerationNotStartable is returned by TimetableStore.MarkGenerating
	// when the row exists but isn't in draft/failed status.
	ErrGenerationNotStartable = errors.New("timetable is not in draft or failed status")
)
