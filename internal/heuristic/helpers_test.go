package heuristic

import (
	"github.com/google/uuid"

	"github.com/slymn80/timetables/internal/domain"
)

// buildWeek returns time slots for `days` weekdays (Monday onward) with
// `periods` non-break periods each, numbered 1..periods.
func buildWeek(schoolID uuid.UUID, days, periods int) []domain.TimeSlot {
	var slots []domain.TimeSlot
	for d := 0; d < days; d++ {
		day := domain.WeekdayOrder[d]
		for p := 1; p <= periods; p++ {
			slots = append(slots, domain.TimeSlot{ID: uuid.New(), SchoolID: schoolID, Day: day, PeriodNumber: p})
		}
	}
	return slots
}

// entriesForLesson filters entries down to one lesson, for per-lesson
// assertions in a multi-lesson fixture.
func entriesForLesson(entries []domain.TimetableEntry, lessonID uuid.UUID) []domain.TimetableEntry {
	var out []domain.TimetableEntry
	for _, e := range entries {
		if e.LessonID == lessonID {
			out = append(out, e)
		}
	}
	return out
}

// distinctSlots returns the set of distinct TimeSlotIDs among entries.
func distinctSlots(entries []domain.TimetableEntry) map[uuid.UUID]bool {
	out := map[uuid.UUID]bool{}
	for _, e := range entries {
		out[e.TimeSlotID] = true
	}
	return out
}
