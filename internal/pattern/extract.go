package pattern

import (
	"github.com/google/uuid"

	"github.com/slymn80/timetables/internal/domain"
)

// Extractor reads a (fully or partially populated) set of timetable entries
// and derives each lesson's realised distribution pattern.
// It is run before every regeneration so manually-arranged timetables
// survive the next generation as a seed pattern.
type Extractor struct{}

// NewExtractor constructs an Extractor. It carries no state; a constructor
// exists to match the ambient stack's "New<Thing>" idiom.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractAll computes, for every lesson referenced by entries, the
// descending "+"-joined pattern string of its per-day occupied-period
// counts. Grouped lessons count once per slot: all groups share one slot,
// so a slot with k group entries is still a single hour.
func (e *Extractor) ExtractAll(entries []domain.TimetableEntry, slotsByID map[uuid.UUID]domain.TimeSlot) map[uuid.UUID]string {
	// lessonID -> day -> count of distinct periods occupied
	perLessonDay := map[uuid.UUID]map[domain.Weekday]int{}
	// lessonID -> set of (day,period) already counted, to avoid
	// double-counting group entries sharing one slot
	seen := map[uuid.UUID]map[uuid.UUID]bool{}

	for _, entry := range entries {
		slot, ok := slotsByID[entry.TimeSlotID]
		if !ok || slot.IsBreak {
			continue
		}

		if seen[entry.LessonID] == nil {
			seen[entry.LessonID] = map[uuid.UUID]bool{}
		}
		if seen[entry.LessonID][entry.TimeSlotID] {
			continue
		}
		seen[entry.LessonID][entry.TimeSlotID] = true

		if perLessonDay[entry.LessonID] == nil {
			perLessonDay[entry.LessonID] = map[domain.Weekday]int{}
		}
		perLessonDay[entry.LessonID][slot.Day]++
	}

	result := make(map[uuid.UUID]string, len(perLessonDay))
	for lessonID, byDay := range perLessonDay {
		counts := make([]int, 0, len(byDay))
		for _, c := range byDay {
			counts = append(counts, c)
		}
		result[lessonID] = Format(counts)
	}
	return result
}

// ApplyTo writes extracted patterns into each lesson's metadata, returning
// the lessons whose metadata changed. Lessons with no entries in the source
// timetable are left untouched — there is nothing to seed them with.
func (e *Extractor) ApplyTo(lessons []domain.Lesson, extracted map[uuid.UUID]string) []domain.Lesson {
	updated := make([]domain.Lesson, len(lessons))
	copy(updated, lessons)

	for i := range updated {
		pat, ok := extracted[updated[i].ID]
		if !ok {
			continue
		}
		p := pat
		updated[i].Metadata.UserDistributionPattern = &p
	}
	return updated
}
