// Package snapshot builds the immutable, indexed view of one school's
// schedulable state that every strategy reads from.
package snapshot

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/slymn80/timetables/internal/domain"
)

// RawSchool is the shape a SnapshotSource hands back: flat lists exactly as
// read from storage, with lesson groups nested under their owning lesson id.
// Active filtering and referential validation happen in Build, not here.
type RawSchool struct {
	School    domain.School
	Teachers  []domain.Teacher
	Classes   []domain.Class
	Subjects  []domain.Subject
	Rooms     []domain.Room
	TimeSlots []domain.TimeSlot
	Lessons   []domain.Lesson
	// LessonGroups maps lesson ID to that lesson's groups, in group_index
	// order.
	LessonGroups map[uuid.UUID][]domain.LessonGroup
}

// LessonAssignment is one (group_index, group_id, teacher_id) tuple for a
// lesson. Ungrouped lessons have exactly one assignment, with GroupID nil
// and TeacherID taken from the lesson itself.
type LessonAssignment struct {
	GroupIndex int
	GroupID    *uuid.UUID
	TeacherID  *uuid.UUID
}

// Snapshot is the self-consistent, read-only picture the scheduler borrows
// for the duration of one generation.
type Snapshot struct {
	School domain.School

	Teachers  map[uuid.UUID]domain.Teacher
	Classes   map[uuid.UUID]domain.Class
	Subjects  map[uuid.UUID]domain.Subject
	Rooms     map[uuid.UUID]domain.Room
	TimeSlots map[uuid.UUID]domain.TimeSlot

	// Lessons preserves input order (stable sorts downstream depend on a
	// deterministic starting order).
	Lessons []domain.Lesson

	// Assignments maps lesson ID to its per-group teacher assignments.
	Assignments map[uuid.UUID][]LessonAssignment

	// SlotsByDay is sorted by period number within each day, break slots
	// included (so period-number semantics over a day with breaks survive).
	SlotsByDay map[domain.Weekday][]domain.TimeSlot

	// MaxPeriodByDay is the highest period_number seen on that day.
	MaxPeriodByDay map[domain.Weekday]int
}

// ValidationError wraps one of the fatal Build errors with the offending
// entity id, for a log line a human can act on.
type ValidationError struct {
	Err      error
	EntityID uuid.UUID
	Detail   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Err, e.Detail, e.EntityID)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Build validates referential integrity, drops inactive rows, normalises
// unavailable_slots, and precomputes every index the strategies need.
// Errors returned here are fatal: generation must not start.
func Build(raw RawSchool) (*Snapshot, error) {
	s := &Snapshot{
		School:         raw.School,
		Teachers:       map[uuid.UUID]domain.Teacher{},
		Classes:        map[uuid.UUID]domain.Class{},
		Subjects:       map[uuid.UUID]domain.Subject{},
		Rooms:          map[uuid.UUID]domain.Room{},
		TimeSlots:      map[uuid.UUID]domain.TimeSlot{},
		Assignments:    map[uuid.UUID][]LessonAssignment{},
		SlotsByDay:     map[domain.Weekday][]domain.TimeSlot{},
		MaxPeriodByDay: map[domain.Weekday]int{},
	}

	for _, t := range raw.Teachers {
		if !t.Active {
			continue
		}
		t.UnavailableSlots = normalizeIfNeeded(t.UnavailableSlots)
		s.Teachers[t.ID] = t
	}
	for _, c := range raw.Classes {
		if !c.Active {
			continue
		}
		c.UnavailableSlots = normalizeIfNeeded(c.UnavailableSlots)
		s.Classes[c.ID] = c
	}
	for _, sub := range raw.Subjects {
		if !sub.Active {
			continue
		}
		s.Subjects[sub.ID] = sub
	}
	for _, r := range raw.Rooms {
		if !r.Active {
			continue
		}
		s.Rooms[r.ID] = r
	}
	for _, slot := range raw.TimeSlots {
		s.TimeSlots[slot.ID] = slot
	}

	if len(s.TimeSlots) == 0 {
		return nil, &ValidationError{Err: domain.ErrEmptySlotSet, Detail: "school has zero time slots", EntityID: raw.School.ID}
	}

	for _, slot := range raw.TimeSlots {
		s.SlotsByDay[slot.Day] = append(s.SlotsByDay[slot.Day], slot)
		if slot.PeriodNumber > s.MaxPeriodByDay[slot.Day] {
			s.MaxPeriodByDay[slot.Day] = slot.PeriodNumber
		}
	}
	for day := range s.SlotsByDay {
		slots := s.SlotsByDay[day]
		sort.Slice(slots, func(i, j int) bool { return slots[i].PeriodNumber < slots[j].PeriodNumber })
		s.SlotsByDay[day] = slots
	}

	for _, l := range raw.Lessons {
		if !l.Active {
			continue
		}

		if _, ok := s.Classes[l.ClassID]; !ok {
			return nil, &ValidationError{Err: domain.ErrInvalidReference, Detail: "lesson references unknown class", EntityID: l.ID}
		}
		if _, ok := s.Subjects[l.SubjectID]; !ok {
			return nil, &ValidationError{Err: domain.ErrInvalidReference, Detail: "lesson references unknown subject", EntityID: l.ID}
		}
		if l.TeacherID != nil {
			if _, ok := s.Teachers[*l.TeacherID]; !ok {
				return nil, &ValidationError{Err: domain.ErrInvalidReference, Detail: "lesson references unknown teacher", EntityID: l.ID}
			}
		}
		if l.HoursPerWeek < 1 {
			return nil, &ValidationError{Err: domain.ErrInvalidReference, Detail: "lesson has hours_per_week < 1", EntityID: l.ID}
		}

		groups := raw.LessonGroups[l.ID]
		if l.NumGroups > 1 {
			if len(groups) != l.NumGroups {
				return nil, &ValidationError{Err: domain.ErrGroupCountMismatch, Detail: fmt.Sprintf("declares %d groups, has %d", l.NumGroups, len(groups)), EntityID: l.ID}
			}
			sort.Slice(groups, func(i, j int) bool { return groups[i].GroupIndex < groups[j].GroupIndex })
			assignments := make([]LessonAssignment, len(groups))
			for i, g := range groups {
				if g.TeacherID != nil {
					if _, ok := s.Teachers[*g.TeacherID]; !ok {
						return nil, &ValidationError{Err: domain.ErrInvalidReference, Detail: "lesson group references unknown teacher", EntityID: g.ID}
					}
				}
				gid := g.ID
				assignments[i] = LessonAssignment{GroupIndex: g.GroupIndex, GroupID: &gid, TeacherID: g.TeacherID}
			}
			s.Assignments[l.ID] = assignments
		} else {
			s.Assignments[l.ID] = []LessonAssignment{{GroupIndex: 0, GroupID: nil, TeacherID: l.TeacherID}}
		}

		s.Lessons = append(s.Lessons, l)
	}

	if len(s.Lessons) == 0 {
		return nil, &ValidationError{Err: domain.ErrEmptyLessonSet, Detail: "school has zero active lessons", EntityID: raw.School.ID}
	}

	return s, nil
}

// normalizeIfNeeded re-keys an UnavailableSlots map whose keys might still
// be day-ordinal strings (reusing domain.Weekday as the map key type means
// a caller that built one directly from an ordinal-keyed source would have
// produced garbage keys; routing everything through NormalizeUnavailableSlots
// with string keys up front avoids that, this just guards against a caller
// that already passed a canonical map through untouched).
func normalizeIfNeeded(u domain.UnavailableSlots) domain.UnavailableSlots {
	if u == nil {
		return domain.UnavailableSlots{}
	}
	raw := make(map[string][]int, len(u))
	for day, periods := range u {
		raw[string(day)] = periods
	}
	return NormalizeUnavailableSlots(raw)
}

// NonBreakSlots returns every assignable slot across all days, grouped by
// day, in day-then-period order.
func (s *Snapshot) NonBreakSlotsByDay() map[domain.Weekday][]domain.TimeSlot {
	out := make(map[domain.Weekday][]domain.TimeSlot, len(s.SlotsByDay))
	for day, slots := range s.SlotsByDay {
		for _, slot := range slots {
			if !slot.IsBreak {
				out[day] = append(out[day], slot)
			}
		}
	}
	return out
}

// LessonByID looks up a lesson by id among the snapshot's active lessons.
func (s *Snapshot) LessonByID(id uuid.UUID) (domain.Lesson, bool) {
	for _, l := range s.Lessons {
		if l.ID == id {
			return l, true
		}
	}
	return domain.Lesson{}, false
}
