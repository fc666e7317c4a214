// Package heuristic implements the deterministic fallback scheduler: ordered
// placement, pattern-aware block search, slot scoring and relaxation over
// the shared snapshot.
package heuristic

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/slymn80/timetables/internal/constraint"
	"github.com/slymn80/timetables/internal/domain"
	"github.com/slymn80/timetables/internal/snapshot"
)

// Params are the timetable-level knobs the heuristic strategy reads.
type Params struct {
	MaxConsecutiveSameSubject int
	MaxDailyLessons           int
	RoomPolicy                domain.RoomPolicy
}

// DefaultParams: at most two consecutive hours of one subject, eight
// lessons a day, hybrid room resolution.
func DefaultParams() Params {
	return Params{
		MaxConsecutiveSameSubject: 2,
		MaxDailyLessons:           8,
		RoomPolicy:                domain.RoomPolicyHybrid,
	}
}

// Result is everything the driver needs to persist and report on.
type Result struct {
	Entries  []domain.TimetableEntry
	Shortage int
	Logs     []string
}

// Scheduler runs the heuristic strategy once per Run call; it owns no state
// across calls.
type Scheduler struct{}

// NewScheduler constructs a Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Run places every active lesson in snap against a fresh Tracker and
// returns the entries it could commit, plus the total hour shortfall.
// Deterministic given the snapshot's lesson order (stable sort, stable
// iteration over WeekdayOrder).
func (s *Scheduler) Run(snap *snapshot.Snapshot, timetableID uuid.UUID, params Params) *Result {
	tracker := constraint.NewTracker()
	slotsByDay := snap.NonBreakSlotsByDay()

	lessons := orderedLessons(snap)
	result := &Result{}

	for _, lesson := range lessons {
		class := snap.Classes[lesson.ClassID]
		subject := snap.Subjects[lesson.SubjectID]
		assignments := snap.Assignments[lesson.ID]
		teacherIDs := make([]uuid.UUID, 0, len(assignments))
		for _, a := range assignments {
			if a.TeacherID != nil {
				teacherIDs = append(teacherIDs, *a.TeacherID)
			}
		}

		blocks, err := resolvePreferredBlocks(lesson, subject, params.MaxConsecutiveSameSubject)
		if err != nil {
			result.Logs = append(result.Logs, fmt.Sprintf("lesson %s: unparseable pattern, falling back to auto-chop: %v", lesson.ID, err))
			blocks = autoChop(lesson.HoursPerWeek, params.MaxConsecutiveSameSubject)
		}

		usedDays := map[domain.Weekday]bool{}
		placed := 0

		for _, blockSize := range blocks {
			cand, ok := findBestWindow(snap, tracker, slotsByDay, usedDays, lesson, class, teacherIDs, blockSize, params.MaxConsecutiveSameSubject, params.MaxDailyLessons, subject.DifficultyLevel)
			if !ok {
				continue
			}
			entries := commitWindow(snap, tracker, timetableID, lesson, class, subject, assignments, params.RoomPolicy, cand.slots)
			result.Entries = append(result.Entries, entries...)
			usedDays[cand.day] = true
			placed += blockSize
		}

		remaining := lesson.HoursPerWeek - placed
		if remaining > 0 {
			placedByRelaxation := s.relax(snap, tracker, slotsByDay, usedDays, lesson, class, subject, assignments, teacherIDs, params, remaining, placed == 0, timetableID, result)
			placed += placedByRelaxation
			remaining = lesson.HoursPerWeek - placed
		}

		// A pattern that needs more distinct days than the week offers
		// leaves hours unplaced even after the day-respecting relaxation
		// pass above. Drop day-distinctness entirely for whatever remains
		// rather than reporting a shortage the class/teacher availability
		// could still absorb via a repeat day.
		if remaining > 0 && placed > 0 {
			placedByRelaxation := s.relax(snap, tracker, slotsByDay, usedDays, lesson, class, subject, assignments, teacherIDs, params, remaining, true, timetableID, result)
			placed += placedByRelaxation
			remaining = lesson.HoursPerWeek - placed
		}

		if remaining > 0 {
			result.Shortage += remaining
			result.Logs = append(result.Logs, fmt.Sprintf("lesson %s: placed %d/%d hours, shortage %d", lesson.ID, placed, lesson.HoursPerWeek, remaining))
		} else {
			result.Logs = append(result.Logs, fmt.Sprintf("lesson %s: placed %d/%d hours", lesson.ID, placed, lesson.HoursPerWeek))
		}
	}

	return result
}

// relax runs the individual-slot (block size 1) fallback pass. When
// dropDayDistinctness is true (the pattern-driven phase placed nothing),
// usedDays is ignored entirely rather than merely left empty.
func (s *Scheduler) relax(
	snap *snapshot.Snapshot,
	tracker *constraint.Tracker,
	slotsByDay map[domain.Weekday][]domain.TimeSlot,
	usedDays map[domain.Weekday]bool,
	lesson domain.Lesson,
	class domain.Class,
	subject domain.Subject,
	assignments []snapshot.LessonAssignment,
	teacherIDs []uuid.UUID,
	params Params,
	remaining int,
	dropDayDistinctness bool,
	timetableID uuid.UUID,
	result *Result,
) int {
	exclude := usedDays
	if dropDayDistinctness {
		exclude = map[domain.Weekday]bool{}
	}

	placed := 0
	for placed < remaining {
		cand, ok := findBestWindow(snap, tracker, slotsByDay, exclude, lesson, class, teacherIDs, 1, params.MaxConsecutiveSameSubject, params.MaxDailyLessons, subject.DifficultyLevel)
		if !ok {
			break
		}
		entries := commitWindow(snap, tracker, timetableID, lesson, class, subject, assignments, params.RoomPolicy, cand.slots)
		result.Entries = append(result.Entries, entries...)
		if !dropDayDistinctness {
			exclude[cand.day] = true
		}
		placed++
	}
	return placed
}

// orderedLessons sorts snap.Lessons by placement difficulty, descending:
// grouped lessons first, then single-hour lessons, then by difficulty and
// hour count. The sort is stable so ties preserve snapshot input order and
// the whole run stays deterministic.
func orderedLessons(snap *snapshot.Snapshot) []domain.Lesson {
	lessons := make([]domain.Lesson, len(snap.Lessons))
	copy(lessons, snap.Lessons)

	priority := func(l domain.Lesson) int {
		p := 0
		if l.NumGroups > 1 {
			p += 100000
		}
		if l.HoursPerWeek == 1 {
			p += 10000
		}
		difficulty := snap.Subjects[l.SubjectID].DifficultyLevel
		p += difficulty*100 + l.HoursPerWeek
		return p
	}

	sort.SliceStable(lessons, func(i, j int) bool {
		return priority(lessons[i]) > priority(lessons[j])
	})
	return lessons
}
