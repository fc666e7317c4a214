package heuristic

import (
	"github.com/google/uuid"

	"github.com/slymn80/timetables/internal/constraint"
	"github.com/slymn80/timetables/internal/domain"
	"github.com/slymn80/timetables/internal/snapshot"
)

// findBestWindow searches every day not in excludeDays for the
// highest-scoring run of blockSize consecutive non-break slots that
// satisfies every hard constraint (availability, daily cap, consecutive cap).
// Returns ok=false if no day has a usable window.
func findBestWindow(
	snap *snapshot.Snapshot,
	tracker *constraint.Tracker,
	slotsByDay map[domain.Weekday][]domain.TimeSlot,
	excludeDays map[domain.Weekday]bool,
	lesson domain.Lesson,
	class domain.Class,
	teacherIDs []uuid.UUID,
	blockSize, maxConsecutiveSameSubject, maxDailyLessons, difficulty int,
) (candidate, bool) {
	var best candidate
	var bestScore float64
	found := false

	for _, day := range domain.WeekdayOrder {
		if excludeDays[day] {
			continue
		}
		slots := slotsByDay[day]
		for start := 0; start+blockSize <= len(slots); start++ {
			window := slots[start : start+blockSize]
			if !windowIsConsecutive(window) || !windowIsValid(snap, tracker, lesson, class, teacherIDs, window, maxConsecutiveSameSubject) {
				continue
			}

			cand := candidate{day: day, slots: append([]domain.TimeSlot(nil), window...)}
			score := scoreCandidate(tracker, lesson.ID, class.ID, teacherIDs, cand, blockSize, maxDailyLessons, difficulty)
			if !found || score > bestScore {
				best, bestScore, found = cand, score, true
			}
		}
	}

	return best, found
}

func windowIsConsecutive(window []domain.TimeSlot) bool {
	if len(window) == 0 {
		return false
	}
	if window[0].IsBreak {
		return false
	}
	for i := 1; i < len(window); i++ {
		if window[i].IsBreak {
			return false
		}
		if window[i].PeriodNumber != window[i-1].PeriodNumber+1 {
			return false
		}
	}
	return true
}

func windowIsValid(
	snap *snapshot.Snapshot,
	tracker *constraint.Tracker,
	lesson domain.Lesson,
	class domain.Class,
	teacherIDs []uuid.UUID,
	window []domain.TimeSlot,
	maxConsecutiveSameSubject int,
) bool {
	day := window[0].Day
	periods := make([]int, len(window))
	for i, slot := range window {
		periods[i] = slot.PeriodNumber
		if class.MaxHoursPerDay > 0 && slot.PeriodNumber > class.MaxHoursPerDay {
			return false
		}
		if !tracker.IsClassAvailable(slot.ID, class.ID, class.UnavailableSlots, day, slot.PeriodNumber) {
			return false
		}
		for _, teacherID := range teacherIDs {
			if teacherID == uuid.Nil {
				continue
			}
			teacher, ok := snap.Teachers[teacherID]
			if !ok {
				return false
			}
			if !tracker.IsTeacherAvailable(slot.ID, teacherID, teacher.UnavailableSlots, day, slot.PeriodNumber) {
				return false
			}
		}
	}

	if tracker.WouldWindowExceedMaxHoursPerDay(lesson.ID, day, len(window), lesson.MaxHoursPerDay) {
		return false
	}
	if tracker.WouldWindowExceedConsecutiveLimit(lesson.ID, day, periods, maxConsecutiveSameSubject) {
		return false
	}
	return true
}

// commitWindow marks every slot in the window busy for the class and each
// group's teacher, resolves a room per group, and records the emitted
// entries and soft-constraint bookkeeping.
func commitWindow(
	snap *snapshot.Snapshot,
	tracker *constraint.Tracker,
	timetableID uuid.UUID,
	lesson domain.Lesson,
	class domain.Class,
	subject domain.Subject,
	assignments []snapshot.LessonAssignment,
	roomPolicy domain.RoomPolicy,
	window []domain.TimeSlot,
) []domain.TimetableEntry {
	var entries []domain.TimetableEntry
	day := window[0].Day

	for _, slot := range window {
		tracker.MarkClassBusy(slot.ID, class.ID)

		for _, a := range assignments {
			teacherID := uuid.Nil
			if a.TeacherID != nil {
				teacherID = *a.TeacherID
			}
			tracker.MarkTeacherBusy(slot.ID, teacherID)

			room := resolveRoom(snap, tracker, roomPolicy, lesson, class, subject, teacherID, slot.ID)
			if room != nil {
				tracker.MarkRoomBusy(slot.ID, *room)
			}

			entries = append(entries, domain.TimetableEntry{
				TimetableID:   timetableID,
				TimeSlotID:    slot.ID,
				LessonID:      lesson.ID,
				LessonGroupID: a.GroupID,
				RoomID:        room,
			})
		}

		tracker.AddLessonAssignment(lesson.ID, day, slot.PeriodNumber, class.ID, teacherIDOf(assignments), subject.DifficultyLevel)
	}

	return entries
}

// teacherIDOf returns the first non-nil teacher among a lesson's group
// assignments, for the single-value daily-count bookkeeping AddLessonAssignment
// takes. Per-group teacher load is exercised independently through
// MarkTeacherBusy/IsTeacherAvailable; this only feeds the "class daily
// difficulty" style aggregate counters, which are scoped to the class and
// don't need one entry per teacher.
func teacherIDOf(assignments []snapshot.LessonAssignment) uuid.UUID {
	for _, a := range assignments {
		if a.TeacherID != nil {
			return *a.TeacherID
		}
	}
	return uuid.Nil
}
