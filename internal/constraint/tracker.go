// Package constraint implements the mutable occupancy and soft-state
// oracle the heuristic scheduler consults and commits to as it places
// lessons: busy maps per class/teacher/room, per-lesson daily counters,
// and per-class difficulty accumulation.
package constraint

import (
	"github.com/google/uuid"

	"github.com/slymn80/timetables/internal/domain"
)

type slotClass struct {
	Slot  uuid.UUID
	Class uuid.UUID
}

type slotTeacher struct {
	Slot    uuid.UUID
	Teacher uuid.UUID
}

type slotRoom struct {
	Slot uuid.UUID
	Room uuid.UUID
}

type lessonDay struct {
	Lesson uuid.UUID
	Day    domain.Weekday
}

type entityDay struct {
	Entity uuid.UUID
	Day    domain.Weekday
}

type classDayPeriod struct {
	Class  uuid.UUID
	Day    domain.Weekday
	Period int
}

// Tracker is the live occupancy and soft-state oracle for one generation
// run. It never rolls back: every Mark call is a permanent commit, so a
// failed placement attempt must not have called the mark methods in the
// first place.
type Tracker struct {
	classBusy   map[slotClass]bool
	teacherBusy map[slotTeacher]bool
	roomBusy    map[slotRoom]bool

	lessonDailyCount   map[lessonDay]int
	lessonPeriodsByDay map[lessonDay][]int
	classDailyCount    map[entityDay]int
	teacherDailyCount  map[entityDay]int
	classDailyDiff     map[entityDay]float64
	classPeriodDiff    map[classDayPeriod]int
}

// NewTracker returns an empty Tracker ready for one generation run.
func NewTracker() *Tracker {
	return &Tracker{
		classBusy:          map[slotClass]bool{},
		teacherBusy:        map[slotTeacher]bool{},
		roomBusy:           map[slotRoom]bool{},
		lessonDailyCount:   map[lessonDay]int{},
		lessonPeriodsByDay: map[lessonDay][]int{},
		classDailyCount:    map[entityDay]int{},
		teacherDailyCount:  map[entityDay]int{},
		classDailyDiff:     map[entityDay]float64{},
		classPeriodDiff:    map[classDayPeriod]int{},
	}
}

// IsClassAvailable reports whether classID is free at slotID, given its
// canonicalised unavailable slots.
func (t *Tracker) IsClassAvailable(slotID, classID uuid.UUID, unavailable domain.UnavailableSlots, day domain.Weekday, period int) bool {
	if t.classBusy[slotClass{slotID, classID}] {
		return false
	}
	return !unavailable.Contains(day, period)
}

// IsTeacherAvailable reports whether teacherID is free at slotID. A nil
// teacher (pointer dereferenced by the caller to uuid.Nil) is always
// available — a teacherless lesson constrains only its class.
func (t *Tracker) IsTeacherAvailable(slotID, teacherID uuid.UUID, unavailable domain.UnavailableSlots, day domain.Weekday, period int) bool {
	if teacherID == uuid.Nil {
		return true
	}
	if t.teacherBusy[slotTeacher{slotID, teacherID}] {
		return false
	}
	return !unavailable.Contains(day, period)
}

// IsRoomAvailable reports whether roomID is free at slotID. A nil room is
// always available.
func (t *Tracker) IsRoomAvailable(slotID, roomID uuid.UUID) bool {
	if roomID == uuid.Nil {
		return true
	}
	return !t.roomBusy[slotRoom{slotID, roomID}]
}

// MarkClassBusy commits classID as occupied at slotID. O(1), no rollback.
func (t *Tracker) MarkClassBusy(slotID, classID uuid.UUID) {
	t.classBusy[slotClass{slotID, classID}] = true
}

// MarkTeacherBusy commits teacherID as occupied at slotID. A nil teacher
// is a no-op.
func (t *Tracker) MarkTeacherBusy(slotID, teacherID uuid.UUID) {
	if teacherID == uuid.Nil {
		return
	}
	t.teacherBusy[slotTeacher{slotID, teacherID}] = true
}

// MarkRoomBusy commits roomID as occupied at slotID. A nil room is a no-op.
func (t *Tracker) MarkRoomBusy(slotID, roomID uuid.UUID) {
	if roomID == uuid.Nil {
		return
	}
	t.roomBusy[slotRoom{slotID, roomID}] = true
}

// AddLessonAssignment records a committed placement for soft-constraint
// bookkeeping: per-lesson daily counts and periods, per-class and
// per-teacher daily counts, and class difficulty load.
func (t *Tracker) AddLessonAssignment(lessonID uuid.UUID, day domain.Weekday, period int, classID, teacherID uuid.UUID, difficultyLevel int) {
	ld := lessonDay{lessonID, day}
	t.lessonDailyCount[ld]++
	t.lessonPeriodsByDay[ld] = append(t.lessonPeriodsByDay[ld], period)

	cd := entityDay{classID, day}
	t.classDailyCount[cd]++
	if teacherID != uuid.Nil {
		t.teacherDailyCount[entityDay{teacherID, day}]++
	}

	t.classDailyDiff[cd] += float64(difficultyLevel)
	t.classPeriodDiff[classDayPeriod{classID, day, period}] = difficultyLevel
}

// WouldBeConsecutive reports whether placing lessonID at (day, period)
// would sit adjacent to a period it already occupies that day.
func (t *Tracker) WouldBeConsecutive(lessonID uuid.UUID, day domain.Weekday, period int) bool {
	for _, p := range t.lessonPeriodsByDay[lessonDay{lessonID, day}] {
		if abs(p-period) == 1 {
			return true
		}
	}
	return false
}

// GetLessonDayCount returns how many periods lessonID already occupies on
// day.
func (t *Tracker) GetLessonDayCount(lessonID uuid.UUID, day domain.Weekday) int {
	return t.lessonDailyCount[lessonDay{lessonID, day}]
}

// GetClassDayCount returns how many lessons classID already has on day.
func (t *Tracker) GetClassDayCount(classID uuid.UUID, day domain.Weekday) int {
	return t.classDailyCount[entityDay{classID, day}]
}

// GetTeacherDayCount returns how many lessons teacherID already has on
// day.
func (t *Tracker) GetTeacherDayCount(teacherID uuid.UUID, day domain.Weekday) int {
	return t.teacherDailyCount[entityDay{teacherID, day}]
}

// WouldExceedConsecutiveLimit simulates adding (day, period) to lessonID's
// existing periods that day and reports whether the longest consecutive
// run would then exceed maxConsecutive.
func (t *Tracker) WouldExceedConsecutiveLimit(lessonID uuid.UUID, day domain.Weekday, period, maxConsecutive int) bool {
	existing := t.lessonPeriodsByDay[lessonDay{lessonID, day}]
	all := make([]int, len(existing)+1)
	copy(all, existing)
	all[len(existing)] = period
	sortInts(all)

	longest, current := 1, 1
	for i := 1; i < len(all); i++ {
		if all[i] == all[i-1]+1 {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 1
		}
	}
	return longest > maxConsecutive
}

// WouldExceedMaxHoursPerDay reports whether placing one more hour of
// lessonID on day would exceed maxHoursPerDay. A nil limit (represented by
// ok=false) means unlimited.
func (t *Tracker) WouldExceedMaxHoursPerDay(lessonID uuid.UUID, day domain.Weekday, maxHoursPerDay *int) bool {
	if maxHoursPerDay == nil {
		return false
	}
	return t.lessonDailyCount[lessonDay{lessonID, day}] >= *maxHoursPerDay
}

// WouldWindowExceedConsecutiveLimit is WouldExceedConsecutiveLimit
// generalised to a whole candidate block: it simulates adding every period
// in the window at once rather than one at a time, which matters once a
// lesson already occupies periods on the same day (the relaxation cascade's
// drop-day-distinctness pass).
func (t *Tracker) WouldWindowExceedConsecutiveLimit(lessonID uuid.UUID, day domain.Weekday, periods []int, maxConsecutive int) bool {
	existing := t.lessonPeriodsByDay[lessonDay{lessonID, day}]
	all := make([]int, 0, len(existing)+len(periods))
	all = append(all, existing...)
	all = append(all, periods...)
	sortInts(all)

	longest, current := 1, 1
	for i := 1; i < len(all); i++ {
		if all[i] == all[i-1]+1 {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 1
		}
	}
	return len(all) > 0 && longest > maxConsecutive
}

// WouldWindowExceedMaxHoursPerDay is WouldExceedMaxHoursPerDay generalised
// to windowSize additional hours at once.
func (t *Tracker) WouldWindowExceedMaxHoursPerDay(lessonID uuid.UUID, day domain.Weekday, windowSize int, maxHoursPerDay *int) bool {
	if maxHoursPerDay == nil {
		return false
	}
	return t.lessonDailyCount[lessonDay{lessonID, day}]+windowSize > *maxHoursPerDay
}

// GetClassDailyDifficulty returns the accumulated difficulty score for
// classID on day.
func (t *Tracker) GetClassDailyDifficulty(classID uuid.UUID, day domain.Weekday) float64 {
	return t.classDailyDiff[entityDay{classID, day}]
}

// GetPeriodDifficulty returns the difficulty level already recorded for
// classID at (day, period), and whether anything was recorded there.
func (t *Tracker) GetPeriodDifficulty(classID uuid.UUID, day domain.Weekday, period int) (int, bool) {
	d, ok := t.classPeriodDiff[classDayPeriod{classID, day, period}]
	return d, ok
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// sortInts is a tiny insertion sort; candidate period lists are always
// short (a school day's period count), so this avoids pulling in
// sort.Ints for a handful of elements in the hottest path of placement.
func sortInts(a []int) {
	for i := 1; i < len(a); i++ {
		for j := i; j > 0 && a[j-1] > a[j]; j-- {
			a[j-1], a[j] = a[j], a[j-1]
		}
	}
}
