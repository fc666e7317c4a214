package constraint

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/slymn80/timetables/internal/domain"
)

func TestIsClassAvailable_BusyAfterMark(t *testing.T) {
	tr := NewTracker()
	slot, class := uuid.New(), uuid.New()

	assert.True(t, tr.IsClassAvailable(slot, class, nil, domain.Monday, 1))
	tr.MarkClassBusy(slot, class)
	assert.False(t, tr.IsClassAvailable(slot, class, nil, domain.Monday, 1))
}

func TestIsClassAvailable_RespectsUnavailableSlots(t *testing.T) {
	tr := NewTracker()
	slot, class := uuid.New(), uuid.New()
	unavailable := domain.UnavailableSlots{domain.Monday: {3}}

	assert.False(t, tr.IsClassAvailable(slot, class, unavailable, domain.Monday, 3))
	assert.True(t, tr.IsClassAvailable(slot, class, unavailable, domain.Monday, 4))
}

func TestIsTeacherAvailable_NilTeacherAlwaysAvailable(t *testing.T) {
	tr := NewTracker()
	slot := uuid.New()
	assert.True(t, tr.IsTeacherAvailable(slot, uuid.Nil, nil, domain.Monday, 1))
}

func TestIsTeacherAvailable_BusyAfterMark(t *testing.T) {
	tr := NewTracker()
	slot, teacher := uuid.New(), uuid.New()

	tr.MarkTeacherBusy(slot, teacher)
	assert.False(t, tr.IsTeacherAvailable(slot, teacher, nil, domain.Monday, 1))
}

func TestMarkTeacherBusy_NilTeacherIsNoop(t *testing.T) {
	tr := NewTracker()
	slot := uuid.New()

	tr.MarkTeacherBusy(slot, uuid.Nil)
	assert.True(t, tr.IsTeacherAvailable(slot, uuid.Nil, nil, domain.Monday, 1))
}

func TestIsRoomAvailable_NilRoomAlwaysAvailable(t *testing.T) {
	tr := NewTracker()
	assert.True(t, tr.IsRoomAvailable(uuid.New(), uuid.Nil))
}

func TestIsRoomAvailable_BusyAfterMark(t *testing.T) {
	tr := NewTracker()
	slot, room := uuid.New(), uuid.New()

	tr.MarkRoomBusy(slot, room)
	assert.False(t, tr.IsRoomAvailable(slot, room))
}

func TestWouldBeConsecutive(t *testing.T) {
	tr := NewTracker()
	lesson, class, teacher := uuid.New(), uuid.New(), uuid.New()

	tr.AddLessonAssignment(lesson, domain.Monday, 2, class, teacher, 3)

	assert.True(t, tr.WouldBeConsecutive(lesson, domain.Monday, 1))
	assert.True(t, tr.WouldBeConsecutive(lesson, domain.Monday, 3))
	assert.False(t, tr.WouldBeConsecutive(lesson, domain.Monday, 5))
	assert.False(t, tr.WouldBeConsecutive(lesson, domain.Tuesday, 1))
}

func TestAddLessonAssignment_AccumulatesDailyCounts(t *testing.T) {
	tr := NewTracker()
	lesson, class, teacher := uuid.New(), uuid.New(), uuid.New()

	tr.AddLessonAssignment(lesson, domain.Monday, 1, class, teacher, 5)
	tr.AddLessonAssignment(lesson, domain.Monday, 2, class, teacher, 5)

	assert.Equal(t, 2, tr.GetLessonDayCount(lesson, domain.Monday))
	assert.Equal(t, 2, tr.GetClassDayCount(class, domain.Monday))
	assert.Equal(t, 2, tr.GetTeacherDayCount(teacher, domain.Monday))
	assert.Equal(t, float64(10), tr.GetClassDailyDifficulty(class, domain.Monday))
}

func TestAddLessonAssignment_NilTeacherSkipsTeacherCount(t *testing.T) {
	tr := NewTracker()
	lesson, class := uuid.New(), uuid.New()

	tr.AddLessonAssignment(lesson, domain.Monday, 1, class, uuid.Nil, 1)

	assert.Equal(t, 0, tr.GetTeacherDayCount(uuid.Nil, domain.Monday))
}

func TestWouldExceedConsecutiveLimit(t *testing.T) {
	tr := NewTracker()
	lesson, class, teacher := uuid.New(), uuid.New(), uuid.New()

	tr.AddLessonAssignment(lesson, domain.Monday, 1, class, teacher, 1)
	tr.AddLessonAssignment(lesson, domain.Monday, 2, class, teacher, 1)

	assert.True(t, tr.WouldExceedConsecutiveLimit(lesson, domain.Monday, 3, 2))
	assert.False(t, tr.WouldExceedConsecutiveLimit(lesson, domain.Monday, 5, 2))
}

func TestWouldExceedMaxHoursPerDay(t *testing.T) {
	tr := NewTracker()
	lesson, class, teacher := uuid.New(), uuid.New(), uuid.New()
	limit := 1

	assert.False(t, tr.WouldExceedMaxHoursPerDay(lesson, domain.Monday, &limit))
	tr.AddLessonAssignment(lesson, domain.Monday, 1, class, teacher, 1)
	assert.True(t, tr.WouldExceedMaxHoursPerDay(lesson, domain.Monday, &limit))
}

func TestWouldExceedMaxHoursPerDay_NilLimitMeansUnlimited(t *testing.T) {
	tr := NewTracker()
	lesson := uuid.New()
	assert.False(t, tr.WouldExceedMaxHoursPerDay(lesson, domain.Monday, nil))
}

func TestWouldWindowExceedConsecutiveLimit(t *testing.T) {
	tr := NewTracker()
	lesson, class, teacher := uuid.New(), uuid.New(), uuid.New()

	tr.AddLessonAssignment(lesson, domain.Monday, 1, class, teacher, 1)

	assert.True(t, tr.WouldWindowExceedConsecutiveLimit(lesson, domain.Monday, []int{2, 3}, 2))
	assert.False(t, tr.WouldWindowExceedConsecutiveLimit(lesson, domain.Monday, []int{5, 6}, 2))
}

func TestWouldWindowExceedMaxHoursPerDay(t *testing.T) {
	tr := NewTracker()
	lesson, class, teacher := uuid.New(), uuid.New(), uuid.New()
	limit := 3

	tr.AddLessonAssignment(lesson, domain.Monday, 1, class, teacher, 1)

	assert.True(t, tr.WouldWindowExceedMaxHoursPerDay(lesson, domain.Monday, 3, &limit))
	assert.False(t, tr.WouldWindowExceedMaxHoursPerDay(lesson, domain.Monday, 2, &limit))
	assert.False(t, tr.WouldWindowExceedMaxHoursPerDay(lesson, domain.Monday, 3, nil))
}

func TestGetPeriodDifficulty_ReportsPresence(t *testing.T) {
	tr := NewTracker()
	lesson, class, teacher := uuid.New(), uuid.New(), uuid.New()

	_, ok := tr.GetPeriodDifficulty(class, domain.Monday, 1)
	assert.False(t, ok)

	tr.AddLessonAssignment(lesson, domain.Monday, 1, class, teacher, 7)
	d, ok := tr.GetPeriodDifficulty(class, domain.Monday, 1)
	assert.True(t, ok)
	assert.Equal(t, 7, d)
}
