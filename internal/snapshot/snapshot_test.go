package snapshot

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slymn80/timetables/internal/domain"
)

func baseRaw() RawSchool {
	schoolID := uuid.New()
	classID := uuid.New()
	subjectID := uuid.New()
	teacherID := uuid.New()

	return RawSchool{
		School:   domain.School{ID: schoolID, Name: "Test School"},
		Teachers: []domain.Teacher{{ID: teacherID, SchoolID: schoolID, DisplayName: "T1", Active: true}},
		Classes:  []domain.Class{{ID: classID, SchoolID: schoolID, Name: "5A", Active: true}},
		Subjects: []domain.Subject{{ID: subjectID, SchoolID: schoolID, Name: "Math", Active: true}},
		Rooms:    nil,
		TimeSlots: []domain.TimeSlot{
			{ID: uuid.New(), SchoolID: schoolID, Day: domain.Monday, PeriodNumber: 2},
			{ID: uuid.New(), SchoolID: schoolID, Day: domain.Monday, PeriodNumber: 1},
			{ID: uuid.New(), SchoolID: schoolID, Day: domain.Tuesday, PeriodNumber: 1, IsBreak: true},
		},
		Lessons: []domain.Lesson{
			{ID: uuid.New(), SchoolID: schoolID, ClassID: classID, SubjectID: subjectID, TeacherID: &teacherID, HoursPerWeek: 3, NumGroups: 1, Active: true},
		},
	}
}

func TestBuild_SortsSlotsByPeriodWithinDay(t *testing.T) {
	raw := baseRaw()
	snap, err := Build(raw)
	require.NoError(t, err)

	mondaySlots := snap.SlotsByDay[domain.Monday]
	require.Len(t, mondaySlots, 2)
	assert.Equal(t, 1, mondaySlots[0].PeriodNumber)
	assert.Equal(t, 2, mondaySlots[1].PeriodNumber)
	assert.Equal(t, 2, snap.MaxPeriodByDay[domain.Monday])
}

func TestBuild_DropsInactiveEntities(t *testing.T) {
	raw := baseRaw()
	inactiveTeacher := domain.Teacher{ID: uuid.New(), SchoolID: raw.School.ID, Active: false}
	raw.Teachers = append(raw.Teachers, inactiveTeacher)

	snap, err := Build(raw)
	require.NoError(t, err)

	_, ok := snap.Teachers[inactiveTeacher.ID]
	assert.False(t, ok)
}

func TestBuild_DropsInactiveLessons(t *testing.T) {
	raw := baseRaw()
	inactiveLesson := domain.Lesson{
		ID: uuid.New(), SchoolID: raw.School.ID, ClassID: raw.Classes[0].ID,
		SubjectID: raw.Subjects[0].ID, HoursPerWeek: 1, NumGroups: 1, Active: false,
	}
	raw.Lessons = append(raw.Lessons, inactiveLesson)

	snap, err := Build(raw)
	require.NoError(t, err)
	assert.Len(t, snap.Lessons, 1)
}

func TestBuild_ErrorsOnEmptySlotSet(t *testing.T) {
	raw := baseRaw()
	raw.TimeSlots = nil

	_, err := Build(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptySlotSet)
}

func TestBuild_ErrorsOnEmptyLessonSet(t *testing.T) {
	raw := baseRaw()
	raw.Lessons = nil

	_, err := Build(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyLessonSet)
}

func TestBuild_ErrorsOnUnknownClassReference(t *testing.T) {
	raw := baseRaw()
	raw.Lessons[0].ClassID = uuid.New()

	_, err := Build(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
}

func TestBuild_ErrorsOnUnknownSubjectReference(t *testing.T) {
	raw := baseRaw()
	raw.Lessons[0].SubjectID = uuid.New()

	_, err := Build(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
}

func TestBuild_ErrorsOnUnknownTeacherReference(t *testing.T) {
	raw := baseRaw()
	stray := uuid.New()
	raw.Lessons[0].TeacherID = &stray

	_, err := Build(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
}

func TestBuild_ErrorsOnHoursPerWeekBelowOne(t *testing.T) {
	raw := baseRaw()
	raw.Lessons[0].HoursPerWeek = 0

	_, err := Build(raw)
	require.Error(t, err)
}

func TestBuild_ErrorsOnGroupCountMismatch(t *testing.T) {
	raw := baseRaw()
	raw.Lessons[0].NumGroups = 2
	raw.LessonGroups = map[uuid.UUID][]domain.LessonGroup{
		raw.Lessons[0].ID: {{ID: uuid.New(), LessonID: raw.Lessons[0].ID, GroupIndex: 0}},
	}

	_, err := Build(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGroupCountMismatch)
}

func TestBuild_GroupedLessonAssignmentsSortedByGroupIndex(t *testing.T) {
	raw := baseRaw()
	raw.Lessons[0].NumGroups = 2
	raw.Lessons[0].TeacherID = nil
	teacher1, teacher2 := uuid.New(), uuid.New()
	raw.Teachers = append(raw.Teachers,
		domain.Teacher{ID: teacher1, SchoolID: raw.School.ID, Active: true},
		domain.Teacher{ID: teacher2, SchoolID: raw.School.ID, Active: true},
	)
	raw.LessonGroups = map[uuid.UUID][]domain.LessonGroup{
		raw.Lessons[0].ID: {
			{ID: uuid.New(), LessonID: raw.Lessons[0].ID, GroupIndex: 1, TeacherID: &teacher2},
			{ID: uuid.New(), LessonID: raw.Lessons[0].ID, GroupIndex: 0, TeacherID: &teacher1},
		},
	}

	snap, err := Build(raw)
	require.NoError(t, err)

	assignments := snap.Assignments[raw.Lessons[0].ID]
	require.Len(t, assignments, 2)
	assert.Equal(t, 0, assignments[0].GroupIndex)
	assert.Equal(t, teacher1, *assignments[0].TeacherID)
	assert.Equal(t, 1, assignments[1].GroupIndex)
	assert.Equal(t, teacher2, *assignments[1].TeacherID)
}

func TestBuild_UngroupedLessonGetsSingleAssignmentFromLessonTeacher(t *testing.T) {
	raw := baseRaw()
	snap, err := Build(raw)
	require.NoError(t, err)

	assignments := snap.Assignments[raw.Lessons[0].ID]
	require.Len(t, assignments, 1)
	assert.Equal(t, 0, assignments[0].GroupIndex)
	assert.Nil(t, assignments[0].GroupID)
	assert.Equal(t, *raw.Lessons[0].TeacherID, *assignments[0].TeacherID)
}

func TestBuild_ErrorsOnUnknownGroupTeacherReference(t *testing.T) {
	raw := baseRaw()
	raw.Lessons[0].NumGroups = 2
	stray := uuid.New()
	raw.LessonGroups = map[uuid.UUID][]domain.LessonGroup{
		raw.Lessons[0].ID: {
			{ID: uuid.New(), LessonID: raw.Lessons[0].ID, GroupIndex: 0, TeacherID: &stray},
			{ID: uuid.New(), LessonID: raw.Lessons[0].ID, GroupIndex: 1},
		},
	}

	_, err := Build(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidReference)
}

func TestNonBreakSlotsByDay_ExcludesBreaks(t *testing.T) {
	raw := baseRaw()
	snap, err := Build(raw)
	require.NoError(t, err)

	nonBreak := snap.NonBreakSlotsByDay()
	assert.Len(t, nonBreak[domain.Monday], 2)
	assert.Empty(t, nonBreak[domain.Tuesday])
}

func TestLessonByID_FindsActiveLesson(t *testing.T) {
	raw := baseRaw()
	snap, err := Build(raw)
	require.NoError(t, err)

	lesson, ok := snap.LessonByID(raw.Lessons[0].ID)
	require.True(t, ok)
	assert.Equal(t, raw.Lessons[0].ID, lesson.ID)

	_, ok = snap.LessonByID(uuid.New())
	assert.False(t, ok)
}
