package postgres

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slymn80/timetables/internal/domain"
)

func TestDecodeUnavailableSlots_EmptyColumnMeansNeverUnavailable(t *testing.T) {
	slots, err := decodeUnavailableSlots(nil)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestDecodeUnavailableSlots_DecodesDayKeyedJSON(t *testing.T) {
	raw := json.RawMessage(`{"monday": [1, 2], "wednesday": [7]}`)
	slots, err := decodeUnavailableSlots(raw)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, slots[domain.Monday])
	assert.Equal(t, []int{7}, slots[domain.Wednesday])
}

func TestDecodeUnavailableSlots_RejectsMalformedJSON(t *testing.T) {
	_, err := decodeUnavailableSlots(json.RawMessage(`not json`))
	assert.Error(t, err)
}

func TestTeacherRow_ToDomain_DecodesUnavailableSlots(t *testing.T) {
	row := teacherRow{
		ID:               uuid.New(),
		SchoolID:         uuid.New(),
		DisplayName:      "Jane Doe",
		UnavailableSlots: json.RawMessage(`{"friday": [6, 7]}`),
		MaxHoursPerDay:   6,
		SubjectAreas:     []string{"math"},
		Active:           true,
	}

	teacher, err := row.toDomain()
	require.NoError(t, err)
	assert.Equal(t, row.ID, teacher.ID)
	assert.Equal(t, []int{6, 7}, teacher.UnavailableSlots[domain.Friday])
	assert.True(t, teacher.Active)
}

func TestSubjectRow_ToDomain_NilRequiresRoomType(t *testing.T) {
	row := subjectRow{ID: uuid.New(), Name: "Math", DifficultyLevel: 5, Active: true}
	subject := row.toDomain()
	assert.Nil(t, subject.RequiresRoomType)
}

func TestSubjectRow_ToDomain_SetRequiresRoomType(t *testing.T) {
	rt := "lab"
	row := subjectRow{ID: uuid.New(), Name: "Chemistry", RequiresRoomType: &rt, Active: true}
	subject := row.toDomain()
	require.NotNil(t, subject.RequiresRoomType)
	assert.Equal(t, domain.RoomType("lab"), *subject.RequiresRoomType)
}

func TestLessonRow_ToDomain_CarriesUserDistributionPattern(t *testing.T) {
	pattern := "2+2+1"
	row := lessonRow{
		ID:                      uuid.New(),
		HoursPerWeek:            5,
		NumGroups:               1,
		UserDistributionPattern: &pattern,
		Active:                  true,
	}
	lesson := row.toDomain()
	require.NotNil(t, lesson.Metadata.UserDistributionPattern)
	assert.Equal(t, pattern, *lesson.Metadata.UserDistributionPattern)
}
