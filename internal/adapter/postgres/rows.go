package postgres

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/slymn80/timetables/internal/domain"
)

// The row structs below mirror their tables column-for-column so sqlx can
// scan directly into them; unavailable_slots and default_distribution_format
// are stored as jsonb/text and converted to domain types after the scan.

type schoolRow struct {
	ID   uuid.UUID `db:"id"`
	Name string    `db:"name"`
}

type teacherRow struct {
	ID                  uuid.UUID       `db:"id"`
	SchoolID            uuid.UUID       `db:"school_id"`
	DisplayName         string          `db:"display_name"`
	UnavailableSlots    json.RawMessage `db:"unavailable_slots"`
	DefaultRoomID       *uuid.UUID      `db:"default_room_id"`
	MaxHoursPerDay      int             `db:"max_hours_per_day"`
	MaxConsecutiveHours int             `db:"max_consecutive_hours"`
	SubjectAreas        pq.StringArray  `db:"subject_areas"`
	Active              bool            `db:"active"`
}

func (r teacherRow) toDomain() (domain.Teacher, error) {
	slots, err := decodeUnavailableSlots(r.UnavailableSlots)
	if err != nil {
		return domain.Teacher{}, err
	}
	return domain.Teacher{
		ID:                  r.ID,
		SchoolID:            r.SchoolID,
		DisplayName:         r.DisplayName,
		UnavailableSlots:    slots,
		DefaultRoomID:       r.DefaultRoomID,
		MaxHoursPerDay:      r.MaxHoursPerDay,
		MaxConsecutiveHours: r.MaxConsecutiveHours,
		SubjectAreas:        r.SubjectAreas,
		Active:              r.Active,
	}, nil
}

type classRow struct {
	ID               uuid.UUID       `db:"id"`
	SchoolID         uuid.UUID       `db:"school_id"`
	Name             string          `db:"name"`
	MaxHoursPerDay   int             `db:"max_hours_per_day"`
	UnavailableSlots json.RawMessage `db:"unavailable_slots"`
	DefaultRoomID    *uuid.UUID      `db:"default_room_id"`
	Active           bool            `db:"active"`
}

func (r classRow) toDomain() (domain.Class, error) {
	slots, err := decodeUnavailableSlots(r.UnavailableSlots)
	if err != nil {
		return domain.Class{}, err
	}
	return domain.Class{
		ID:               r.ID,
		SchoolID:         r.SchoolID,
		Name:             r.Name,
		MaxHoursPerDay:   r.MaxHoursPerDay,
		UnavailableSlots: slots,
		DefaultRoomID:    r.DefaultRoomID,
		Active:           r.Active,
	}, nil
}

type subjectRow struct {
	ID                         uuid.UUID `db:"id"`
	SchoolID                   uuid.UUID `db:"school_id"`
	Name                       string    `db:"name"`
	DifficultyLevel            int       `db:"difficulty_level"`
	DefaultDistributionFormat  string    `db:"default_distribution_format"`
	RequiresRoomType           *string   `db:"requires_room_type"`
	RequiresConsecutivePeriods bool      `db:"requires_consecutive_periods"`
	Active                     bool      `db:"active"`
}

func (r subjectRow) toDomain() domain.Subject {
	var roomType *domain.RoomType
	if r.RequiresRoomType != nil {
		rt := domain.RoomType(*r.RequiresRoomType)
		roomType = &rt
	}
	return domain.Subject{
		ID:                         r.ID,
		SchoolID:                   r.SchoolID,
		Name:                       r.Name,
		DifficultyLevel:            r.DifficultyLevel,
		DefaultDistributionFormat:  r.DefaultDistributionFormat,
		RequiresRoomType:           roomType,
		RequiresConsecutivePeriods: r.RequiresConsecutivePeriods,
		Active:                     r.Active,
	}
}

type roomRow struct {
	ID       uuid.UUID `db:"id"`
	SchoolID uuid.UUID `db:"school_id"`
	RoomType string    `db:"room_type"`
	Capacity int       `db:"capacity"`
	Active   bool      `db:"active"`
}

func (r roomRow) toDomain() domain.Room {
	return domain.Room{
		ID:       r.ID,
		SchoolID: r.SchoolID,
		RoomType: domain.RoomType(r.RoomType),
		Capacity: r.Capacity,
		Active:   r.Active,
	}
}

type timeSlotRow struct {
	ID           uuid.UUID `db:"id"`
	SchoolID     uuid.UUID `db:"school_id"`
	Day          string    `db:"day"`
	PeriodNumber int       `db:"period_number"`
	IsBreak      bool      `db:"is_break"`
}

func (r timeSlotRow) toDomain() domain.TimeSlot {
	return domain.TimeSlot{
		ID:           r.ID,
		SchoolID:     r.SchoolID,
		Day:          domain.Weekday(r.Day),
		PeriodNumber: r.PeriodNumber,
		IsBreak:      r.IsBreak,
	}
}

type lessonRow struct {
	ID                      uuid.UUID  `db:"id"`
	SchoolID                uuid.UUID  `db:"school_id"`
	ClassID                 uuid.UUID  `db:"class_id"`
	SubjectID               uuid.UUID  `db:"subject_id"`
	TeacherID               *uuid.UUID `db:"teacher_id"`
	HoursPerWeek            int        `db:"hours_per_week"`
	NumGroups               int        `db:"num_groups"`
	MaxHoursPerDay          *int       `db:"max_hours_per_day"`
	AllowConsecutive        bool       `db:"allow_consecutive"`
	UserDistributionPattern *string    `db:"user_distribution_pattern"`
	Active                  bool       `db:"active"`
}

func (r lessonRow) toDomain() domain.Lesson {
	return domain.Lesson{
		ID:               r.ID,
		SchoolID:         r.SchoolID,
		ClassID:          r.ClassID,
		SubjectID:        r.SubjectID,
		TeacherID:        r.TeacherID,
		HoursPerWeek:     r.HoursPerWeek,
		NumGroups:        r.NumGroups,
		MaxHoursPerDay:   r.MaxHoursPerDay,
		AllowConsecutive: r.AllowConsecutive,
		Metadata:         domain.LessonMetadata{UserDistributionPattern: r.UserDistributionPattern},
		Active:           r.Active,
	}
}

type lessonGroupRow struct {
	ID         uuid.UUID  `db:"id"`
	LessonID   uuid.UUID  `db:"lesson_id"`
	GroupIndex int        `db:"group_index"`
	TeacherID  *uuid.UUID `db:"teacher_id"`
}

func (r lessonGroupRow) toDomain() domain.LessonGroup {
	return domain.LessonGroup{
		ID:         r.ID,
		LessonID:   r.LessonID,
		GroupIndex: r.GroupIndex,
		TeacherID:  r.TeacherID,
	}
}

type timetableEntryRow struct {
	TimetableID   uuid.UUID  `db:"timetable_id"`
	TimeSlotID    uuid.UUID  `db:"time_slot_id"`
	LessonID      uuid.UUID  `db:"lesson_id"`
	LessonGroupID *uuid.UUID `db:"lesson_group_id"`
	RoomID        *uuid.UUID `db:"room_id"`
}

func (r timetableEntryRow) toDomain() domain.TimetableEntry {
	return domain.TimetableEntry{
		TimetableID:   r.TimetableID,
		TimeSlotID:    r.TimeSlotID,
		LessonID:      r.LessonID,
		LessonGroupID: r.LessonGroupID,
		RoomID:        r.RoomID,
	}
}

// decodeUnavailableSlots turns a jsonb column holding {"monday": [1,2], ...}
// into domain.UnavailableSlots. A nil/empty column means "never unavailable".
func decodeUnavailableSlots(raw json.RawMessage) (domain.UnavailableSlots, error) {
	if len(raw) == 0 {
		return domain.UnavailableSlots{}, nil
	}
	var m map[string][]int
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	out := make(domain.UnavailableSlots, len(m))
	for day, periods := range m {
		out[domain.Weekday(day)] = periods
	}
	return out, nil
}
