package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/slymn80/timetables/internal/domain"
	"github.com/slymn80/timetables/internal/snapshot"
)

// SnapshotSource implements engine.SnapshotSource against Postgres: named
// SELECT columns, $n placeholders, sqlx Select/Get. Tables carry active
// booleans rather than a soft-delete column.
type SnapshotSource struct {
	db *sqlx.DB
}

// NewSnapshotSource wires a SnapshotSource over a shared sqlx connection.
func NewSnapshotSource(db *sqlx.DB) *SnapshotSource {
	return &SnapshotSource{db: db}
}

// LoadSchool reads every entity belonging to schoolID into a RawSchool.
// Active filtering happens downstream in snapshot.Build, so every row
// (active or not) is read here.
func (s *SnapshotSource) LoadSchool(ctx context.Context, schoolID uuid.UUID) (*snapshot.RawSchool, error) {
	var school schoolRow
	if err := s.db.GetContext(ctx, &school, `SELECT id, name FROM schools WHERE id = $1`, schoolID); err != nil {
		return nil, fmt.Errorf("load school: %w", ErrSchoolNotFound)
	}

	var teachers []teacherRow
	if err := s.db.SelectContext(ctx, &teachers, `
		SELECT id, school_id, display_name, unavailable_slots, default_room_id,
		       max_hours_per_day, max_consecutive_hours, subject_areas, active
		FROM teachers
		WHERE school_id = $1
		ORDER BY display_name ASC`, schoolID); err != nil {
		return nil, fmt.Errorf("load teachers: %w", err)
	}

	var classes []classRow
	if err := s.db.SelectContext(ctx, &classes, `
		SELECT id, school_id, name, max_hours_per_day, unavailable_slots, default_room_id, active
		FROM classes
		WHERE school_id = $1
		ORDER BY name ASC`, schoolID); err != nil {
		return nil, fmt.Errorf("load classes: %w", err)
	}

	var subjects []subjectRow
	if err := s.db.SelectContext(ctx, &subjects, `
		SELECT id, school_id, name, difficulty_level, default_distribution_format,
		       requires_room_type, requires_consecutive_periods, active
		FROM subjects
		WHERE school_id = $1
		ORDER BY name ASC`, schoolID); err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}

	var rooms []roomRow
	if err := s.db.SelectContext(ctx, &rooms, `
		SELECT id, school_id, room_type, capacity, active
		FROM rooms
		WHERE school_id = $1
		ORDER BY room_type ASC`, schoolID); err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	var slots []timeSlotRow
	if err := s.db.SelectContext(ctx, &slots, `
		SELECT id, school_id, day, period_number, is_break
		FROM time_slots
		WHERE school_id = $1
		ORDER BY day ASC, period_number ASC`, schoolID); err != nil {
		return nil, fmt.Errorf("load time slots: %w", err)
	}

	var lessons []lessonRow
	if err := s.db.SelectContext(ctx, &lessons, `
		SELECT id, school_id, class_id, subject_id, teacher_id, hours_per_week,
		       num_groups, max_hours_per_day, allow_consecutive,
		       user_distribution_pattern, active
		FROM lessons
		WHERE school_id = $1
		ORDER BY id ASC`, schoolID); err != nil {
		return nil, fmt.Errorf("load lessons: %w", err)
	}

	var groups []lessonGroupRow
	if len(lessons) > 0 {
		lessonIDs := make([]uuid.UUID, len(lessons))
		for i, l := range lessons {
			lessonIDs[i] = l.ID
		}
		query, args, err := sqlx.In(`
			SELECT id, lesson_id, group_index, teacher_id
			FROM lesson_groups
			WHERE lesson_id IN (?)
			ORDER BY lesson_id ASC, group_index ASC`, lessonIDs)
		if err != nil {
			return nil, fmt.Errorf("build lesson groups query: %w", err)
		}
		query = s.db.Rebind(query)
		if err := s.db.SelectContext(ctx, &groups, query, args...); err != nil {
			return nil, fmt.Errorf("load lesson groups: %w", err)
		}
	}

	raw := &snapshot.RawSchool{
		School:       domain.School{ID: school.ID, Name: school.Name},
		Rooms:        make([]domain.Room, len(rooms)),
		TimeSlots:    make([]domain.TimeSlot, len(slots)),
		Subjects:     make([]domain.Subject, len(subjects)),
		Lessons:      make([]domain.Lesson, len(lessons)),
		LessonGroups: map[uuid.UUID][]domain.LessonGroup{},
	}

	for i, r := range rooms {
		raw.Rooms[i] = r.toDomain()
	}
	for i, r := range slots {
		raw.TimeSlots[i] = r.toDomain()
	}
	for i, r := range subjects {
		raw.Subjects[i] = r.toDomain()
	}
	for i, r := range lessons {
		raw.Lessons[i] = r.toDomain()
	}
	for _, t := range teachers {
		d, err := t.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode teacher %s unavailable_slots: %w", t.ID, err)
		}
		raw.Teachers = append(raw.Teachers, d)
	}
	for _, c := range classes {
		d, err := c.toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode class %s unavailable_slots: %w", c.ID, err)
		}
		raw.Classes = append(raw.Classes, d)
	}
	for _, g := range groups {
		d := g.toDomain()
		raw.LessonGroups[d.LessonID] = append(raw.LessonGroups[d.LessonID], d)
	}

	return raw, nil
}
