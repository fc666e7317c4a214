package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/slymn80/timetables/internal/domain"
)

// EntrySink implements engine.EntrySink: delete a timetable's entries and
// insert a new set, in one transaction (BeginTxx, per-row ExecContext,
// Commit, with the deferred Rollback a no-op after a successful commit).
type EntrySink struct {
	db *sqlx.DB
}

// NewEntrySink wires an EntrySink over a shared sqlx connection.
func NewEntrySink(db *sqlx.DB) *EntrySink {
	return &EntrySink{db: db}
}

// ReplaceEntries deletes every existing row for timetableID and inserts
// entries, atomically. Calling it with a nil/empty entries slice performs
// a delete-only pass (driver step 3).
func (s *EntrySink) ReplaceEntries(ctx context.Context, timetableID uuid.UUID, entries []domain.TimetableEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace-entries transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM timetable_entries WHERE timetable_id = $1`, timetableID); err != nil {
		return fmt.Errorf("delete prior entries: %w", err)
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO timetable_entries (timetable_id, time_slot_id, lesson_id, lesson_group_id, room_id)
			VALUES ($1, $2, $3, $4, $5)`,
			e.TimetableID, e.TimeSlotID, e.LessonID, e.LessonGroupID, e.RoomID)
		if err != nil {
			return fmt.Errorf("insert entry for lesson %s: %w", e.LessonID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace-entries transaction: %w", err)
	}
	return nil
}

// PriorEntriesSource implements engine.PriorEntriesSource: a timetable-scoped
// read of currently-persisted entries, used by the Pattern Extractor before
// EntrySink deletes them.
type PriorEntriesSource struct {
	db *sqlx.DB
}

// NewPriorEntriesSource wires a PriorEntriesSource over a shared sqlx connection.
func NewPriorEntriesSource(db *sqlx.DB) *PriorEntriesSource {
	return &PriorEntriesSource{db: db}
}

// LoadEntries returns every entry currently persisted for timetableID.
func (s *PriorEntriesSource) LoadEntries(ctx context.Context, timetableID uuid.UUID) ([]domain.TimetableEntry, error) {
	var rows []timetableEntryRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT timetable_id, time_slot_id, lesson_id, lesson_group_id, room_id
		FROM timetable_entries
		WHERE timetable_id = $1`, timetableID); err != nil {
		return nil, fmt.Errorf("load prior entries: %w", err)
	}

	entries := make([]domain.TimetableEntry, len(rows))
	for i, r := range rows {
		entries[i] = r.toDomain()
	}
	return entries, nil
}
