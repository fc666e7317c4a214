package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/slymn80/timetables/internal/domain"
)

// TimetableStore implements engine.TimetableStore: the two status
// transitions the driver performs on a timetable's own row, kept separate
// from EntrySink because it's a different aggregate. Two fixed UPDATE
// statements, since the driver only ever writes these two known column
// sets.
type TimetableStore struct {
	db *sqlx.DB
}

// NewTimetableStore wires a TimetableStore over a shared sqlx connection.
func NewTimetableStore(db *sqlx.DB) *TimetableStore {
	return &TimetableStore{db: db}
}

// MarkGenerating transitions a timetable to the generating status. This is
// the durable half of the one-generation-per-timetable rule
// (engine.Locks is the in-process half): the WHERE clause only matches
// a row currently in draft or failed, so a second caller racing against an
// in-flight generation (e.g. a second server instance, bypassing this
// process's in-memory Locks) affects zero rows and gets
// ErrGenerationNotStartable rather than silently restarting a run.
func (s *TimetableStore) MarkGenerating(ctx context.Context, timetableID uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE timetables SET status = $1
		WHERE id = $2 AND status IN ($3, $4)`,
		domain.TimetableGenerating, timetableID, domain.TimetableDraft, domain.TimetableFailed)
	if err != nil {
		return fmt.Errorf("mark timetable generating: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM timetables WHERE id = $1)`, timetableID); err != nil {
		return fmt.Errorf("check timetable existence: %w", err)
	}
	if !exists {
		return ErrTimetableNotFound
	}
	return ErrGenerationNotStartable
}

// CompleteGeneration persists the final status and statistics (driver step 6,
// or the fail path on a fatal input error).
func (s *TimetableStore) CompleteGeneration(ctx context.Context, timetableID uuid.UUID, stats domain.Timetable) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE timetables
		SET status = $1, hard_constraint_violations = $2, soft_constraint_score = $3,
		    generation_duration_sec = $4
		WHERE id = $5`,
		stats.Status, stats.HardConstraintViolations, stats.SoftConstraintScore,
		stats.GenerationDurationSec, timetableID)
	if err != nil {
		return fmt.Errorf("complete timetable generation: %w", err)
	}
	return checkRowsAffected(res)
}

func checkRowsAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read rows affected: %w", err)
	}
	if n == 0 {
		return ErrTimetableNotFound
	}
	return nil
}
