// Package engine implements the generation driver: status transitions,
// pattern-extraction-before-delete, snapshot loading, strategy dispatch,
// and atomic entry persistence. It defines the narrow read/write contracts
// the core borrows instead of depending on a concrete store.
package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/slymn80/timetables/internal/domain"
	"github.com/slymn80/timetables/internal/snapshot"
)

// SnapshotSource is the scheduler's read contract: given a
// school id, the full active entity picture needed to build a Snapshot.
type SnapshotSource interface {
	LoadSchool(ctx context.Context, schoolID uuid.UUID) (*snapshot.RawSchool, error)
}

// EntrySink is the scheduler's write contract: delete a
// timetable's entries and insert a new set, atomically.
type EntrySink interface {
	ReplaceEntries(ctx context.Context, timetableID uuid.UUID, entries []domain.TimetableEntry) error
}

// PriorEntriesSource reads a timetable's currently-persisted entries so the
// pattern extractor can run over them before they are deleted
// (that step needs entries for one timetable, not a whole school, so
// this is kept separate from SnapshotSource rather than overloading it).
type PriorEntriesSource interface {
	LoadEntries(ctx context.Context, timetableID uuid.UUID) ([]domain.TimetableEntry, error)
}

// TimetableStore persists a generation's status transitions and observable
// outputs (draft→generating, then the final status plus
// hard_constraint_violations/soft_constraint_score/generation_duration).
// Named separately from EntrySink because a timetable's own row and its
// entries are different aggregates with different write patterns (one
// UPDATE vs. a delete+bulk-insert).
type TimetableStore interface {
	MarkGenerating(ctx context.Context, timetableID uuid.UUID) error
	CompleteGeneration(ctx context.Context, timetableID uuid.UUID, stats domain.Timetable) error
}
