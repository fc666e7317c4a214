package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slymn80/timetables/internal/cpsat"
	"github.com/slymn80/timetables/internal/domain"
	"github.com/slymn80/timetables/internal/heuristic"
	"github.com/slymn80/timetables/internal/pattern"
	"github.com/slymn80/timetables/internal/snapshot"
)

// Algorithm selects which strategy Generate dispatches to.
type Algorithm string

const (
	AlgorithmHeuristic Algorithm = "heuristic"
	AlgorithmCPSAT     Algorithm = "cpsat"
)

// ErrGenerationInProgress is returned when a second generation is requested
// for a timetable that already has one in flight.
var ErrGenerationInProgress = errors.New("a generation is already in progress for this timetable")

// Outcome is the driver's observable result for one generation run.
type Outcome struct {
	Status                   domain.TimetableStatus
	HardConstraintViolations int
	SoftConstraintScore      int
	GenerationDurationSec    float64
	Logs                     []string
}

// Driver wires the narrow read/write contracts to the two strategies and
// owns the per-timetable lock registry.
type Driver struct {
	Source       SnapshotSource
	PriorEntries PriorEntriesSource
	Sink         EntrySink
	Store        TimetableStore
	Locks        *Locks

	HeuristicParams heuristic.Params
	CPSATParams     cpsat.Params
}

// NewDriver wires a Driver with the default strategy parameters.
func NewDriver(source SnapshotSource, prior PriorEntriesSource, sink EntrySink, store TimetableStore) *Driver {
	return &Driver{
		Source:          source,
		PriorEntries:    prior,
		Sink:            sink,
		Store:           store,
		Locks:           NewLocks(),
		HeuristicParams: heuristic.DefaultParams(),
		CPSATParams:     cpsat.DefaultParams(),
	}
}

// Generate runs one full generation for one timetable: mark generating,
// extract prior patterns, delete old entries, load the snapshot, dispatch
// to the chosen strategy, persist. It never panics on input or solver
// errors; both fold into the returned Outcome's Status/violations.
func (d *Driver) Generate(ctx context.Context, schoolID, timetableID uuid.UUID, algo Algorithm) (*Outcome, error) {
	if !d.Locks.TryLock(timetableID) {
		return nil, ErrGenerationInProgress
	}
	defer d.Locks.Unlock(timetableID)

	start := time.Now()
	var logs []string

	// Step 1: draft -> generating.
	if err := d.Store.MarkGenerating(ctx, timetableID); err != nil {
		return nil, fmt.Errorf("mark generating: %w", err)
	}

	// Step 4 (loaded early so the pattern extractor in step 2 has slot
	// data to resolve day/period for each prior entry): load the snapshot
	// source's raw view.
	raw, err := d.Source.LoadSchool(ctx, schoolID)
	if err != nil {
		return d.fail(ctx, timetableID, start, fmt.Sprintf("load school: %v", err))
	}

	// Step 2: pattern extractor over prior entries, before they're deleted.
	priorEntries, err := d.PriorEntries.LoadEntries(ctx, timetableID)
	if err != nil {
		return d.fail(ctx, timetableID, start, fmt.Sprintf("load prior entries: %v", err))
	}
	if len(priorEntries) > 0 {
		slotsByID := make(map[uuid.UUID]domain.TimeSlot, len(raw.TimeSlots))
		for _, slot := range raw.TimeSlots {
			slotsByID[slot.ID] = slot
		}
		extracted := pattern.NewExtractor().ExtractAll(priorEntries, slotsByID)
		raw.Lessons = pattern.NewExtractor().ApplyTo(raw.Lessons, extracted)
		logs = append(logs, fmt.Sprintf("pattern extractor: seeded %d lesson(s) from prior entries", len(extracted)))
	}

	// Step 3: delete prior entries.
	if err := d.Sink.ReplaceEntries(ctx, timetableID, nil); err != nil {
		return d.fail(ctx, timetableID, start, fmt.Sprintf("delete prior entries: %v", err))
	}

	snap, err := snapshot.Build(*raw)
	if err != nil {
		return d.fail(ctx, timetableID, start, fmt.Sprintf("build snapshot: %v", err))
	}

	// Step 5: dispatch to strategy.
	var entries []domain.TimetableEntry
	var shortage int

	switch algo {
	case AlgorithmCPSAT:
		result, err := cpsat.NewSolver().Run(snap, timetableID, d.CPSATParams)
		if err != nil {
			return d.fail(ctx, timetableID, start, fmt.Sprintf("cp-sat solve: %v", err))
		}
		entries, shortage, logs = result.Entries, result.Shortage, append(logs, result.Logs...)

	default:
		result := heuristic.NewScheduler().Run(snap, timetableID, d.HeuristicParams)
		entries, shortage, logs = result.Entries, result.Shortage, append(logs, result.Logs...)
	}

	// Step 6: persist entries atomically, then status and statistics.
	if err := d.Sink.ReplaceEntries(ctx, timetableID, entries); err != nil {
		return d.fail(ctx, timetableID, start, fmt.Sprintf("persist entries: %v", err))
	}

	status := domain.TimetableCompleted
	if shortage > 0 {
		status = domain.TimetableFailed
	}
	softScore := 100 - 10*shortage
	if softScore < 0 {
		softScore = 0
	}
	duration := time.Since(start).Seconds()

	stats := domain.Timetable{
		ID:                       timetableID,
		SchoolID:                 schoolID,
		Status:                   status,
		HardConstraintViolations: shortage,
		SoftConstraintScore:      softScore,
		GenerationDurationSec:    duration,
	}
	if err := d.Store.CompleteGeneration(ctx, timetableID, stats); err != nil {
		return nil, fmt.Errorf("complete generation: %w", err)
	}

	return &Outcome{
		Status:                   status,
		HardConstraintViolations: shortage,
		SoftConstraintScore:      softScore,
		GenerationDurationSec:    duration,
		Logs:                     logs,
	}, nil
}

// fail marks the timetable failed with a single violation and logs the
// fatal error. A fatal error aborts the run but must not leave the
// timetable stuck in "generating".
func (d *Driver) fail(ctx context.Context, timetableID uuid.UUID, start time.Time, reason string) (*Outcome, error) {
	duration := time.Since(start).Seconds()
	stats := domain.Timetable{
		ID:                       timetableID,
		Status:                   domain.TimetableFailed,
		HardConstraintViolations: 1,
		SoftConstraintScore:      0,
		GenerationDurationSec:    duration,
	}
	if err := d.Store.CompleteGeneration(ctx, timetableID, stats); err != nil {
		return nil, fmt.Errorf("complete generation after fatal error (%s): %w", reason, err)
	}
	return &Outcome{
		Status:                   domain.TimetableFailed,
		HardConstraintViolations: 1,
		SoftConstraintScore:      0,
		GenerationDurationSec:    duration,
		Logs:                     []string{reason},
	}, nil
}
