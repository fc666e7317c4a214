// Package cpsat implements the exact scheduling strategy on top of
// github.com/google/or-tools/sat: one Boolean per (lesson, slot), hard
// constraints as linear sums, solved within a time and worker budget.
package cpsat

import (
	"fmt"

	"github.com/google/or-tools/sat"
	"github.com/google/uuid"

	"github.com/slymn80/timetables/internal/domain"
	"github.com/slymn80/timetables/internal/snapshot"
)

// Params are the solver's time and parallelism bounds.
type Params struct {
	TimeBudgetSeconds float64
	Workers           int
}

// DefaultParams is 300 s wall clock and 8 search workers.
func DefaultParams() Params {
	return Params{TimeBudgetSeconds: 300, Workers: 8}
}

// Result mirrors heuristic.Result's shape so the driver can treat either
// strategy's output uniformly.
type Result struct {
	Entries  []domain.TimetableEntry
	Shortage int
	Logs     []string
}

// Solver builds and solves one CP-SAT model per Run call.
type Solver struct{}

// NewSolver constructs a Solver.
func NewSolver() *Solver {
	return &Solver{}
}

// Run encodes every active lesson/slot pair as a Boolean, applies the
// exclusivity, unavailability, daily-cap and hour-count constraints (group
// synchrony is folded into the variable model: one Boolean stands for all
// groups of a lesson at a slot), and solves within the given bounds.
func (s *Solver) Run(snap *snapshot.Snapshot, timetableID uuid.UUID, params Params) (*Result, error) {
	model := sat.NewCpModel()

	slots := nonBreakSlots(snap)

	vars := map[uuid.UUID]map[uuid.UUID]*sat.BoolVar{} // lesson -> slot -> var
	var allVars []*sat.BoolVar

	for _, lesson := range snap.Lessons {
		vars[lesson.ID] = map[uuid.UUID]*sat.BoolVar{}
		for _, slot := range slots {
			name := fmt.Sprintf("assign|%s|%s", lesson.ID, slot.ID)
			bv := model.NewBoolVar(name)
			vars[lesson.ID][slot.ID] = bv
			allVars = append(allVars, bv)
		}
	}

	// Constraint 2: hour count.
	for _, lesson := range snap.Lessons {
		lessonVars := make([]*sat.BoolVar, 0, len(slots))
		for _, slot := range slots {
			lessonVars = append(lessonVars, vars[lesson.ID][slot.ID])
		}
		model.AddLinearConstraint(lessonVars, int64(lesson.HoursPerWeek), int64(lesson.HoursPerWeek))
	}

	// Constraint 3: class exclusivity.
	byClass := map[uuid.UUID][]domain.Lesson{}
	for _, lesson := range snap.Lessons {
		byClass[lesson.ClassID] = append(byClass[lesson.ClassID], lesson)
	}
	for _, slot := range slots {
		for _, lessons := range byClass {
			group := make([]*sat.BoolVar, 0, len(lessons))
			for _, lesson := range lessons {
				group = append(group, vars[lesson.ID][slot.ID])
			}
			model.AddLinearConstraint(group, 0, 1)
		}
	}

	// Constraint 4: teacher exclusivity.
	for _, slot := range slots {
		byTeacher := map[uuid.UUID][]*sat.BoolVar{}
		for _, lesson := range snap.Lessons {
			seen := map[uuid.UUID]bool{}
			for _, a := range snap.Assignments[lesson.ID] {
				if a.TeacherID == nil || seen[*a.TeacherID] {
					continue
				}
				seen[*a.TeacherID] = true
				byTeacher[*a.TeacherID] = append(byTeacher[*a.TeacherID], vars[lesson.ID][slot.ID])
			}
		}
		for _, group := range byTeacher {
			if len(group) > 1 {
				model.AddLinearConstraint(group, 0, 1)
			}
		}
	}

	// Constraints 5 & 6: unavailability. Force the variable to 0 rather
	// than omitting it, so every (lesson, slot) pair still has a concrete
	// value to read back after solving.
	for _, lesson := range snap.Lessons {
		class := snap.Classes[lesson.ClassID]
		teacherUnavailable := lessonTeacherUnavailability(snap, lesson)

		for _, slot := range slots {
			if class.UnavailableSlots.Contains(slot.Day, slot.PeriodNumber) {
				model.AddLinearConstraint([]*sat.BoolVar{vars[lesson.ID][slot.ID]}, 0, 0)
				continue
			}
			if teacherUnavailable(slot) {
				model.AddLinearConstraint([]*sat.BoolVar{vars[lesson.ID][slot.ID]}, 0, 0)
			}
		}
	}

	// Constraint 7: per-class daily cap.
	for _, lesson := range snap.Lessons {
		class := snap.Classes[lesson.ClassID]
		if class.MaxHoursPerDay <= 0 {
			continue
		}
		for _, slot := range slots {
			if slot.PeriodNumber > class.MaxHoursPerDay {
				model.AddLinearConstraint([]*sat.BoolVar{vars[lesson.ID][slot.ID]}, 0, 0)
			}
		}
	}

	objective := model.NewLinearExpr()
	for _, v := range allVars {
		objective.AddTerm(v, 1)
	}
	model.Maximise(objective)

	solver := sat.NewCpSolver()
	solver.MaxTimeInSeconds = params.TimeBudgetSeconds
	solver.NumSearchWorkers = params.Workers

	status := solver.Solve(model)

	result := &Result{}
	switch status {
	case sat.Optimal, sat.Feasible:
		for _, lesson := range snap.Lessons {
			for _, slot := range slots {
				if !solver.BooleanValue(vars[lesson.ID][slot.ID]) {
					continue
				}
				for _, a := range snap.Assignments[lesson.ID] {
					result.Entries = append(result.Entries, domain.TimetableEntry{
						TimetableID:   timetableID,
						TimeSlotID:    slot.ID,
						LessonID:      lesson.ID,
						LessonGroupID: a.GroupID,
					})
				}
			}
		}
		result.Logs = append(result.Logs, fmt.Sprintf("cp-sat: status=%v, %d entries", status, len(result.Entries)))

	default:
		result.Shortage = 1
		result.Logs = append(result.Logs, fmt.Sprintf("cp-sat: INFEASIBLE or no solution within time budget (status=%v)", status))
	}

	return result, nil
}

func nonBreakSlots(snap *snapshot.Snapshot) []domain.TimeSlot {
	var slots []domain.TimeSlot
	for _, day := range domain.WeekdayOrder {
		for _, slot := range snap.SlotsByDay[day] {
			if !slot.IsBreak {
				slots = append(slots, slot)
			}
		}
	}
	return slots
}

// lessonTeacherUnavailability returns a predicate closing over every
// group's teacher unavailable-slots set for one lesson.
func lessonTeacherUnavailability(snap *snapshot.Snapshot, lesson domain.Lesson) func(domain.TimeSlot) bool {
	var unavailableSets []domain.UnavailableSlots
	for _, a := range snap.Assignments[lesson.ID] {
		if a.TeacherID == nil {
			continue
		}
		if t, ok := snap.Teachers[*a.TeacherID]; ok {
			unavailableSets = append(unavailableSets, t.UnavailableSlots)
		}
	}
	return func(slot domain.TimeSlot) bool {
		for _, u := range unavailableSets {
			if u.Contains(slot.Day, slot.PeriodNumber) {
				return true
			}
		}
		return false
	}
}
