package domain

import "errors"

// Input errors: fatal, abort generation before it begins.
var (
	ErrMissingEntity      = errors.New("referenced entity does not exist in the snapshot")
	ErrInvalidReference   = errors.New("entity references another entity outside its school")
	ErrGroupCountMismatch = errors.New("lesson declares num_groups that does not match its lesson groups")
	ErrEmptyLessonSet     = errors.New("school has no active lessons to schedule")
	ErrEmptySlotSet       = errors.New("school has no assignable (non-break) time slots")
	ErrUnparseablePattern = errors.New("distribution pattern is not a valid k1+k2+...+kn string")
)

// Solver-outcome errors: non-fatal, reported as a structured result rather
// than an error return.
var (
	ErrInfeasible = errors.New("no feasible assignment exists for the given constraints")
)
