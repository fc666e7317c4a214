package heuristic

import (
	"github.com/slymn80/timetables/internal/domain"
	"github.com/slymn80/timetables/internal/pattern"
)

// resolvePreferredBlocks picks a lesson's preferred block sizes: the
// lesson's own saved pattern wins, then the subject's default format, then
// an auto-chopped fallback.
func resolvePreferredBlocks(lesson domain.Lesson, subject domain.Subject, maxConsecutiveSameSubject int) ([]int, error) {
	if lesson.Metadata.UserDistributionPattern != nil {
		blocks, err := pattern.Parse(*lesson.Metadata.UserDistributionPattern)
		if err == nil {
			if verr := pattern.ValidateForHours(blocks, lesson.HoursPerWeek); verr == nil {
				return blocks, nil
			}
		}
		// Falls through to the subject default on an unusable lesson-level
		// pattern rather than aborting the whole lesson's placement.
	}

	if subject.DefaultDistributionFormat != "" {
		blocks, err := pattern.Parse(subject.DefaultDistributionFormat)
		if err == nil {
			if verr := pattern.ValidateForHours(blocks, lesson.HoursPerWeek); verr == nil {
				return blocks, nil
			}
		}
	}

	return autoChop(lesson.HoursPerWeek, maxConsecutiveSameSubject), nil
}

// autoChop greedily carves hoursPerWeek into blocks of size
// min(maxConsecutive, remaining), descending. A subject that
// requires_consecutive_periods gets the same shape here: its first block is
// already the largest single sitting the consecutive cap allows, so
// placement tries that before any leftover chopped piece.
func autoChop(hoursPerWeek, maxConsecutive int) []int {
	if maxConsecutive < 1 {
		maxConsecutive = 1
	}
	var blocks []int
	remaining := hoursPerWeek
	for remaining > 0 {
		block := maxConsecutive
		if block > remaining {
			block = remaining
		}
		blocks = append(blocks, block)
		remaining -= block
	}
	return blocks
}
