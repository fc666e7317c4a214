package heuristic

import (
	"github.com/google/uuid"

	"github.com/slymn80/timetables/internal/constraint"
	"github.com/slymn80/timetables/internal/domain"
)

// candidate is one (day, starting slot) window under consideration for a
// block of the lesson currently being placed.
type candidate struct {
	day   domain.Weekday
	slots []domain.TimeSlot
}

// scoreCandidate implements the slot-scoring formula: start at 100, then
// sum the spread, consecutiveness, load, difficulty-vs-time-of-day and
// morning-preference terms across every slot in the candidate block.
func scoreCandidate(
	tracker *constraint.Tracker,
	lessonID, classID uuid.UUID,
	teacherIDs []uuid.UUID,
	cand candidate,
	blockSize int,
	maxDailyLessons int,
	difficultyLevel int,
) float64 {
	score := 100.0
	day := cand.day

	lessonsOnDay := tracker.GetLessonDayCount(lessonID, day)
	score -= float64(lessonsOnDay) * 20

	for _, slot := range cand.slots {
		period := slot.PeriodNumber

		if blockSize > 1 && tracker.WouldBeConsecutive(lessonID, day, period) {
			score += 50
		}

		classLessonsOnDay := tracker.GetClassDayCount(classID, day)
		if classLessonsOnDay >= maxDailyLessons {
			score -= 1000
		} else {
			score -= float64(classLessonsOnDay) * 5
		}

		for _, teacherID := range teacherIDs {
			if teacherID == uuid.Nil {
				continue
			}
			teacherLessonsOnDay := tracker.GetTeacherDayCount(teacherID, day)
			if teacherLessonsOnDay >= maxDailyLessons {
				score -= 1000
			} else {
				score -= float64(teacherLessonsOnDay) * 3
			}
		}

		score += difficultyTimeOfDayScore(difficultyLevel, period)
		score -= consecutiveDifficultyPenalty(tracker, classID, day, period, difficultyLevel)

		dailyDifficulty := tracker.GetClassDailyDifficulty(classID, day)
		switch {
		case dailyDifficulty >= 30:
			score -= 40
		case dailyDifficulty >= 20:
			score -= 20
		}

		score += float64(10-period) * 2
	}

	return score
}

// difficultyTimeOfDayScore rewards hard subjects in the morning and easy
// ones late in the day.
func difficultyTimeOfDayScore(difficulty, period int) float64 {
	switch {
	case difficulty >= 7:
		switch {
		case period <= 3:
			return 40
		case period <= 5:
			return 10
		default:
			return -30
		}
	case difficulty >= 4:
		switch {
		case period <= 2:
			return 15
		case period <= 5:
			return 10
		default:
			return -10
		}
	default:
		switch {
		case period >= 6:
			return 15
		case period <= 2:
			return -5
		default:
			return 0
		}
	}
}

// consecutiveDifficultyPenalty is a heavy penalty for stacking two
// difficulty>=7 lessons back to back, a lighter one for difficulty 5-6
// next to 7+.
func consecutiveDifficultyPenalty(tracker *constraint.Tracker, classID uuid.UUID, day domain.Weekday, period, newDifficulty int) float64 {
	penalty := 0.0

	if prev, ok := tracker.GetPeriodDifficulty(classID, day, period-1); ok {
		penalty += adjacentPenalty(prev, newDifficulty)
	}
	if next, ok := tracker.GetPeriodDifficulty(classID, day, period+1); ok {
		penalty += adjacentPenalty(next, newDifficulty)
	}
	return penalty
}

func adjacentPenalty(other, new int) float64 {
	switch {
	case other >= 7 && new >= 7:
		return 50
	case other >= 5 && new >= 7:
		return 25
	default:
		return 0
	}
}
