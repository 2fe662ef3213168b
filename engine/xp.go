package engine

import (
	"math"

	"github.com/masteryflow/masteryflow/models"
)

// Base XP awards per task difficulty.
const (
	XPEasy   = 50
	XPMedium = 100
	XPHard   = 200
)

// speedBonusThreshold is the estimated/actual ratio above which a completion
// counts as meaningfully faster than estimated. speedBonusRate is the bonus
// fraction of the base award.
const (
	speedBonusThreshold = 1.2
	speedBonusRate      = 0.2
)

// TaskXP computes the XP award for a completed task: the difficulty base
// (MEDIUM when the difficulty is unset) plus a floor-rounded 20% speed bonus
// when the task was finished in under estimated/1.2 minutes.
func TaskXP(difficulty string, estimatedMinutes, actualMinutes int) int {
	var xp int
	switch difficulty {
	case models.DifficultyEasy:
		xp = XPEasy
	case models.DifficultyHard:
		xp = XPHard
	default:
		xp = XPMedium
	}

	if actualMinutes > 0 && actualMinutes < estimatedMinutes {
		timeFactor := float64(estimatedMinutes) / float64(actualMinutes)
		if timeFactor > speedBonusThreshold {
			xp += int(math.Floor(float64(xp) * speedBonusRate))
		}
	}

	return xp
}

// LevelForTotalXP derives a level from total ledger XP: floor(sqrt(xp/100)).
// Levels are always computed from the summed ledger, never stored.
func LevelForTotalXP(totalXP int64) int {
	if totalXP <= 0 {
		return 0
	}
	return int(math.Sqrt(float64(totalXP) / 100))
}

// XPForLevel returns the total XP threshold at which the given level starts.
func XPForLevel(level int) int64 {
	if level <= 0 {
		return 0
	}
	return int64(level) * int64(level) * 100
}

// XPToNextLevel returns how much more XP is needed to reach the next level
// from the given total.
func XPToNextLevel(totalXP int64) int64 {
	next := XPForLevel(LevelForTotalXP(totalXP) + 1)
	return next - totalXP
}
