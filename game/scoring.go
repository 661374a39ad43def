package game

import "github.com/FiveEightyEight/scripturequest/models"

const (
	hintPenalty = 2
	minPoints   = 1
)

var basePoints = map[models.Difficulty]int{
	models.DifficultyEasy:   10,
	models.DifficultyMedium: 15,
	models.DifficultyHard:   20,
}

// Points scores one answer. A correct answer always earns at least one point,
// however many hints were used.
func Points(correct bool, timeRemaining, totalTimeBudget int, difficulty models.Difficulty, hintsUsed int) int {
	if !correct {
		return 0
	}

	base, ok := basePoints[difficulty]
	if !ok {
		base = basePoints[models.DifficultyEasy]
	}

	if timeRemaining < 0 {
		timeRemaining = 0
	}
	timeBonus := 0
	if totalTimeBudget > 0 {
		if timeRemaining > totalTimeBudget {
			timeRemaining = totalTimeBudget
		}
		// half the base, scaled by the share of time left; integer division floors
		timeBonus = base * timeRemaining / (2 * totalTimeBudget)
	}

	if hintsUsed < 0 {
		hintsUsed = 0
	}

	return max(base+timeBonus-hintsUsed*hintPenalty, minPoints)
}
