// Package scoring computes per-question scores from correctness and response time.
package scoring

import "time"

// MaxPerQuestion is the highest score a single question can award.
const MaxPerQuestion = 2.0

// Breakdown holds the components of a single question's score.
type Breakdown struct {
	Accuracy float64
	Speed    float64
	Total    float64
}

// Score awards 1 point for a correct answer plus a speed bonus in [0,1] that
// decays linearly with the time taken. Incorrect answers score zero regardless of speed.
// timeTaken is expected to already be clamped to [0, timeLimit] and timeLimit must be positive.
func Score(isCorrect bool, timeTaken, timeLimit time.Duration) Breakdown {
	if !isCorrect {
		return Breakdown{}
	}
	remaining := timeLimit - timeTaken
	if remaining < 0 {
		remaining = 0
	}
	speed := float64(remaining) / float64(timeLimit)
	return Breakdown{
		Accuracy: 1,
		Speed:    speed,
		Total:    1 + speed,
	}
}

// MaxTotal returns the best attainable score for n questions.
func MaxTotal(n int) float64 {
	return MaxPerQuestion * float64(n)
}
