// Package selector draws the ordered question list a quiz session is started with.
package selector

import (
	"math/rand"
	"time"

	"quiz-engine/internal/domain"
)

// Options narrows and sizes a selection. Count <= 0 selects every eligible question;
// an empty Categories list accepts all categories.
type Options struct {
	Count      int
	Categories []string
}

// Select filters questions by category, shuffles them and keeps at most Count.
// The input slice is never modified.
func Select(questions []domain.Question, opts Options, rnd *rand.Rand) []domain.Question {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	eligible := filter(questions, opts.Categories)
	shuffled := make([]domain.Question, len(eligible))
	copy(shuffled, eligible)

	// Fisher-Yates
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	limit := opts.Count
	if limit <= 0 || limit > len(shuffled) {
		limit = len(shuffled)
	}
	return shuffled[:limit]
}

func filter(questions []domain.Question, categories []string) []domain.Question {
	if len(categories) == 0 {
		return questions
	}
	allowed := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		allowed[c] = struct{}{}
	}
	out := make([]domain.Question, 0, len(questions))
	for _, q := range questions {
		if _, ok := allowed[q.Category]; ok {
			out = append(out, q)
		}
	}
	return out
}
