package cli

import "quiz-engine/internal/domain"

// samplePools provides a minimal pool so the engine runs without any question source.
func samplePools(poolID string) map[string]domain.Pool {
	return map[string]domain.Pool{
		poolID: {
			ID: poolID,
			Questions: []domain.Question{
				{ID: "1", Category: "Science", Prompt: "Which planet is known as the Red Planet?", Options: []string{"Venus", "Mars", "Jupiter", "Mercury"}, AnswerIndex: 1},
				{ID: "2", Category: "Geography", Prompt: "Which is the longest river in Asia?", Options: []string{"Ganga", "Mekong", "Yangtze", "Indus"}, AnswerIndex: 2},
				{ID: "3", Category: "Math", Prompt: "What is 12 x 12?", Options: []string{"124", "144", "132"}, AnswerIndex: 1},
				{ID: "4", Category: "Science", Prompt: "What gas do plants absorb from the atmosphere?", Options: []string{"Oxygen", "Nitrogen", "Carbon dioxide"}, AnswerIndex: 2},
				{ID: "5", Category: "History", Prompt: "In which year did the Berlin Wall fall?", Options: []string{"1987", "1989", "1991"}, AnswerIndex: 1},
			},
		},
	}
}
