package http

import (
	"encoding/json"
	"time"

	"quiz-engine/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type startPayload struct {
	PoolID     string   `json:"poolId"`
	Count      int      `json:"count"`
	Categories []string `json:"categories"`
}

type confirmPayload struct {
	QuestionID    string `json:"questionId"`
	SelectedIndex int    `json:"selectedIndex"`
}

type expirePayload struct {
	QuestionID string `json:"questionId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// questionDTO never carries the answer index while a question is open.
type questionDTO struct {
	ID       string   `json:"id"`
	Category string   `json:"section"`
	Prompt   string   `json:"question"`
	Options  []string `json:"options"`
}

type statsDTO struct {
	TotalScore         float64 `json:"totalScore"`
	TotalMaxScore      float64 `json:"totalMaxScore"`
	TotalQuestions     int     `json:"totalQuestions"`
	CorrectCount       int     `json:"correctCount"`
	AccuracyPercent    int     `json:"accuracyPercent"`
	AverageTimeSeconds float64 `json:"averageTimeSeconds"`
}

type resultDTO struct {
	QuestionID       string  `json:"questionId"`
	IsCorrect        bool    `json:"isCorrect"`
	TimeTakenSeconds float64 `json:"timeTakenSeconds"`
	SelectedIndex    int     `json:"selectedAnswerIndex"`
	AccuracyScore    float64 `json:"accuracyScore"`
	SpeedScore       float64 `json:"speedScore"`
	Score            float64 `json:"score"`
	CorrectIndex     *int    `json:"correctAnswerIndex,omitempty"`
}

type viewDTO struct {
	State                string       `json:"state"`
	Question             *questionDTO `json:"question,omitempty"`
	Index                int          `json:"index"`
	Total                int          `json:"total"`
	TimeLimitSeconds     float64      `json:"timeLimitSeconds"`
	TimeRemainingSeconds float64      `json:"timeRemainingSeconds"`
	Stats                statsDTO     `json:"stats"`
	Results              []resultDTO  `json:"results,omitempty"`
}

func toViewDTO(v domain.View) viewDTO {
	dto := viewDTO{
		State:                v.State.String(),
		Index:                v.Index,
		Total:                v.Total,
		TimeLimitSeconds:     seconds(v.TimeLimit),
		TimeRemainingSeconds: seconds(v.TimeRemaining),
		Stats:                toStatsDTO(v.Stats),
	}
	if v.Question != nil {
		dto.Question = &questionDTO{
			ID:       v.Question.ID,
			Category: v.Question.Category,
			Prompt:   v.Question.Prompt,
			Options:  v.Question.Options,
		}
	}

	// Correct answers are only revealed once the quiz is over.
	answers := make(map[string]int, len(v.Questions))
	for _, q := range v.Questions {
		answers[q.ID] = q.AnswerIndex
	}
	for _, r := range v.Results {
		rd := toResultDTO(r)
		if idx, ok := answers[r.QuestionID]; ok {
			rd.CorrectIndex = &idx
		}
		dto.Results = append(dto.Results, rd)
	}
	return dto
}

func toStatsDTO(s domain.Stats) statsDTO {
	return statsDTO{
		TotalScore:         s.TotalScore,
		TotalMaxScore:      s.TotalMaxScore,
		TotalQuestions:     s.TotalQuestions,
		CorrectCount:       s.CorrectCount,
		AccuracyPercent:    int(s.Accuracy()*100 + 0.5),
		AverageTimeSeconds: seconds(s.AverageTime),
	}
}

func toResultDTO(r domain.QuestionResult) resultDTO {
	return resultDTO{
		QuestionID:       r.QuestionID,
		IsCorrect:        r.IsCorrect,
		TimeTakenSeconds: seconds(r.TimeTaken),
		SelectedIndex:    r.SelectedIndex,
		AccuracyScore:    r.AccuracyScore,
		SpeedScore:       r.SpeedScore,
		Score:            r.Score,
	}
}

func seconds(d time.Duration) float64 {
	return d.Seconds()
}
