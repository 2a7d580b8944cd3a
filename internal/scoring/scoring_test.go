package scoring

import (
	"testing"
	"time"
)

func TestScoreCorrectAnswer(t *testing.T) {
	got := Score(true, 15*time.Second, 60*time.Second)
	if got.Accuracy != 1 || got.Speed != 0.75 || got.Total != 1.75 {
		t.Fatalf("expected 1 + 0.75 = 1.75, got %+v", got)
	}
}

func TestScoreIncorrectAnswerEarnsNothing(t *testing.T) {
	got := Score(false, 0, 60*time.Second)
	if got != (Breakdown{}) {
		t.Fatalf("expected zero breakdown for a fast wrong answer, got %+v", got)
	}
}

func TestScoreBoundaries(t *testing.T) {
	limit := 60 * time.Second

	instant := Score(true, 0, limit)
	if instant.Speed != 1 || instant.Total != 2 {
		t.Fatalf("expected maximum speed bonus at zero elapsed, got %+v", instant)
	}

	atLimit := Score(true, limit, limit)
	if atLimit.Speed != 0 || atLimit.Total != 1 {
		t.Fatalf("expected no speed bonus at the limit, got %+v", atLimit)
	}

	over := Score(true, limit+time.Second, limit)
	if over.Speed != 0 {
		t.Fatalf("expected speed bonus floored at zero, got %+v", over)
	}
}

func TestScoreRangeAndDeterminism(t *testing.T) {
	limit := 7 * time.Second
	for _, correct := range []bool{true, false} {
		for taken := time.Duration(0); taken <= limit; taken += 250 * time.Millisecond {
			a := Score(correct, taken, limit)
			b := Score(correct, taken, limit)
			if a != b {
				t.Fatalf("score not deterministic for taken=%s: %+v vs %+v", taken, a, b)
			}
			if a.Total < 0 || a.Total > MaxPerQuestion {
				t.Fatalf("total %v out of range for taken=%s", a.Total, taken)
			}
			if !correct && a.Total != 0 {
				t.Fatalf("incorrect answer scored %v", a.Total)
			}
			if a.Total != a.Accuracy+a.Speed {
				t.Fatalf("total %v != accuracy %v + speed %v", a.Total, a.Accuracy, a.Speed)
			}
		}
	}
}

func TestMaxTotal(t *testing.T) {
	if got := MaxTotal(3); got != 6 {
		t.Fatalf("expected 6, got %v", got)
	}
}
