package selector

import (
	"math/rand"
	"strconv"
	"testing"

	"quiz-engine/internal/domain"
)

func TestSelectCapsCountAndKeepsInput(t *testing.T) {
	pool := samplePool(10)
	before := append([]domain.Question(nil), pool...)

	got := Select(pool, Options{Count: 4}, rand.New(rand.NewSource(1)))
	if len(got) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(got))
	}
	for i := range pool {
		if pool[i].ID != before[i].ID {
			t.Fatalf("input reordered at %d", i)
		}
	}

	all := Select(pool, Options{Count: 50}, rand.New(rand.NewSource(1)))
	if len(all) != len(pool) {
		t.Fatalf("expected count capped at pool size %d, got %d", len(pool), len(all))
	}
}

func TestSelectIsAPermutation(t *testing.T) {
	pool := samplePool(20)
	got := Select(pool, Options{}, rand.New(rand.NewSource(42)))

	seen := make(map[string]bool, len(got))
	for _, q := range got {
		if seen[q.ID] {
			t.Fatalf("question %s selected twice", q.ID)
		}
		seen[q.ID] = true
	}
	if len(seen) != len(pool) {
		t.Fatalf("expected %d distinct questions, got %d", len(pool), len(seen))
	}
}

func TestSelectDeterministicForSeed(t *testing.T) {
	pool := samplePool(15)
	a := Select(pool, Options{Count: 5}, rand.New(rand.NewSource(7)))
	b := Select(pool, Options{Count: 5}, rand.New(rand.NewSource(7)))
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Fatalf("same seed produced different order at %d: %s vs %s", i, a[i].ID, b[i].ID)
		}
	}
}

func TestSelectFiltersCategories(t *testing.T) {
	pool := samplePool(10)
	got := Select(pool, Options{Categories: []string{"odd"}}, nil)
	if len(got) != 5 {
		t.Fatalf("expected 5 odd questions, got %d", len(got))
	}
	for _, q := range got {
		if q.Category != "odd" {
			t.Fatalf("unexpected category %q", q.Category)
		}
	}
}

func samplePool(n int) []domain.Question {
	out := make([]domain.Question, 0, n)
	for i := 0; i < n; i++ {
		category := "even"
		if i%2 == 1 {
			category = "odd"
		}
		out = append(out, domain.Question{
			ID:          "q" + strconv.Itoa(i),
			Category:    category,
			Prompt:      "Question " + strconv.Itoa(i),
			Options:     []string{"a", "b", "c"},
			AnswerIndex: i % 3,
		})
	}
	return out
}
