package memory

import (
	"testing"

	"quiz-engine/internal/app"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	runner := app.NewRunner("s1", app.DefaultRunnerConfig(), nil)
	store.Put("s1", runner)
	got, ok := store.Get("s1")
	if !ok || got != runner {
		t.Fatalf("expected stored runner")
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", store.Len())
	}

	store.Delete("s1")
	if _, ok := store.Get("s1"); ok {
		t.Fatalf("expected session removed")
	}
}
