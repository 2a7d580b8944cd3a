package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-engine/internal/app"
	"quiz-engine/internal/domain"
	"quiz-engine/internal/infra/memory"
)

func TestWebSocketQuizFlow(t *testing.T) {
	conn, cleanup := dialQuiz(t, app.RunnerConfig{TimeLimit: time.Minute, Tick: time.Hour}, "")
	defer cleanup()

	readUntil(t, conn, "connected")

	if err := conn.WriteJSON(map[string]any{
		"type":    "start",
		"payload": map[string]any{"poolId": "general", "count": 2},
	}); err != nil {
		t.Fatalf("write start: %v", err)
	}

	state := readState(t, conn, "in_progress")
	for answered := 0; answered < 2; answered++ {
		question := state["question"].(map[string]any)
		if _, leaked := question["answer_index"]; leaked {
			t.Fatalf("answer index leaked to client: %+v", question)
		}
		// Every sample question has option 1 as its answer.
		if err := conn.WriteJSON(map[string]any{
			"type":    "confirm",
			"payload": map[string]any{"questionId": question["id"], "selectedIndex": 1},
		}); err != nil {
			t.Fatalf("write confirm: %v", err)
		}

		// The result and the next state may arrive in either order.
		var next map[string]any
		gotResult := false
		for next == nil || !gotResult {
			typ, payload := readNext(t, conn)
			switch typ {
			case "answerResult":
				if payload["isCorrect"] != true {
					t.Fatalf("expected correct answer, got %+v", payload)
				}
				gotResult = true
			case "state":
				if payload["state"] != "in_progress" || payload["index"] != state["index"] {
					next = payload
				}
			case "error":
				t.Fatalf("unexpected error %+v", payload)
			}
		}
		state = next
	}

	final := state
	if final["state"] != "finished" {
		t.Fatalf("expected finished, got %v", final["state"])
	}
	stats := final["stats"].(map[string]any)
	if stats["correctCount"].(float64) != 2 || stats["totalMaxScore"].(float64) != 4 {
		t.Fatalf("unexpected final stats %+v", stats)
	}
	results := final["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if _, ok := results[0].(map[string]any)["correctAnswerIndex"]; !ok {
		t.Fatalf("expected correct answer revealed after finish: %+v", results[0])
	}
}

func TestWebSocketServerSideTimeout(t *testing.T) {
	conn, cleanup := dialQuiz(t, app.RunnerConfig{TimeLimit: 3 * time.Millisecond, Tick: time.Millisecond}, "?poolId=general&count=1")
	defer cleanup()

	readUntil(t, conn, "connected")
	final := readState(t, conn, "finished")
	result := final["results"].([]any)[0].(map[string]any)
	if result["selectedAnswerIndex"].(float64) != domain.NoAnswer || result["score"].(float64) != 0 {
		t.Fatalf("expected unanswered timeout, got %+v", result)
	}
}

func TestWebSocketRejectsConfirmBeforeStart(t *testing.T) {
	conn, cleanup := dialQuiz(t, app.DefaultRunnerConfig(), "")
	defer cleanup()

	readUntil(t, conn, "connected")
	if err := conn.WriteJSON(map[string]any{
		"type":    "confirm",
		"payload": map[string]any{"questionId": "q1", "selectedIndex": 0},
	}); err != nil {
		t.Fatalf("write confirm: %v", err)
	}
	payload := readUntil(t, conn, "error")
	if payload["message"] != "quiz not started" {
		t.Fatalf("unexpected error %+v", payload)
	}
}

func dialQuiz(t *testing.T, cfg app.RunnerConfig, query string) (*websocket.Conn, func()) {
	t.Helper()
	store := memory.NewSessionStore()
	pools := memory.NewPoolRepository(memory.NewStaticPoolLoader(samplePools()), time.Minute)
	service := app.NewQuizService(store, pools, cfg, nil)
	wsHandler := NewWSHandler(service, Defaults{PoolID: "general", Count: 2}, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)

	u := "ws" + server.URL[len("http"):] + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		server.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		server.Close()
	}
}

// readUntil skips messages until one of the wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	for i := 0; i < 50; i++ {
		typ, payload := readNext(t, conn)
		if typ == want {
			return payload
		}
		if typ == "error" && want != "error" {
			t.Fatalf("unexpected error message %+v", payload)
		}
	}
	t.Fatalf("no %s message received", want)
	return nil
}

func readState(t *testing.T, conn *websocket.Conn, state string) map[string]any {
	t.Helper()
	for i := 0; i < 200; i++ {
		payload := readUntil(t, conn, "state")
		if payload["state"] == state {
			return payload
		}
	}
	t.Fatalf("state %s never reached", state)
	return nil
}

func readNext(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

func samplePools() map[string]domain.Pool {
	return map[string]domain.Pool{
		"general": {
			ID: "general",
			Questions: []domain.Question{
				{ID: "q1", Category: "math", Prompt: "What is 2 + 2?", Options: []string{"3", "4", "5"}, AnswerIndex: 1},
				{ID: "q2", Category: "math", Prompt: "What is 3 + 3?", Options: []string{"5", "6"}, AnswerIndex: 1},
				{ID: "q3", Category: "geo", Prompt: "Capital of Italy?", Options: []string{"Paris", "Rome"}, AnswerIndex: 1},
			},
		},
	}
}

func TestEmitAfterWriterExitDoesNotBlock(t *testing.T) {
	c := &wsConn{
		sessionID:  "s1",
		send:       make(chan outboundMessage[any]),
		closing:    make(chan struct{}),
		writerDone: make(chan struct{}),
		logger:     zap.NewNop(),
	}
	close(c.writerDone)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 32; i++ {
			c.emitError("quiz not started")
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("emit blocked after the writer exited")
	}
}
