package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"character-quiz-service/internal/app"
	"character-quiz-service/internal/domain"
	"character-quiz-service/internal/infra/memory"
	"github.com/gorilla/websocket"
)

type testServer struct {
	*httptest.Server
	progress *app.ProgressService
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()
	questions := memory.NewQuestionRepository(memory.NewStaticBankLoader(sampleBanks()), time.Minute)
	stats := memory.NewStatsStore()
	progress := app.NewProgressService(memory.NewProgressStore(), stats)
	game := app.NewGameService(memory.NewSessionStore(), questions, progress, app.DefaultGameSettings())
	leaderboard := app.NewLeaderboardService(stats, 10)
	auth := NewAuthenticator(secret)

	server := httptest.NewServer(NewRouter(NewWSHandler(game, auth), NewAPIHandler(progress, leaderboard, questions, auth)))
	t.Cleanup(server.Close)
	return &testServer{Server: server, progress: progress}
}

func TestWebSocketGameFlow(t *testing.T) {
	server := newTestServer(t, "")

	u := "ws" + server.URL[len("http"):] + "/ws?characterId=elsa&userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send(t, conn, "start", nil)
	_, session := readNext(conn, t, "session")
	if session["status"] != "active" || session["lives"] != float64(3) {
		t.Fatalf("unexpected session %v", session)
	}

	send(t, conn, "question", nil)
	_, question := readNext(conn, t, "question")
	q, ok := question["question"].(map[string]any)
	if !ok || q["id"] != "q1" {
		t.Fatalf("expected q1, got %v", question)
	}
	if _, leaked := q["correctAnswerIndex"]; leaked {
		t.Fatalf("question leaked its answer: %v", q)
	}

	send(t, conn, "answer", map[string]any{"questionId": "q1", "index": 2, "timeSpentMs": 1500})
	_, result := readNext(conn, t, "answerResult")
	verdict := result["verdict"].(map[string]any)
	if verdict["isCorrect"] != true || verdict["pointsEarned"] != float64(20) {
		t.Fatalf("expected 20 points, got %v", verdict)
	}
	if result["terminable"] != true {
		t.Fatalf("expected terminable after the only question, got %v", result)
	}
	if result["session"].(map[string]any)["status"] != "active" {
		t.Fatalf("expected session to stay active until completed")
	}

	// Resubmitting is rejected and leaves the score alone.
	send(t, conn, "answer", map[string]any{"questionId": "q1", "index": 2})
	_, dup := readNext(conn, t, "error")
	if dup["code"] != "conflict" {
		t.Fatalf("expected conflict, got %v", dup)
	}

	send(t, conn, "complete", nil)
	_, summary := readNext(conn, t, "completed")
	if summary["finalScore"] != float64(20) || summary["experienceGained"] != float64(2) {
		t.Fatalf("unexpected summary %v", summary)
	}

	send(t, conn, "answer", map[string]any{"questionId": "q1", "index": 2})
	_, closed := readNext(conn, t, "error")
	if closed["code"] != "validation" {
		t.Fatalf("expected validation error without a session, got %v", closed)
	}
}

func TestWebSocketRejectsUnknownCharacter(t *testing.T) {
	server := newTestServer(t, "")

	u := "ws" + server.URL[len("http"):] + "/ws?characterId=nobody&userId=u1"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	send(t, conn, "start", nil)
	_, payload := readNext(conn, t, "error")
	if payload["code"] != "not_found" {
		t.Fatalf("expected not_found, got %v", payload)
	}
}

func TestWebSocketRequiresIdentity(t *testing.T) {
	server := newTestServer(t, "")

	u := "ws" + server.URL[len("http"):] + "/ws?characterId=elsa"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", resp)
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%s)", expect, msg.Type, msg.Payload)
	}
	payload := map[string]any{}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return msg.Type, payload
}

func sampleBanks() map[string]domain.QuestionBank {
	return map[string]domain.QuestionBank{
		"elsa": {
			Character: domain.Character{ID: "elsa", Name: "Elsa", Difficulty: domain.DifficultyMedium},
			Questions: []domain.Question{
				{
					ID:                 "q1",
					CharacterID:        "elsa",
					Kind:               domain.KindMultipleChoice,
					Prompt:             "Where does Elsa build her ice palace?",
					Options:            []string{"Arendelle", "Corona", "North Mountain", "Weselton"},
					CorrectAnswerIndex: 2,
					Difficulty:         domain.DifficultyMedium,
				},
			},
		},
	}
}

func TestEmitDropsMessagesAfterWriterStops(t *testing.T) {
	send := make(chan outboundMessage[any], 1)
	writerDone := make(chan struct{})
	close(writerDone)
	c := &wsConn{send: send, writerDone: writerDone}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			c.fail(errNoSession)
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("emit blocked after the writer stopped")
	}
}
