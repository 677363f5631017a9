package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"character-quiz-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

func doJSON(t *testing.T, method, url, token, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("decode %s %s: %v", method, url, err)
	}
	return resp, raw
}

func TestLevelEndpoints(t *testing.T) {
	server := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/characters/elsa/levels?userId=u1", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("levels: status %d %s", resp.StatusCode, body)
	}
	var levels []struct {
		Level      int  `json:"level"`
		IsUnlocked bool `json:"isUnlocked"`
	}
	if err := json.Unmarshal(body, &levels); err != nil {
		t.Fatalf("decode levels: %v", err)
	}
	if len(levels) != 4 || !levels[0].IsUnlocked || levels[1].IsUnlocked {
		t.Fatalf("expected default template, got %+v", levels)
	}

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/characters/elsa/select?userId=u1", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("select: status %d %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/characters/elsa/levels/1?userId=u1", "", `{"score":50,"completed":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete level: status %d %s", resp.StatusCode, body)
	}
	var progress struct {
		CurrentCharacter string `json:"currentCharacter"`
		CurrentLevel     int    `json:"currentLevel"`
		TotalScore       int    `json:"totalScore"`
		Characters       []struct {
			Name   string `json:"name"`
			Levels []struct {
				IsUnlocked bool `json:"isUnlocked"`
				BestScore  int  `json:"bestScore"`
			} `json:"levels"`
		} `json:"characters"`
	}
	if err := json.Unmarshal(body, &progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if progress.CurrentCharacter != "elsa" || progress.CurrentLevel != 2 || progress.TotalScore != 50 {
		t.Fatalf("unexpected progress %+v", progress)
	}
	if progress.Characters[0].Name != "Elsa" || !progress.Characters[0].Levels[1].IsUnlocked {
		t.Fatalf("expected level 2 unlocked, got %+v", progress.Characters[0])
	}

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/characters/elsa/levels/5?userId=u1", "", `{"score":10,"completed":true}`)
	if resp.StatusCode != http.StatusUnprocessableEntity || !strings.Contains(string(body), `"validation"`) {
		t.Fatalf("expected validation error for level 5, got %d %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/characters/nobody/select?userId=u1", "", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown character, got %d %s", resp.StatusCode, body)
	}
}

func TestStatsAndLeaderboardEndpoints(t *testing.T) {
	server := newTestServer(t, "")
	ctx := context.Background()
	for user, score := range map[string]int{"u1": 40, "u2": 90} {
		if _, err := server.progress.RecordCompletion(ctx, domainEvent(user, score)); err != nil {
			t.Fatalf("record %s: %v", user, err)
		}
	}

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/stats?userId=u3", "", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"totalScore":0`) {
		t.Fatalf("expected zeroed stats, got %d %s", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/leaderboard?limit=5", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("leaderboard: status %d %s", resp.StatusCode, body)
	}
	var entries []struct {
		Rank   int    `json:"rank"`
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		t.Fatalf("decode leaderboard: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != "u2" || entries[1].Rank != 2 {
		t.Fatalf("unexpected leaderboard %+v", entries)
	}

	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/leaderboard?limit=abc", "", "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for bad limit, got %d", resp.StatusCode)
	}
}

func TestBearerTokenIdentity(t *testing.T) {
	const secret = "test-secret"
	server := newTestServer(t, secret)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/progress", token, "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"userId":"u42"`) {
		t.Fatalf("expected progress for token subject, got %d %s", resp.StatusCode, body)
	}

	// The query parameter is ignored once tokens are required.
	resp, body = doJSON(t, http.MethodGet, server.URL+"/api/progress?userId=u1", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d %s", resp.StatusCode, body)
	}

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "u42"}).SignedString([]byte("other"))
	if err != nil {
		t.Fatalf("sign forged: %v", err)
	}
	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/progress", forged, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad signature, got %d", resp.StatusCode)
	}
}

func domainEvent(userID string, score int) domain.CompletionEvent {
	return domain.CompletionEvent{
		UserID:           userID,
		CharacterID:      "elsa",
		Score:            score,
		ExperienceGained: score / 10,
		CompletedAt:      time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC),
	}
}
