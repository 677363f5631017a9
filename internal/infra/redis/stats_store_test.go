package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"character-quiz-service/internal/domain"
)

func TestStatsStoreUpdateMirrorsLeaderboard(t *testing.T) {
	mr, client := newTestClient(t)
	store := NewStatsStore(client)
	ctx := context.Background()

	if _, err := store.Get(ctx, "u1"); !errors.Is(err, domain.ErrStatsNotFound) {
		t.Fatalf("expected ErrStatsNotFound, got %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, err := store.Update(ctx, "u1", func(st *domain.UserStats) error {
			st.UserID = "u1"
			st.TotalScore += 30
			st.GamesPlayed++
			return nil
		}); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.TotalScore != 60 || got.GamesPlayed != 2 {
		t.Fatalf("unexpected stats %+v", got)
	}
	score, err := mr.ZScore(leaderboardKey, "u1")
	if err != nil {
		t.Fatalf("zscore: %v", err)
	}
	if score != 60 {
		t.Fatalf("expected leaderboard score 60, got %v", score)
	}
}

func TestStatsStoreTopIncludesTiesAtCut(t *testing.T) {
	_, client := newTestClient(t)
	store := NewStatsStore(client)
	ctx := context.Background()
	at := time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC)

	for user, score := range map[string]int{"a": 90, "b": 70, "c": 70, "d": 70, "e": 10} {
		user, score := user, score
		if _, err := store.Update(ctx, user, func(st *domain.UserStats) error {
			st.UserID = user
			st.TotalScore = score
			st.ScoreReachedAt = at
			return nil
		}); err != nil {
			t.Fatalf("update %s: %v", user, err)
		}
	}

	top, err := store.Top(ctx, 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 4 {
		t.Fatalf("expected leader plus three tied users, got %d", len(top))
	}
	for _, st := range top {
		if st.UserID == "e" {
			t.Fatalf("did not expect user below the cut")
		}
		if !st.ScoreReachedAt.Equal(at) {
			t.Fatalf("expected timestamps decoded, got %s", st.ScoreReachedAt)
		}
	}

	empty, err := NewStatsStore(client).Top(ctx, 0)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected nothing for zero limit, got %v %v", empty, err)
	}
}
