package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"character-quiz-service/internal/domain"
)

func newSession(id, userID, characterID string) func() domain.Session {
	return func() domain.Session {
		return domain.Session{
			ID:             id,
			UserID:         userID,
			CharacterID:    characterID,
			Status:         domain.StatusActive,
			QuestionIDs:    []string{"q1", "q2"},
			TotalQuestions: 2,
			Lives:          3,
			MaxLives:       3,
			TimeLimit:      time.Minute,
			StartedAt:      time.Now(),
		}
	}
}

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	session, created, err := store.GetOrCreateActive(ctx, "u1", "elsa", newSession("s1", "u1", "elsa"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created || session.ID != "s1" {
		t.Fatalf("expected new session s1, got %s created=%v", session.ID, created)
	}

	again, created, err := store.GetOrCreateActive(ctx, "u1", "elsa", newSession("s2", "u1", "elsa"))
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if created || again.ID != "s1" {
		t.Fatalf("expected existing s1, got %s created=%v", again.ID, created)
	}

	if _, err := store.Update(ctx, "s1", func(s *domain.Session) error {
		s.Status = domain.StatusCompleted
		return nil
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	next, created, err := store.GetOrCreateActive(ctx, "u1", "elsa", newSession("s3", "u1", "elsa"))
	if err != nil {
		t.Fatalf("create after complete: %v", err)
	}
	if !created || next.ID != "s3" {
		t.Fatalf("expected new session after terminal, got %s created=%v", next.ID, created)
	}

	old, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get completed: %v", err)
	}
	if old.Status != domain.StatusCompleted {
		t.Fatalf("expected completed session kept, got %s", old.Status)
	}
}

func TestSessionStoreGetMissing(t *testing.T) {
	store := NewSessionStore()
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	_, err := store.Update(context.Background(), "missing", func(*domain.Session) error { return nil })
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound on update, got %v", err)
	}
}

func TestSessionStoreUpdateRollsBackOnError(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	if _, _, err := store.GetOrCreateActive(ctx, "u1", "elsa", newSession("s1", "u1", "elsa")); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	_, err := store.Update(ctx, "s1", func(s *domain.Session) error {
		s.Score = 100
		s.Answers = append(s.Answers, domain.AnswerRecord{QuestionID: "q1"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != 0 || len(got.Answers) != 0 || got.Version != 0 {
		t.Fatalf("expected untouched session, got score=%d answers=%d version=%d", got.Score, len(got.Answers), got.Version)
	}
}

func TestSessionStoreSnapshotsAreIsolated(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	session, _, err := store.GetOrCreateActive(ctx, "u1", "elsa", newSession("s1", "u1", "elsa"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	session.QuestionIDs[0] = "tampered"

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.QuestionIDs[0] != "q1" {
		t.Fatalf("expected stored plan untouched, got %v", got.QuestionIDs)
	}
}

func TestSessionStoreSerializesUpdates(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	if _, _, err := store.GetOrCreateActive(ctx, "u1", "elsa", newSession("s1", "u1", "elsa")); err != nil {
		t.Fatalf("create: %v", err)
	}

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Update(ctx, "s1", func(s *domain.Session) error {
				s.Score++
				return nil
			})
			if err != nil {
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Score != writers || got.Version != writers {
		t.Fatalf("expected %d serialized updates, got score=%d version=%d", writers, got.Score, got.Version)
	}
}

func TestSessionStoreSingleActivePerPair(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[string]struct{}{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			s, ok, err := store.GetOrCreateActive(ctx, "u1", "elsa", newSession(id, "u1", "elsa"))
			if err != nil {
				t.Errorf("get or create: %v", err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if ok {
				created++
			}
			ids[s.ID] = struct{}{}
		}(i)
	}
	wg.Wait()

	if created != 1 || len(ids) != 1 {
		t.Fatalf("expected one active session, created=%d distinct=%d", created, len(ids))
	}
}
