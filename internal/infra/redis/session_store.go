package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"character-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// maxTxRetries bounds optimistic retries when a watched key changes under us.
const maxTxRetries = 5

// SessionStore is a Redis implementation of app.SessionRepository so sessions
// survive restarts and can be served by any instance.
//   - session:{id} holds the JSON snapshot.
//   - session:active:{user}:{character} points at the Active session for the pair.
//
// Updates run under WATCH/MULTI; a lost race is retried from a fresh read.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) GetOrCreateActive(ctx context.Context, userID, characterID string, create func() domain.Session) (domain.Session, bool, error) {
	activeKey := s.activeKey(userID, characterID)

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		id, err := s.client.Get(ctx, activeKey).Result()
		switch {
		case err == nil:
			session, err := s.Get(ctx, id)
			if err == nil && session.Status == domain.StatusActive {
				return session, false, nil
			}
			if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
				return domain.Session{}, false, err
			}
			// The pointer outlived its session (expiry or a terminal write);
			// drop it only if nobody replaced it meanwhile.
			if err := s.client.Watch(ctx, func(tx *redis.Tx) error {
				current, err := tx.Get(ctx, activeKey).Result()
				if err != nil || current != id {
					return err
				}
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, activeKey)
					return nil
				})
				return err
			}, activeKey); err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, redis.TxFailedErr) {
				return domain.Session{}, false, err
			}
			continue
		case !errors.Is(err, redis.Nil):
			return domain.Session{}, false, err
		}

		// The payload goes in before the pointer so a reader that finds the
		// pointer always finds the session behind it.
		session := create()
		payload, err := json.Marshal(session)
		if err != nil {
			return domain.Session{}, false, err
		}
		if err := s.client.Set(ctx, s.key(session.ID), payload, s.ttl).Err(); err != nil {
			return domain.Session{}, false, err
		}
		claimed, err := s.client.SetNX(ctx, activeKey, session.ID, s.ttl).Result()
		if err != nil || !claimed {
			s.client.Del(ctx, s.key(session.ID))
		}
		if err != nil {
			return domain.Session{}, false, err
		}
		if !claimed {
			continue
		}
		return session, true, nil
	}
	return domain.Session{}, false, domain.ErrConcurrentUpdate
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	payload, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, err
	}
	return decodeSession(payload)
}

// Update applies fn under WATCH so concurrent writers cannot interleave.
func (s *SessionStore) Update(ctx context.Context, sessionID string, fn func(*domain.Session) error) (domain.Session, error) {
	key := s.key(sessionID)

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		var committed domain.Session
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			payload, err := tx.Get(ctx, key).Bytes()
			if errors.Is(err, redis.Nil) {
				return domain.ErrSessionNotFound
			}
			if err != nil {
				return err
			}
			session, err := decodeSession(payload)
			if err != nil {
				return err
			}
			if err := fn(&session); err != nil {
				return err
			}
			session.Version++
			encoded, err := json.Marshal(session)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, redis.KeepTTL)
				if session.Status.Terminal() {
					pipe.Del(ctx, s.activeKey(session.UserID, session.CharacterID))
				}
				return nil
			})
			if err != nil {
				return err
			}
			committed = session
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.Session{}, err
		}
		return committed, nil
	}
	return domain.Session{}, fmt.Errorf("%w: session %s", domain.ErrConcurrentUpdate, sessionID)
}

func (s *SessionStore) key(sessionID string) string {
	return "session:" + sessionID
}

func (s *SessionStore) activeKey(userID, characterID string) string {
	return "session:active:" + userID + ":" + characterID
}

func decodeSession(payload []byte) (domain.Session, error) {
	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}
