package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"character-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const leaderboardKey = "leaderboard:score"

// StatsStore keeps per-user aggregates as JSON under stats:user:{id} and mirrors
// each total into the leaderboard:score sorted set so Top never scans all users.
type StatsStore struct {
	client *redis.Client
}

func NewStatsStore(client *redis.Client) *StatsStore {
	return &StatsStore{client: client}
}

func (s *StatsStore) Get(ctx context.Context, userID string) (domain.UserStats, error) {
	payload, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.UserStats{}, domain.ErrStatsNotFound
	}
	if err != nil {
		return domain.UserStats{}, err
	}
	return decodeStats(payload)
}

func (s *StatsStore) Update(ctx context.Context, userID string, fn func(*domain.UserStats) error) (domain.UserStats, error) {
	key := s.key(userID)

	for attempt := 0; attempt < maxTxRetries; attempt++ {
		var committed domain.UserStats
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			var stats domain.UserStats
			payload, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				if stats, err = decodeStats(payload); err != nil {
					return err
				}
			}

			if err := fn(&stats); err != nil {
				return err
			}
			encoded, err := json.Marshal(stats)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, encoded, 0)
				pipe.ZAdd(ctx, leaderboardKey, redis.Z{Score: float64(stats.TotalScore), Member: userID})
				return nil
			})
			if err != nil {
				return err
			}
			committed = stats
			return nil
		}, key)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return domain.UserStats{}, err
		}
		return committed, nil
	}
	return domain.UserStats{}, fmt.Errorf("%w: stats for %s", domain.ErrConcurrentUpdate, userID)
}

// Top reads the score of the limit-th user, then every member at or above it,
// so users tied at the cut are all returned for the caller's tiebreak.
func (s *StatsStore) Top(ctx context.Context, limit int) ([]domain.UserStats, error) {
	if limit <= 0 {
		return nil, nil
	}
	head, err := s.client.ZRevRangeWithScores(ctx, leaderboardKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(head) == 0 {
		return []domain.UserStats{}, nil
	}

	boundary := head[len(head)-1].Score
	members, err := s.client.ZRevRangeByScore(ctx, leaderboardKey, &redis.ZRangeBy{
		Min: strconv.FormatFloat(boundary, 'f', -1, 64),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, err
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = s.key(m)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]domain.UserStats, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Sorted set member without a stats record; skip it.
			continue
		}
		stats, err := decodeStats([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("leaderboard member %s: %w", members[i], err)
		}
		out = append(out, stats)
	}
	return out, nil
}

func (s *StatsStore) key(userID string) string {
	return "stats:user:" + userID
}

func decodeStats(payload []byte) (domain.UserStats, error) {
	var stats domain.UserStats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return domain.UserStats{}, fmt.Errorf("decode stats: %w", err)
	}
	return stats, nil
}
