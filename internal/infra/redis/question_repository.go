package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"character-quiz-service/internal/domain"
	"character-quiz-service/internal/infra/memory"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// QuestionRepository caches question banks in Redis and falls back to a loader on cache miss.
// Banks are stored as JSON under bank:{characterID} so every instance shares one copy.
type QuestionRepository struct {
	client *redis.Client
	loader memory.BankLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader memory.BankLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestionBank(ctx context.Context, characterID string) (domain.QuestionBank, error) {
	if bank, ok := r.cached(ctx, characterID); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(characterID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if bank, ok := r.cached(ctx, characterID); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadQuestionBank(ctx, characterID)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		payload, err := json.Marshal(bank)
		if err != nil {
			return domain.QuestionBank{}, err
		}
		if err := r.client.Set(ctx, r.key(characterID), payload, r.ttlWithJitter()).Err(); err != nil {
			log.Printf("cache question bank %s: %v", characterID, err)
		}
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

// Invalidate drops the shared cached copy of a bank.
func (r *QuestionRepository) Invalidate(ctx context.Context, characterID string) error {
	return r.client.Del(ctx, r.key(characterID)).Err()
}

func (r *QuestionRepository) cached(ctx context.Context, characterID string) (domain.QuestionBank, bool) {
	payload, err := r.client.Get(ctx, r.key(characterID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("read cached question bank %s: %v", characterID, err)
		}
		return domain.QuestionBank{}, false
	}
	var bank domain.QuestionBank
	if err := json.Unmarshal(payload, &bank); err != nil {
		log.Printf("decode cached question bank %s: %v", characterID, err)
		return domain.QuestionBank{}, false
	}
	return bank, true
}

func (r *QuestionRepository) key(characterID string) string {
	return "bank:" + characterID
}

// ttlWithJitter adds up to 10% jitter; zero means no expiry.
func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
