package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"character-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches a character's question bank from a backing store.
type BankLoader interface {
	LoadQuestionBank(ctx context.Context, characterID string) (domain.QuestionBank, error)
}

// QuestionRepository caches question banks with TTL to avoid repeated DB hits.
type QuestionRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	rnd   *rand.Rand
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      domain.QuestionBank
	expiresAt time.Time
}

func NewQuestionRepository(loader BankLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (r *QuestionRepository) GetQuestionBank(ctx context.Context, characterID string) (domain.QuestionBank, error) {
	if bank, ok := r.cached(characterID); ok {
		return bank, nil
	}

	result, err, _ := r.sf.Do(characterID, func() (interface{}, error) {
		if bank, ok := r.cached(characterID); ok {
			return bank, nil
		}

		bank, err := r.loader.LoadQuestionBank(ctx, characterID)
		if err != nil {
			return domain.QuestionBank{}, err
		}

		r.mu.Lock()
		r.cache[characterID] = cachedBank{
			bank:      bank,
			expiresAt: r.clock().Add(r.ttlWithJitterLocked()),
		}
		r.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return domain.QuestionBank{}, err
	}
	return result.(domain.QuestionBank), nil
}

// Invalidate drops a cached bank so the next read reloads it.
func (r *QuestionRepository) Invalidate(characterID string) {
	r.mu.Lock()
	delete(r.cache, characterID)
	r.mu.Unlock()
}

func (r *QuestionRepository) cached(characterID string) (domain.QuestionBank, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[characterID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.QuestionBank{}, false
	}
	return entry.bank, true
}

// ttlWithJitterLocked adds up to 10% jitter to spread expirations. Callers hold r.mu.
func (r *QuestionRepository) ttlWithJitterLocked() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticBankLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticBankLoader struct {
	banks map[string]domain.QuestionBank
}

func NewStaticBankLoader(banks map[string]domain.QuestionBank) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadQuestionBank(_ context.Context, characterID string) (domain.QuestionBank, error) {
	if bank, ok := l.banks[characterID]; ok {
		return bank, nil
	}
	return domain.QuestionBank{}, domain.ErrCharacterNotFound
}
