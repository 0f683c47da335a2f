package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"millionaire-quiz-engine/internal/bank"
	"millionaire-quiz-engine/internal/domain"
)

// RecordLoader fetches a dataset's raw question rows from a backing
// source (CSV file, Postgres, etc).
type RecordLoader interface {
	LoadRecords(ctx context.Context, datasetID string) ([]bank.Record, error)
}

// BankRepository caches a dataset's normalized questions in Redis
// (JSON blob per dataset) and falls back to the loader on cache miss:
//
//	SET quiz:dataset:{id}:questions {json} EX ttl
type BankRepository struct {
	client *redis.Client
	loader RecordLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader RecordLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, datasetID string) (*bank.Bank, error) {
	key := r.questionsKey(datasetID)

	if b, ok := r.fromCache(ctx, key); ok {
		return b, nil
	}

	result, err, _ := r.sf.Do(datasetID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if b, ok := r.fromCache(ctx, key); ok {
			return b, nil
		}

		records, err := r.loader.LoadRecords(ctx, datasetID)
		if err != nil {
			return nil, err
		}
		b, err := bank.Load(records)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(b.All()); err == nil {
			// Cache fill is best-effort; a miss next time just reloads.
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*bank.Bank), nil
}

func (r *BankRepository) fromCache(ctx context.Context, key string) (*bank.Bank, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, false
	}
	records := make([]bank.Record, 0, len(questions))
	for _, q := range questions {
		records = append(records, bank.Record{
			ID:            q.ID,
			Unit:          q.Unit,
			Text:          q.Text,
			CorrectAnswer: q.CorrectAnswer,
			Image:         q.Image,
			Explanation:   q.Explanation,
			Columns:       6,
		})
	}
	b, err := bank.Load(records)
	if err != nil {
		return nil, false
	}
	return b, true
}

func (r *BankRepository) questionsKey(datasetID string) string {
	return "quiz:dataset:" + datasetID + ":questions"
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
