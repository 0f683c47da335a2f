package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"millionaire-quiz-engine/internal/bank"
	"millionaire-quiz-engine/internal/domain"
)

// RecordLoader fetches a dataset's raw question rows from a backing
// source (CSV file, Postgres, etc).
type RecordLoader interface {
	LoadRecords(ctx context.Context, datasetID string) ([]bank.Record, error)
}

// BankRepository caches loaded banks with TTL to avoid re-reading and
// re-normalizing the dataset on every session start.
type BankRepository struct {
	loader RecordLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      *bank.Bank
	expiresAt time.Time
}

func NewBankRepository(loader RecordLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, datasetID string) (*bank.Bank, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[datasetID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.bank, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(datasetID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[datasetID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.bank, nil
		}
		r.mu.RUnlock()

		records, err := r.loader.LoadRecords(ctx, datasetID)
		if err != nil {
			return nil, err
		}
		b, err := bank.Load(records)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.cache[datasetID] = cachedBank{
			bank:      b,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*bank.Bank), nil
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticRecordLoader serves datasets from an in-memory map (tests/demos).
type StaticRecordLoader struct {
	datasets map[string][]bank.Record
}

func NewStaticRecordLoader(datasets map[string][]bank.Record) *StaticRecordLoader {
	return &StaticRecordLoader{datasets: datasets}
}

func (l *StaticRecordLoader) LoadRecords(_ context.Context, datasetID string) ([]bank.Record, error) {
	if records, ok := l.datasets[datasetID]; ok {
		return records, nil
	}
	return nil, domain.ErrDatasetNotFound
}
