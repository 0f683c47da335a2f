package memory

import (
	"context"
	"sync"

	"millionaire-quiz-engine/internal/domain"
)

// ProgressStore is an in-memory implementation of engine.ProgressStore,
// useful for tests and for running without Redis.
type ProgressStore struct {
	mu         sync.RWMutex
	history    []domain.HistoryEntry
	mistakes   []string
	totalPrize int64
	ownedItems []string
	theme      string
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{}
}

func (s *ProgressStore) History(_ context.Context) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.HistoryEntry(nil), s.history...), nil
}

func (s *ProgressStore) SaveHistory(_ context.Context, entries []domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append([]domain.HistoryEntry(nil), entries...)
	return nil
}

func (s *ProgressStore) Mistakes(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.mistakes...), nil
}

func (s *ProgressStore) SaveMistakes(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mistakes = append([]string(nil), ids...)
	return nil
}

func (s *ProgressStore) TotalPrize(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalPrize, nil
}

func (s *ProgressStore) SaveTotalPrize(_ context.Context, total int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalPrize = total
	return nil
}

func (s *ProgressStore) OwnedItems(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.ownedItems...), nil
}

func (s *ProgressStore) ActiveTheme(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme, nil
}
