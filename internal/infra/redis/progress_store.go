package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"millionaire-quiz-engine/internal/domain"
)

// ProgressStore persists the player's history, mistake set and prize
// balance in Redis. Layout:
//
//	LPUSH {prefix}:history   JSON-encoded entries, newest first, trimmed
//	SADD  {prefix}:mistakes  question IDs
//	SET   {prefix}:prize     integer balance
//
// Each call is independently fallible; the engine swallows failures.
type ProgressStore struct {
	client       *redis.Client
	prefix       string
	historyLimit int
}

func NewProgressStore(client *redis.Client, prefix string, historyLimit int) *ProgressStore {
	if prefix == "" {
		prefix = "quiz:progress"
	}
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &ProgressStore{client: client, prefix: prefix, historyLimit: historyLimit}
}

func (s *ProgressStore) History(ctx context.Context) ([]domain.HistoryEntry, error) {
	raw, err := s.client.LRange(ctx, s.key("history"), 0, int64(s.historyLimit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	entries := make([]domain.HistoryEntry, 0, len(raw))
	for _, item := range raw {
		var entry domain.HistoryEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			// A corrupt entry degrades to being skipped, not a failure.
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *ProgressStore) SaveHistory(ctx context.Context, entries []domain.HistoryEntry) error {
	if len(entries) > s.historyLimit {
		entries = entries[:s.historyLimit]
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key("history"))
	// RPUSH in order keeps index 0 the newest entry.
	for _, entry := range entries {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("encode history entry: %w", err)
		}
		pipe.RPush(ctx, s.key("history"), data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (s *ProgressStore) Mistakes(ctx context.Context) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.key("mistakes")).Result()
	if err != nil {
		return nil, fmt.Errorf("read mistakes: %w", err)
	}
	return ids, nil
}

func (s *ProgressStore) SaveMistakes(ctx context.Context, ids []string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key("mistakes"))
	if len(ids) > 0 {
		members := make([]interface{}, len(ids))
		for i, id := range ids {
			members[i] = id
		}
		pipe.SAdd(ctx, s.key("mistakes"), members...)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save mistakes: %w", err)
	}
	return nil
}

func (s *ProgressStore) TotalPrize(ctx context.Context) (int64, error) {
	raw, err := s.client.Get(ctx, s.key("prize")).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read total prize: %w", err)
	}
	total, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse total prize: %w", err)
	}
	return total, nil
}

func (s *ProgressStore) SaveTotalPrize(ctx context.Context, total int64) error {
	if err := s.client.Set(ctx, s.key("prize"), total, 0).Err(); err != nil {
		return fmt.Errorf("save total prize: %w", err)
	}
	return nil
}

// OwnedItems and ActiveTheme are written by the shop layer; the engine
// only reads them.

func (s *ProgressStore) OwnedItems(ctx context.Context) ([]string, error) {
	items, err := s.client.SMembers(ctx, s.key("items")).Result()
	if err != nil {
		return nil, fmt.Errorf("read owned items: %w", err)
	}
	return items, nil
}

func (s *ProgressStore) ActiveTheme(ctx context.Context) (string, error) {
	theme, err := s.client.Get(ctx, s.key("theme")).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read active theme: %w", err)
	}
	return theme, nil
}

func (s *ProgressStore) key(field string) string {
	return s.prefix + ":" + field
}
