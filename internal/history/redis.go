package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the log as a redis list of JSON-encoded messages.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects to addr and uses key as the list name.
func NewRedisStore(addr, key string) (*RedisStore, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("history redis addr is required")
	}
	if key == "" {
		key = "nazborg:conversations"
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: client, key: key}, nil
}

// Append pushes msgs to the tail of the list in one round trip.
func (s *RedisStore) Append(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}
	values := make([]any, 0, len(msgs))
	for _, m := range msgs {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		values = append(values, raw)
	}
	return s.client.RPush(ctx, s.key, values...).Err()
}

// LoadAll reads the full list. Undecodable entries are skipped.
func (s *RedisStore) LoadAll(ctx context.Context) ([]Message, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(raw))
	for i, item := range raw {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			continue
		}
		m.ID = int64(i + 1)
		out = append(out, m)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
