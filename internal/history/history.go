// Package history provides the append-only conversation log backing chat turns.
// Entries are returned in insertion order, which is conversational order.
package history

import (
	"context"
	"fmt"

	"github.com/comigor/nazborg-go/internal/config"
)

// Store appends and replays the conversation log.
type Store interface {
	Append(ctx context.Context, msgs ...Message) error
	LoadAll(ctx context.Context) ([]Message, error)
	Close() error
}

// Open builds the backend named by cfg.Backend (sqlite, redis or memory).
func Open(cfg config.HistoryConfig) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return NewSQLiteStore(cfg.Path), nil
	case "redis":
		return NewRedisStore(cfg.RedisAddr, cfg.RedisKey)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}
