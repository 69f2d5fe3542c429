package history

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps the log in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	messages []Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(_ context.Context, msgs ...Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		m.ID = int64(len(s.messages) + 1)
		s.messages = append(s.messages, m)
	}
	return nil
}

func (s *MemoryStore) LoadAll(_ context.Context) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
