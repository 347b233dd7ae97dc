package draft

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ariefcatur/bracelet-orders/internal/orders"
)

// Memory holds drafts for a single process. It backs tests and runs without Redis.
type Memory struct {
	mu      sync.Mutex
	entries map[string][]byte
	logger  *zap.Logger
}

func NewMemory(logger *zap.Logger) *Memory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{entries: make(map[string][]byte), logger: logger}
}

func (m *Memory) Open(key string) *MemoryStore {
	if key == "" {
		key = DefaultKey
	}
	return &MemoryStore{m: m, key: key}
}

func (m *Memory) Factory(key string) Factory {
	if key == "" {
		key = DefaultKey
	}
	return func(clientID string) Store {
		return m.Open(clientID + ":" + key)
	}
}

// Put stores raw bytes under key, bypassing encoding.
func (m *Memory) Put(key string, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
}

func (m *Memory) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

type MemoryStore struct {
	m   *Memory
	key string
}

func (s *MemoryStore) Load(_ context.Context) (orders.DraftFields, bool) {
	s.m.mu.Lock()
	b, ok := s.m.entries[s.key]
	s.m.mu.Unlock()
	if !ok {
		return orders.DraftFields{}, false
	}
	d, err := decode(b)
	if err != nil {
		s.m.logger.Warn("draft unreadable, starting empty", zap.String("key", s.key), zap.Error(err))
		return orders.DraftFields{}, false
	}
	return d, !d.IsZero()
}

func (s *MemoryStore) Save(_ context.Context, d orders.DraftFields) error {
	b, err := encode(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	s.m.Put(s.key, b)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.entries, s.key)
	return nil
}

var _ Store = (*MemoryStore)(nil)
