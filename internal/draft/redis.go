package draft

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ariefcatur/bracelet-orders/internal/orders"
	"github.com/ariefcatur/bracelet-orders/internal/redisx"
)

type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisStore keeps the draft under key. A zero ttl keeps it until cleared.
func NewRedisStore(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{client: client, key: key, ttl: ttl, logger: logger}
}

// RedisFactory namespaces the fixed draft key per client.
func RedisFactory(client *redis.Client, key string, ttl time.Duration, logger *zap.Logger) Factory {
	if key == "" {
		key = DefaultKey
	}
	return func(clientID string) Store {
		return NewRedisStore(client, fmt.Sprintf(redisx.KeyDraft, clientID, key), ttl, logger)
	}
}

func (s *RedisStore) Load(ctx context.Context) (orders.DraftFields, bool) {
	b, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return orders.DraftFields{}, false
	}
	if err != nil {
		s.logger.Warn("draft load failed, starting empty", zap.String("key", s.key), zap.Error(err))
		return orders.DraftFields{}, false
	}
	d, err := decode(b)
	if err != nil {
		s.logger.Warn("draft unreadable, starting empty", zap.String("key", s.key), zap.Error(err))
		return orders.DraftFields{}, false
	}
	return d, !d.IsZero()
}

func (s *RedisStore) Save(ctx context.Context, d orders.DraftFields) error {
	b, err := encode(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.client.Set(ctx, s.key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft %s: %w", s.key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear draft %s: %w", s.key, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
