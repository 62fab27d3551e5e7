package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	stockKeyPrefix    = "stock:"
	idempotencyKeyTTL = 24 * time.Hour
)

// RedisAdapter implements CacheRepository. Stock keys are snapshots written
// after committed ledger operations; the database stays the source of truth
// and a stale read here is acceptable for availability queries.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisAdapter) ClearIdempotency(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisAdapter) SetStock(ctx context.Context, itemID string, quantity int) error {
	return r.client.Set(ctx, stockKeyPrefix+itemID, quantity, 0).Err()
}

func (r *RedisAdapter) GetStock(ctx context.Context, itemID string) (int, bool, error) {
	quantity, err := r.client.Get(ctx, stockKeyPrefix+itemID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return quantity, true, nil
}

func (r *RedisAdapter) InvalidateStock(ctx context.Context, itemID string) error {
	return r.client.Del(ctx, stockKeyPrefix+itemID).Err()
}
