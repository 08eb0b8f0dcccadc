package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/guild-bag/internal/core/domain"
	bagerrors "github.com/rl1809/guild-bag/internal/errors"
)

const (
	idempotencyKeyPrefix = "idempotency:"
	idempotencyKeyTTL    = 24 * time.Hour
)

// RedisAdapter stores the state document under a single key and tracks seen
// request IDs for the dispatcher.
type RedisAdapter struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, key string) *RedisAdapter {
	return &RedisAdapter{client: client, key: key, ttl: idempotencyKeyTTL}
}

// WithIdempotencyTTL overrides how long request IDs are remembered.
func (r *RedisAdapter) WithIdempotencyTTL(ttl time.Duration) *RedisAdapter {
	if ttl > 0 {
		r.ttl = ttl
	}
	return r
}

func (r *RedisAdapter) Load(ctx context.Context) (domain.State, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.NewState(), nil
	}
	if err != nil {
		return domain.State{}, bagerrors.Storage("load", err).WithDetail("key", r.key)
	}

	s, err := decodeState(data)
	if err != nil {
		return domain.State{}, bagerrors.Storage("load", err).WithDetail("key", r.key)
	}
	return s, nil
}

func (r *RedisAdapter) Save(ctx context.Context, s domain.State) error {
	data, err := encodeState(s)
	if err != nil {
		return bagerrors.Storage("save", err)
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return bagerrors.Storage("save", err).WithDetail("key", r.key)
	}
	return nil
}

// idempotencyKey scopes request IDs under the state key, so bots sharing a
// Redis instance never see each other's IDs.
func (r *RedisAdapter) idempotencyKey(key string) string {
	return r.key + ":" + idempotencyKeyPrefix + key
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.idempotencyKey(key), 1, r.ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}
