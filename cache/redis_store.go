package cache

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

// RedisStore keeps cache records as plain redis strings. Expiration of zero
// means the record lives until it is replaced or cleared.
type RedisStore struct {
	client     redis.UniversalClient
	prefix     string
	expiration time.Duration
}

func NewRedisStore(client redis.UniversalClient, prefix string, expiration time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, expiration: expiration}
}

func (s *RedisStore) key(key string) string {
	return s.prefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.key(key), value, s.expiration).Err(); err != nil {
		return errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	return nil
}
