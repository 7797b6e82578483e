package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "rvk"

// ErrUnavailable wraps transport failures from the backing store.
var ErrUnavailable = fmt.Errorf("ledger: backend unavailable")

// RedisStore keeps one key per revoked jti, expiring with the token it
// revokes, plus a sorted-set index scored by expiry that the sweep drains.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore returns a RedisStore on the given client. An empty prefix
// selects the default "rvk" namespace.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{redis: client, prefix: prefix}
}

func (s *RedisStore) jtiKey(jti string) string {
	return s.prefix + ":jti:" + jti
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":index"
}

// Insert records a revoked jti until expiresAt. Duplicate inserts for the
// same jti are a no-op, so concurrent double-logout never faults. An already
// expired entry is skipped: the originating token is unusable anyway.
func (s *RedisStore) Insert(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, s.jtiKey(jti), userID, ttl)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{Score: float64(expiresAt.Unix()), Member: jti})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Contains reports whether the jti has been revoked.
func (s *RedisStore) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n > 0, nil
}

// SweepExpired deletes every entry whose expiry is at or before now and
// returns how many were removed. Safe to skip or delay: the per-jti keys
// expire on their own and verification re-checks token expiry independently.
func (s *RedisStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	cutoff := fmt.Sprintf("%d", now.Unix())

	expired, err := s.redis.ZRangeByScore(ctx, s.indexKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: cutoff,
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	keys := make([]string, 0, len(expired))
	for _, jti := range expired {
		keys = append(keys, s.jtiKey(jti))
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		pipe.ZRemRangeByScore(ctx, s.indexKey(), "-inf", cutoff)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return int64(len(expired)), nil
}
