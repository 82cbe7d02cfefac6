package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/redis/go-redis/v9"

	errx "github.com/workmate-core-poc/server/internal/core/error"
	"github.com/workmate-core-poc/server/internal/agent/model"
)

// RedisResponseCache stores finished answers keyed by a fingerprint of the
// inbound message set. Redis handles expiry and concurrent access; entries
// for different conversations never collide because the fingerprint covers
// the full message content.
type RedisResponseCache struct {
	rdb redis.Cmdable
}

func NewRedisResponseCache(rdb redis.Cmdable) *RedisResponseCache {
	return &RedisResponseCache{rdb: rdb}
}

func (c *RedisResponseCache) cacheKey(fingerprint string) string {
	return fmt.Sprintf("response_cache:%s", fingerprint)
}

func (c *RedisResponseCache) Get(ctx context.Context, fingerprint string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, c.cacheKey(fingerprint)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, errx.WrapRedis(err)
	}
	return v, true, nil
}

func (c *RedisResponseCache) Set(ctx context.Context, fingerprint, answer string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if err := c.rdb.Set(ctx, c.cacheKey(fingerprint), answer, ttl).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

var _ model.ResponseCache = (*RedisResponseCache)(nil)

// Fingerprint hashes the inbound message set into a stable cache key: role
// and content of every message, in order.
func Fingerprint(msgs []*schema.Message) string {
	h := sha256.New()
	for _, m := range msgs {
		if m == nil {
			continue
		}
		h.Write([]byte(m.Role))
		h.Write([]byte{0})
		h.Write([]byte(m.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
