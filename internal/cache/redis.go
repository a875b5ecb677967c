package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/ember/internal/config"
)

const (
	likeCountTTL     = time.Hour
	phoneCodeTTL     = 10 * time.Minute
	maxPhoneAttempts = 5
)

// ErrCodeMismatch is returned when a phone verification code does not match.
var ErrCodeMismatch = errors.New("verification code mismatch")

type RedisCache struct {
	Client *redis.Client
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr: cfg.Redis.Addr,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, key string) error {
	return c.Client.Del(ctx, key).Err()
}

func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.Client.Incr(ctx, key).Result()
}

// IncrWithExpire increments key and sets ttl when the key is new (fixed window).
func (c *RedisCache) IncrWithExpire(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := c.Client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// TTL returns the remaining lifetime of key.
func (c *RedisCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	return c.Client.TTL(ctx, key).Result()
}

// KeyForLikeCount generates Redis key for a user's received like count
func (c *RedisCache) KeyForLikeCount(userID string) string {
	return fmt.Sprintf("likes:received:count:%s", userID)
}

func (c *RedisCache) SetLikeCount(ctx context.Context, userID string, count int64) error {
	// Always refresh TTL when updating
	return c.Client.Set(ctx, c.KeyForLikeCount(userID), count, likeCountTTL).Err()
}

// GetLikeCount returns the cached count and whether it was present.
func (c *RedisCache) GetLikeCount(ctx context.Context, userID string) (int64, bool, error) {
	key := c.KeyForLikeCount(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, likeCountTTL).Err()
	return n, true, nil
}

// InvalidateLikeCount drops the cached count after a like is added or removed.
func (c *RedisCache) InvalidateLikeCount(ctx context.Context, userID string) error {
	return c.Del(ctx, c.KeyForLikeCount(userID))
}

func phoneCodeKey(userID string) string     { return "verify:phone:" + userID }
func phoneAttemptsKey(userID string) string { return "verify:phone:attempts:" + userID }

// SetPhoneCode stores a pending verification code for phone, replacing any previous one.
func (c *RedisCache) SetPhoneCode(ctx context.Context, userID, phone, code string) error {
	pipe := c.Client.TxPipeline()
	pipe.Set(ctx, phoneCodeKey(userID), phone+":"+code, phoneCodeTTL)
	pipe.Del(ctx, phoneAttemptsKey(userID))
	_, err := pipe.Exec(ctx)
	return err
}

// CheckPhoneCode verifies and consumes a code. Too many attempts invalidate it.
func (c *RedisCache) CheckPhoneCode(ctx context.Context, userID, phone, code string) error {
	attempts, err := c.IncrWithExpire(ctx, phoneAttemptsKey(userID), phoneCodeTTL)
	if err != nil {
		return err
	}
	if attempts > maxPhoneAttempts {
		_ = c.Del(ctx, phoneCodeKey(userID))
		return ErrCodeMismatch
	}

	stored, err := c.Get(ctx, phoneCodeKey(userID))
	if errors.Is(err, redis.Nil) {
		return ErrCodeMismatch
	} else if err != nil {
		return err
	}
	if stored != phone+":"+code {
		return ErrCodeMismatch
	}
	return c.Client.Del(ctx, phoneCodeKey(userID), phoneAttemptsKey(userID)).Err()
}
