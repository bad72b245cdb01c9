package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

var ErrMiss = errors.New("cache miss")

type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	ScanKeys(ctx context.Context, pattern string) ([]string, error)
}

// BedStatsKey 收容所床位统计缓存 key
func BedStatsKey(shelterID int64) string {
	return fmt.Sprintf("nest:shelter:%d:bed-stats", shelterID)
}

// BedStatsPattern 所有床位统计缓存
const BedStatsPattern = "nest:shelter:*:bed-stats"

type RedisKV struct {
	c *redis.Client
}

func NewRedisKV(c *redis.Client) *RedisKV { return &RedisKV{c: c} }

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.c.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrMiss
		}
		return "", err
	}
	return val, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.c.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.c.Del(ctx, keys...).Err()
}

func (r *RedisKV) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		k, next, err := r.c.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, k...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

// NopKV Redis 未配置时使用：永远 miss，写入丢弃
type NopKV struct{}

func (NopKV) Get(context.Context, string) (string, error)              { return "", ErrMiss }
func (NopKV) Set(context.Context, string, string, time.Duration) error { return nil }
func (NopKV) Delete(context.Context, ...string) error                  { return nil }
func (NopKV) ScanKeys(context.Context, string) ([]string, error)       { return nil, nil }
