package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const processedKeyPrefix = "mindly:wa:processed:"

// RedisDeduper records message ids with SETNX so every replica sees the same history.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = processedTTL
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

// NewRedisClient dials and pings addr.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("pinging redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func (d *RedisDeduper) MarkProcessed(ctx context.Context, messageID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, processedKeyPrefix+messageID, time.Now().Unix(), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", messageID, err)
	}
	return ok, nil
}
