package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// チェックアウト結果のリプレイ用。値はJSONのまま持つ
type ReplayCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReplayCache(client *redis.Client, ttl time.Duration) *ReplayCache {
	return &ReplayCache{client: client, ttl: ttl}
}

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// 無ければ (nil, false, nil)
func (c *ReplayCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get failed: %w", err)
	}
	return data, true, nil
}

func (c *ReplayCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (c *ReplayCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
