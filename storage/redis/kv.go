package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/manjushapaul/Crypto-sub001/lib/errs"
	"github.com/redis/go-redis/v9"
)

// KV stores each key as a plain redis string without expiry.
type KV struct {
	client *redis.Client
}

func NewKV(client *redis.Client) *KV {
	return &KV{client: client}
}

func (s *KV) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", errs.ErrNotFound
		}
		return "", fmt.Errorf("storage.redis.KV.Get: %w", err)
	}
	return value, nil
}

func (s *KV) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("storage.redis.KV.Set: %w", err)
	}
	return nil
}

func (s *KV) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("storage.redis.KV.Delete: %w", err)
	}
	return nil
}
