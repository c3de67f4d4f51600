// Package redisstore provides a Redis-backed implementation of the keyed
// store port, for setups where session state should outlive the device.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ewilliams-labs/resonate/internal/core/ports"
)

// Adapter implements the keyed store port on a Redis client.
type Adapter struct {
	client *redis.Client
}

// compile-time interface assertion
var _ ports.KeyValueStore = (*Adapter)(nil)

// NewAdapter connects to Redis and verifies the connection.
func NewAdapter(addr string, db int) (*Adapter, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis adapter: ping: %w", err)
	}
	return &Adapter{client: client}, nil
}

// Name identifies the backend in logs.
func (a *Adapter) Name() string { return "redis" }

func (a *Adapter) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := a.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ports.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis adapter: get %q: %w", key, err)
	}
	return val, nil
}

func (a *Adapter) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := a.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis adapter: set %q: %w", key, err)
	}
	return nil
}

func (a *Adapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis adapter: delete %q: %w", key, err)
	}
	return nil
}

func (a *Adapter) Close() error {
	return a.client.Close()
}
