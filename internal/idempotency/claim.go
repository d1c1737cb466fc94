// Package idempotency records one-time claims so that a side effect keyed by
// an identifier runs at most once, across reconnects and gateway replicas.
package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Memory keeps claims in process. Expired claims are evicted lazily.
type Memory struct {
	mu    sync.Mutex
	items map[string]time.Time
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		items: make(map[string]time.Time),
		now:   time.Now,
	}
}

// Claim reports whether the caller is the first to claim key within ttl.
func (m *Memory) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if exp, ok := m.items[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.items[key] = now.Add(ttl)
	return true, nil
}

// Release drops a claim.
func (m *Memory) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}

// Redis keeps claims in Redis with SET NX, shared by every gateway replica.
type Redis struct {
	client *redis.Client
	prefix string
}

// Dial connects to url (redis://[:password@]host:port/db) and pings it.
func Dial(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedis(client), nil
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, prefix: "interview:claim:"}
}

func (r *Redis) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

func (r *Redis) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
