package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisPersister stores the encoded conversation under a single Redis
// string key with no expiry.
type RedisPersister struct {
	client *redis.Client
	key    string
}

// NewRedisPersister connects to addr. The conversation lives at
// "scout:conversation:<key>".
func NewRedisPersister(addr, password string, db int, key string) *RedisPersister {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisPersister{client: rdb, key: fmt.Sprintf("scout:conversation:%s", key)}
}

// Load fetches the conversation, or ErrNotFound when the key is absent.
func (p *RedisPersister) Load(ctx context.Context) ([]byte, error) {
	val, err := p.client.Get(ctx, p.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", p.key, err)
	}
	return val, nil
}

// Save overwrites the key with data.
func (p *RedisPersister) Save(ctx context.Context, data []byte) error {
	if err := p.client.Set(ctx, p.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", p.key, err)
	}
	return nil
}

// Ping checks that the server is reachable.
func (p *RedisPersister) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the connection pool.
func (p *RedisPersister) Close() error {
	return p.client.Close()
}

// Describe returns the Redis address and key.
func (p *RedisPersister) Describe() string {
	return fmt.Sprintf("redis:%s/%s", p.client.Options().Addr, p.key)
}
