package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every document key written by Redis.
const KeyPrefix = "coge:"

// Redis stores a document under a single key, letting several machines
// share one learned state. Writes carry no expiry.
type Redis[T any] struct {
	client *redis.Client
	key    string
	empty  Empty[T]
}

// NewRedis creates a document stored at KeyPrefix+name.
func NewRedis[T any](client *redis.Client, name string, empty Empty[T]) *Redis[T] {
	return &Redis[T]{client: client, key: KeyPrefix + name, empty: empty}
}

// Dial connects to a Redis server and verifies the connection.
//
// Parameters:
//   - addr: server address (e.g., "localhost:6379")
//   - password: empty string for no auth
//   - db: database number, >= 0
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if db < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Key returns the Redis key the document lives under.
func (r *Redis[T]) Key() string {
	return r.key
}

// Load reads the document. A missing key yields empty().
func (r *Redis[T]) Load(ctx context.Context) (T, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return r.empty(), nil
		}
		var zero T
		return zero, fmt.Errorf("failed to get %s from redis: %w", r.key, err)
	}
	return decode(data, r.empty)
}

// Save overwrites the document.
func (r *Redis[T]) Save(ctx context.Context, v T) error {
	data, err := encode(v)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store %s in redis: %w", r.key, err)
	}
	return nil
}
