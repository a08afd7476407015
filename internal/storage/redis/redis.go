package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/goodtune/focustime/internal/config"
	"github.com/goodtune/focustime/internal/storage"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "focustime"

// Store implements the storage.Store interface using Redis
type Store struct {
	client  *redis.Client
	timings *timingStore
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig) (*Store, error) {
	client, err := Dial(cfg)
	if err != nil {
		return nil, err
	}

	store := &Store{
		client:  client,
		timings: newTimingStore(client, cfg.KeyPrefix),
	}

	return store, nil
}

// Dial creates a Redis client from cfg and verifies the connection.
func Dial(cfg config.RedisConfig) (*redis.Client, error) {
	// Parse timeouts
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Determine address
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	// Ping to verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Timings returns the TimingStore implementation
func (s *Store) Timings() storage.TimingStore {
	return s.timings
}

// Publisher returns a snapshot publisher sharing this store's connection.
func (s *Store) Publisher(channel string) *Publisher {
	return NewPublisher(s.client, channel)
}
