package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// eventsListKey caches the unfiltered events listing as raw JSON.
const eventsListKey = "events:list"

type Config struct {
	Enabled  bool
	Addr     string
	Password string
	TTL      time.Duration
}

// ValkeyClient caches the events listing. Display reads tolerate staleness;
// any event or reservation mutation invalidates the key.
type ValkeyClient struct {
	client *redis.Client
	ttl    time.Duration
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	return NewWithRedis(rdb, cfg.TTL), nil
}

// NewWithRedis wraps an existing client; used by tests with redismock.
func NewWithRedis(rdb *redis.Client, ttl time.Duration) *ValkeyClient {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ValkeyClient{client: rdb, ttl: ttl}
}

// GetEventsListRaw returns the cached listing as raw JSON, avoiding a
// decode/encode round trip on the hot path.
func (v *ValkeyClient) GetEventsListRaw(ctx context.Context) ([]byte, error) {
	data, err := v.client.Get(ctx, eventsListKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("events list not in cache")
		}
		return nil, fmt.Errorf("cache lookup error: %w", err)
	}
	return data, nil
}

// SetEventsList stores the listing; failures are the caller's to log, never
// to fail a request over.
func (v *ValkeyClient) SetEventsList(ctx context.Context, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal events list: %w", err)
	}
	return v.client.Set(ctx, eventsListKey, payload, v.ttl).Err()
}

// InvalidateEvents drops the cached listing after a mutation.
func (v *ValkeyClient) InvalidateEvents(ctx context.Context) error {
	return v.client.Del(ctx, eventsListKey).Err()
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
