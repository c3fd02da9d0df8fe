package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shipment-sync/internal/models"

	"github.com/go-redis/redis/v8"
)

const statusKeyPrefix = "shipment:status:"

// Client caches the sync status of orders in front of the order store
type Client struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClient creates a new Redis client and checks connectivity
func NewClient(addr, password string, db int, ttl time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewClientFromRedis(rdb, ttl), nil
}

// NewClientFromRedis wraps an existing connection without pinging it
func NewClientFromRedis(rdb *redis.Client, ttl time.Duration) *Client {
	return &Client{rdb: rdb, ttl: ttl}
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// SetStatus caches the status of an order
func (c *Client) SetStatus(ctx context.Context, orderID string, status models.Status) error {
	if err := c.rdb.Set(ctx, statusKey(orderID), string(status), c.ttl).Err(); err != nil {
		return fmt.Errorf("cache status: %w", err)
	}
	return nil
}

// GetStatus returns the cached status; ok is false on a cache miss
func (c *Client) GetStatus(ctx context.Context, orderID string) (status models.Status, ok bool, err error) {
	val, err := c.rdb.Get(ctx, statusKey(orderID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read cached status: %w", err)
	}
	return models.Status(val), true, nil
}

func statusKey(orderID string) string {
	return statusKeyPrefix + orderID
}
