// Package cache provides the Redis-backed read cache for wallet state.
// Entries are invalidated after every committed balance mutation; the
// database stays the source of truth.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lumapay/internal/models"
)

// RedisConfig holds the Redis connection settings.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NewRedisClient creates a go-redis client from config.
func NewRedisClient(cfg *RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Cache wraps a Redis client with JSON serialization and a default TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a Cache with the given default TTL.
func NewCache(client *redis.Client, defaultTTL time.Duration) *Cache {
	return &Cache{client: client, ttl: defaultTTL}
}

// Set stores a JSON-encoded value under key with the default TTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Get loads a JSON-encoded value. It returns false without error on a
// cache miss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to get cache value: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

// Delete removes keys from the cache.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

// GetWallet returns the cached wallet for a user, if any.
func (c *Cache) GetWallet(ctx context.Context, userID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	found, err := c.Get(ctx, walletKey(userID), &wallet)
	if err != nil || !found {
		return nil, err
	}
	return &wallet, nil
}

// SetWallet caches a wallet by owner.
func (c *Cache) SetWallet(ctx context.Context, wallet *models.Wallet) error {
	return c.Set(ctx, walletKey(wallet.UserID), wallet)
}

// InvalidateWallet drops the cached wallet for a user.
func (c *Cache) InvalidateWallet(ctx context.Context, userID uint) error {
	return c.Delete(ctx, walletKey(userID))
}

// HealthCheck pings Redis.
func (c *Cache) HealthCheck(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}

func walletKey(userID uint) string {
	return fmt.Sprintf("wallet:%d", userID)
}
