// Package redisclient owns the redis connection the revalidation
// publisher (api) and subscriber (worker) share.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/geocoder89/sitecms/internal/config"
)

// Revalidation traffic is one small message per content write, so the
// pool stays small. The worker holds one extra connection for its
// subscription.
const (
	poolSize     = 4
	minIdleConns = 1
	maxRetries   = 3
	ioTimeout    = 2 * time.Second
)

type Client struct {
	redisdb *redis.Client
	addr    string
}

type Config struct {
	Addr     string
	Password string
	DB       int
	// Role names the process in CLIENT LIST, e.g. "api" or "worker".
	Role string
}

// FromConfig picks the redis settings out of the app config.
func FromConfig(cfg config.Config, role string) Config {
	return Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Role:     role,
	}
}

func New(cfg Config) *Client {
	return &Client{redisdb: redis.NewClient(options(cfg)), addr: cfg.Addr}
}

func options(cfg Config) *redis.Options {
	name := "sitecms"
	if cfg.Role != "" {
		name += "-" + cfg.Role
	}

	return &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		ClientName:   name,
		PoolSize:     poolSize,
		MinIdleConns: minIdleConns,
		MaxRetries:   maxRetries,
		DialTimeout:  ioTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}
}

// Ping checks redis connectivity. The worker's readiness check calls it.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.redisdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis %s: %w", c.addr, err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.redisdb.Close()
}

// Raw exposes the client for the revalidation publisher and subscriber.
func (c *Client) Raw() *redis.Client {
	return c.redisdb
}
