// Package redisprovider registers a Redis client as an eager singleton whose connection
// is verified at startup and closed at shutdown.
package redisprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	ioc "github.com/plumeink/cullinan-ioc"
	"github.com/plumeink/cullinan-ioc/config"
)

// Name is the component name the client is registered under.
const Name = "redis"

// Phase starts the client before application components and stops it after them.
const Phase = -100

// Client wraps *redis.Client with lifecycle hooks and JSON helpers.
type Client struct {
	*redis.Client
	ping bool
}

// NewClient builds an unconnected client; go-redis dials lazily.
func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		Client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ping: cfg.Ping,
	}
}

func (c *Client) Phase() int { return Phase }

// OnStartup verifies the connection when pinging is enabled.
func (c *Client) OnStartup(ctx context.Context) error {
	if !c.ping {
		return nil
	}
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping %s: %w", c.Options().Addr, err)
	}
	return nil
}

// OnShutdown closes the connection pool.
func (c *Client) OnShutdown(context.Context) error {
	return c.Close()
}

// GetJSON decodes the value stored at key into dest. It reports false on a miss.
func (c *Client) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	val, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores value at key encoded as JSON.
func (c *Client) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl).Err()
}

// Definition returns the eager singleton definition of the client. It only resolves
// when cfg.Addr is set, so wiring can fall back to another cache with ioc.IfMissing(Name).
func Definition(cfg config.RedisConfig, opts ...ioc.DefinitionOption) *ioc.Definition {
	base := []ioc.DefinitionOption{
		ioc.Eager(),
		ioc.WithPhase(Phase),
		ioc.TypeOf[*Client](),
		ioc.WithSource("redisprovider"),
		ioc.WithConditions(func(*ioc.ApplicationContext) bool { return cfg.Addr != "" }),
	}
	return ioc.NewDefinition(Name, func(ioc.Resolver) (any, error) {
		return NewClient(cfg), nil
	}, append(base, opts...)...)
}
