package costtracker

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the optional distributed ceiling cache.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// RedisCeiling implements DistributedCeiling with two Redis counter keys
// (cost and tokens, advanced with INCRBY) so a
// cost/token budget can be shared across multiple executor instances (e.g.
// one per request, fronted by a pool of workers).
type RedisCeiling struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisCeiling builds a Redis-backed ceiling cache when enabled. Returns
// nil, nil when disabled so callers can attach it unconditionally.
func NewRedisCeiling(cfg RedisConfig, ttl time.Duration) (*RedisCeiling, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ceiling ping: %w", err)
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCeiling{client: client, ttl: ttl}, nil
}

func (c *RedisCeiling) costKey(key string) string  { return fmt.Sprintf("rlm:budget:%s:cost_usd_e4", key) }
func (c *RedisCeiling) tokenKey(key string) string { return fmt.Sprintf("rlm:budget:%s:tokens", key) }

// AddAndCheck atomically adds costUSD/tokens to the shared ledger and
// reports whether the combined total now trips ceiling. Cost is stored as
// an integer (USD * 1e4) since Redis INCRBYFLOAT drifts under repeated
// concurrent increments in a way that a fixed-point counter does not.
func (c *RedisCeiling) AddAndCheck(ctx context.Context, key string, costUSD float64, tokens int, ceiling Ceiling) (bool, Summary, error) {
	if c == nil || c.client == nil {
		return false, Summary{}, nil
	}

	costFixed := int64(costUSD * 1e4)
	pipe := c.client.TxPipeline()
	costCmd := pipe.IncrBy(ctx, c.costKey(key), costFixed)
	tokensCmd := pipe.IncrBy(ctx, c.tokenKey(key), int64(tokens))
	pipe.Expire(ctx, c.costKey(key), c.ttl)
	pipe.Expire(ctx, c.tokenKey(key), c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, Summary{}, fmt.Errorf("redis ceiling pipeline: %w", err)
	}

	totalCostFixed, err := costCmd.Result()
	if err != nil {
		return false, Summary{}, fmt.Errorf("redis ceiling read cost: %w", err)
	}
	totalTokens, err := tokensCmd.Result()
	if err != nil {
		return false, Summary{}, fmt.Errorf("redis ceiling read tokens: %w", err)
	}

	totals := Summary{
		TotalTokens:      int(totalTokens),
		EstimatedCostUSD: float64(totalCostFixed) / 1e4,
	}

	exceeded := (ceiling.MaxCostUSD > 0 && totals.EstimatedCostUSD > ceiling.MaxCostUSD) ||
		(ceiling.MaxTokens > 0 && int64(totals.TotalTokens) > ceiling.MaxTokens)
	return exceeded, totals, nil
}

// Reset clears the shared ledger for key. Mostly useful in tests.
func (c *RedisCeiling) Reset(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, c.costKey(key), c.tokenKey(key)).Err()
}

// Close releases the underlying Redis client.
func (c *RedisCeiling) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
