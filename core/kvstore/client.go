package kvstore

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/redis/go-redis/v9"
)

// Pipeline queues set writes and sends them in one round trip.
// Exec is not atomic: on failure a prefix of the queued writes may have been applied.
type Pipeline interface {
	// SAdd queues an add-to-set.
	SAdd(ctx context.Context, key string, members ...string)
	// SRem queues a remove-from-set.
	SRem(ctx context.Context, key string, members ...string)
	// Len returns the number of queued commands.
	Len() int
	// Exec sends all queued commands and returns the first error.
	Exec(ctx context.Context) error
	// Discard drops all queued commands.
	Discard()
}

// Client defines the set operations required by the membership index.
type Client interface {
	// SAdd adds members to the set at key.
	SAdd(ctx context.Context, key string, members ...string) error
	// SRem removes members from the set at key.
	SRem(ctx context.Context, key string, members ...string) error
	// SIsMember reports whether member is in the set at key.
	SIsMember(ctx context.Context, key, member string) (bool, error)
	// SMembers returns every member of the set at key.
	SMembers(ctx context.Context, key string) ([]string, error)
	// SCard returns the cardinality of the set at key.
	SCard(ctx context.Context, key string) (int64, error)
	// SDiffStore stores keys[0] minus the remaining keys into dest and returns its size.
	SDiffStore(ctx context.Context, dest string, keys ...string) (int64, error)
	// SInterStore stores the intersection of keys into dest and returns its size.
	SInterStore(ctx context.Context, dest string, keys ...string) (int64, error)
	// SUnionStore stores the union of keys into dest and returns its size.
	SUnionStore(ctx context.Context, dest string, keys ...string) (int64, error)
	// Del deletes keys.
	Del(ctx context.Context, keys ...string) error
	// Expire sets a time-to-live on key.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// Scan lazily enumerates the set at key with SSCAN.
	// Members may be yielded more than once if the set changes during the scan.
	Scan(ctx context.Context, key string) iter.Seq2[string, error]
	// Pipeline starts a new non-transactional pipeline.
	Pipeline() Pipeline
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the underlying connections.
	Close() error
}

// NewClient creates a new Redis client based on the configuration.
// The connection is established lazily; call Ping to verify it.
func NewClient(cfg Config) (Client, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	timeout := cfg.TimeoutSeconds
	if timeout <= 0 {
		timeout = 5
	}
	timeoutDuration := time.Duration(timeout) * time.Second

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  timeoutDuration,
		ReadTimeout:  timeoutDuration,
		WriteTimeout: timeoutDuration,
	})

	return Wrap(rdb, cfg.ScanCount), nil
}

// Wrap adapts an existing go-redis client.
func Wrap(rdb *redis.Client, scanCount int) Client {
	if scanCount <= 0 {
		scanCount = 1000
	}
	return &redisClient{rdb: rdb, scanCount: int64(scanCount)}
}

type redisClient struct {
	rdb       *redis.Client
	scanCount int64
}

func (c *redisClient) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return c.rdb.SAdd(ctx, key, toArgs(members)...).Err()
}

func (c *redisClient) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return c.rdb.SRem(ctx, key, toArgs(members)...).Err()
}

func (c *redisClient) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return c.rdb.SIsMember(ctx, key, member).Result()
}

func (c *redisClient) SMembers(ctx context.Context, key string) ([]string, error) {
	return c.rdb.SMembers(ctx, key).Result()
}

func (c *redisClient) SCard(ctx context.Context, key string) (int64, error) {
	return c.rdb.SCard(ctx, key).Result()
}

func (c *redisClient) SDiffStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	return c.rdb.SDiffStore(ctx, dest, keys...).Result()
}

func (c *redisClient) SInterStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	return c.rdb.SInterStore(ctx, dest, keys...).Result()
}

func (c *redisClient) SUnionStore(ctx context.Context, dest string, keys ...string) (int64, error) {
	return c.rdb.SUnionStore(ctx, dest, keys...).Result()
}

func (c *redisClient) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *redisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, key, ttl).Err()
}

func (c *redisClient) Scan(ctx context.Context, key string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		it := c.rdb.SScan(ctx, key, 0, "", c.scanCount).Iterator()
		for it.Next(ctx) {
			if !yield(it.Val(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			yield("", err)
		}
	}
}

func (c *redisClient) Pipeline() Pipeline {
	return &redisPipeline{p: c.rdb.Pipeline()}
}

func (c *redisClient) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *redisClient) Close() error {
	return c.rdb.Close()
}

type redisPipeline struct {
	p redis.Pipeliner
}

func (p *redisPipeline) SAdd(ctx context.Context, key string, members ...string) {
	if len(members) > 0 {
		p.p.SAdd(ctx, key, toArgs(members)...)
	}
}

func (p *redisPipeline) SRem(ctx context.Context, key string, members ...string) {
	if len(members) > 0 {
		p.p.SRem(ctx, key, toArgs(members)...)
	}
}

func (p *redisPipeline) Len() int {
	return p.p.Len()
}

func (p *redisPipeline) Exec(ctx context.Context) error {
	if p.p.Len() == 0 {
		return nil
	}
	_, err := p.p.Exec(ctx)
	return err
}

func (p *redisPipeline) Discard() {
	p.p.Discard()
}

func toArgs(members []string) []interface{} {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}
