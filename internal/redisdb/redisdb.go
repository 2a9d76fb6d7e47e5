package redisdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"paystore/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/golang/glog"
)

// Client stores order records as plain redis strings under a key prefix.
type Client struct {
	rdb    *redis.Client
	prefix string
}

var _ store.Store = (*Client)(nil)

type Options struct {
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
}

// Open connects to redis and pings it before returning.
func Open(ctx context.Context, opts Options) (*Client, error) {
	addr := fmt.Sprintf("%s:%s", opts.Host, opts.Port)
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	// Test connection
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		glog.Errorf("Redis connection error: %s", err.Error())
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	glog.Infof("Connected to Redis at %s", addr)

	return New(rdb, opts.Prefix), nil
}

// New wraps an existing redis client.
func New(rdb *redis.Client, prefix string) *Client {
	return &Client{rdb: rdb, prefix: prefix}
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Put(ctx context.Context, key string, value []byte) error {
	// 0 means no expiration
	if err := c.rdb.Set(ctx, c.prefix+key, value, 0).Err(); err != nil {
		glog.Warningf("redis Set %s, err: %s", key, err.Error())
		return err
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		glog.Warningf("redis Get %s, err: %s", key, err.Error())
		return nil, err
	}
	return data, nil
}

func (c *Client) Remove(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.prefix+key).Err(); err != nil {
		glog.Warningf("redis Del %s, err: %s", key, err.Error())
		return err
	}
	return nil
}

func (c *Client) ListKeys(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		seen[strings.TrimPrefix(iter.Val(), c.prefix)] = struct{}{}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan %s*: %w", c.prefix, err)
	}

	// SCAN may return a key more than once
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
