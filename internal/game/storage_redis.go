package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomodule/redigo/redis"
)

// RedisStore keeps snapshots as redis string values
type RedisStore struct {
	pool   *redis.Pool
	prefix string
}

// NewRedisPool creates a connection pool for addr (host:port)
func NewRedisPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     10,
		IdleTimeout: 60 * time.Second,
		Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", addr) },
	}
}

// NewRedisStore creates a store over pool with keys under prefix
func NewRedisStore(pool *redis.Pool, prefix string) *RedisStore {
	return &RedisStore{pool: pool, prefix: prefix}
}

func (rs *RedisStore) key(key string) string {
	return rs.prefix + storeKey(key)
}

// Ping checks the connection
func (rs *RedisStore) Ping(ctx context.Context) error {
	conn, err := rs.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("PING"); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

// Put stores a snapshot
func (rs *RedisStore) Put(ctx context.Context, key string, data []byte) error {
	conn, err := rs.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer conn.Close()

	reply, err := redis.String(conn.Do("SET", rs.key(key), data))
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	if reply != "OK" {
		return fmt.Errorf("failed to save snapshot: unexpected reply %q", reply)
	}
	return nil
}

// Get loads a snapshot
func (rs *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	conn, err := rs.pool.GetContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("GET", rs.key(key)))
	if errors.Is(err, redis.ErrNil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return data, nil
}

// Delete removes a snapshot
func (rs *RedisStore) Delete(ctx context.Context, key string) error {
	conn, err := rs.pool.GetContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Do("DEL", rs.key(key)); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

// Close closes the pool
func (rs *RedisStore) Close() error {
	return rs.pool.Close()
}
