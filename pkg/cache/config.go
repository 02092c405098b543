package cache

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// RedisSettings describes how the shared Redis store is reached.
type RedisSettings struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	PoolTimeout  time.Duration
	DialTimeout  time.Duration
	Prefix       string
}

// RedisOption mutates RedisSettings before the client is dialed.
type RedisOption func(*RedisSettings)

func defaultRedisSettings() RedisSettings {
	return RedisSettings{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 2,
		PoolTimeout:  4 * time.Second,
		DialTimeout:  5 * time.Second,
		Prefix:       "alertengine",
	}
}

func (s RedisSettings) validate() error {
	if _, _, err := net.SplitHostPort(s.Addr); err != nil {
		return fmt.Errorf("redis addr %q: %w", s.Addr, err)
	}
	if s.PoolSize < 1 {
		return fmt.Errorf("redis pool size must be positive, got %d", s.PoolSize)
	}
	return nil
}

// WithRedisEndpoint points the client at host:port.
func WithRedisEndpoint(host string, port int) RedisOption {
	return func(s *RedisSettings) {
		s.Addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
}

// WithRedisDatabase selects the logical database and its password.
func WithRedisDatabase(db int, password string) RedisOption {
	return func(s *RedisSettings) {
		s.DB = db
		s.Password = password
	}
}

// WithRedisPoolSize caps open connections. Zero keeps the default.
func WithRedisPoolSize(size, minIdle int) RedisOption {
	return func(s *RedisSettings) {
		if size > 0 {
			s.PoolSize = size
		}
		if minIdle >= 0 {
			s.MinIdleConns = minIdle
		}
	}
}

// WithRedisNamespace prefixes every key so several services can share one Redis.
func WithRedisNamespace(prefix string) RedisOption {
	return func(s *RedisSettings) {
		s.Prefix = prefix
	}
}

// MemorySettings bounds the in-process store.
type MemorySettings struct {
	MaxEntries    int
	SweepInterval time.Duration
	FallbackTTL   time.Duration
}

// MemoryOption mutates MemorySettings.
type MemoryOption func(*MemorySettings)

func defaultMemorySettings() MemorySettings {
	return MemorySettings{
		MaxEntries:    1000,
		SweepInterval: 5 * time.Minute,
		FallbackTTL:   7 * 24 * time.Hour,
	}
}

// WithMaxEntries sets how many keys are kept before the least recently used is evicted.
func WithMaxEntries(n int) MemoryOption {
	return func(s *MemorySettings) {
		if n > 0 {
			s.MaxEntries = n
		}
	}
}

// WithSweepInterval sets how often expired entries are purged.
func WithSweepInterval(d time.Duration) MemoryOption {
	return func(s *MemorySettings) {
		if d > 0 {
			s.SweepInterval = d
		}
	}
}

// LayeredOption configures LayeredCache.
type LayeredOption func(*LayeredCache)

// WithLocalTTL caps how long a value may be served from memory without
// consulting Redis. Other replicas' writes become visible after at most d.
func WithLocalTTL(d time.Duration) LayeredOption {
	return func(lc *LayeredCache) {
		if d > 0 {
			lc.localTTL = d
		}
	}
}

// WithLocalMemory passes options to the memory layer.
func WithLocalMemory(opts ...MemoryOption) LayeredOption {
	return func(lc *LayeredCache) {
		lc.memOpts = append(lc.memOpts, opts...)
	}
}
