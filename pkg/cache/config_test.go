package cache

import (
	"testing"
	"time"
)

func TestRedisSettings(t *testing.T) {
	s := defaultRedisSettings()
	WithRedisEndpoint("redis.internal", 6380)(&s)
	WithRedisPoolSize(0, 4)(&s)
	if s.Addr != "redis.internal:6380" {
		t.Fatalf("addr = %q", s.Addr)
	}
	if s.PoolSize != 10 || s.MinIdleConns != 4 {
		t.Fatalf("pool = %d/%d, zero size should keep the default", s.PoolSize, s.MinIdleConns)
	}
	if err := s.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	s.Addr = "no-port"
	if err := s.validate(); err == nil {
		t.Fatalf("expected error for address without port")
	}
}

func TestLayeredLocalExpiry(t *testing.T) {
	lc := &LayeredCache{localTTL: 30 * time.Second}
	WithLocalTTL(10 * time.Second)(lc)

	cases := []struct {
		in, want time.Duration
	}{
		{0, 10 * time.Second},
		{time.Hour, 10 * time.Second},
		{2 * time.Second, 2 * time.Second},
	}
	for _, c := range cases {
		if got := lc.localExpiry(c.in); got != c.want {
			t.Fatalf("localExpiry(%s) = %s, want %s", c.in, got, c.want)
		}
	}
}
