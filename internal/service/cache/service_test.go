package cache

import (
	"context"
	stderrors "errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/kapu/trendformats-go/pkg/errors"
)

func TestNewCacheServiceUnreachable(t *testing.T) {
	_, err := NewCacheService(CacheConfig{Addr: "127.0.0.1:1"}, zap.NewNop())
	var cacheErr *errors.CacheError
	if !stderrors.As(err, &cacheErr) {
		t.Fatalf("expected CacheError, got %v", err)
	}
	if cacheErr.Operation != "ping" {
		t.Fatalf("expected ping operation, got %q", cacheErr.Operation)
	}
}

// Runs against a real Redis when TEST_REDIS_ADDR is set.
func TestCacheServiceRoundTrip(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	c := NewCacheServiceWithClient(redis.NewClient(&redis.Options{Addr: addr}), zap.NewNop())
	defer c.Close()

	ctx := context.Background()
	if err := c.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	key := "trendformats:test:" + time.Now().Format("150405.000000")
	type payload struct {
		Name string `json:"name"`
	}
	if err := c.Set(ctx, key, payload{Name: "hook"}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var got payload
	found, err := c.Get(ctx, key, &got)
	if err != nil || !found || got.Name != "hook" {
		t.Fatalf("expected stored payload, got %+v found=%v err=%v", got, found, err)
	}

	if err := c.Expire(ctx, key, 2*time.Minute); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if ok, err := c.Exists(ctx, key); err != nil || !ok {
		t.Fatalf("expected key to exist, got %v %v", ok, err)
	}

	if err := c.Del(ctx, key); err != nil {
		t.Fatalf("del: %v", err)
	}
	found, err = c.Get(ctx, key, &got)
	if err != nil || found {
		t.Fatalf("expected miss after delete, got found=%v err=%v", found, err)
	}
}
