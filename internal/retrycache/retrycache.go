// Package retrycache backs the coordinator's idempotent-retry behavior: a
// NetworkError-triggered retry of a task_id consults Redis for a terminal
// result already delivered by a prior attempt before re-dispatching to the
// worker.
package retrycache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"modelmesh/internal/protocol"
)

// TTL bounds how long a terminal response is kept for dedup purposes; a
// retry racing a response by more than this window just re-invokes.
const TTL = 5 * time.Minute

// Cache is a Redis-backed coordinator.RetryCache.
type Cache struct {
	client redis.UniversalClient
}

// New dials addr (e.g. "redis://localhost:6379/0") and verifies
// connectivity with a Ping before returning.
func New(addr string) (*Cache, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("retrycache: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("retrycache: ping redis: %w", err)
	}
	return &Cache{client: client}, nil
}

func key(taskID string) string { return "modelmesh:task:" + taskID }

// Get returns the cached terminal response for taskID, if any.
func (c *Cache) Get(ctx context.Context, taskID string) (protocol.InvokeResponse, bool, error) {
	raw, err := c.client.Get(ctx, key(taskID)).Bytes()
	if err == redis.Nil {
		return protocol.InvokeResponse{}, false, nil
	}
	if err != nil {
		return protocol.InvokeResponse{}, false, fmt.Errorf("retrycache: get %s: %w", taskID, err)
	}
	var resp protocol.InvokeResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return protocol.InvokeResponse{}, false, fmt.Errorf("retrycache: decode %s: %w", taskID, err)
	}
	return resp, true, nil
}

// Put stores a terminal response under taskID with TTL expiry.
func (c *Cache) Put(ctx context.Context, taskID string, resp protocol.InvokeResponse) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("retrycache: encode %s: %w", taskID, err)
	}
	if err := c.client.Set(ctx, key(taskID), raw, TTL).Err(); err != nil {
		return fmt.Errorf("retrycache: set %s: %w", taskID, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
