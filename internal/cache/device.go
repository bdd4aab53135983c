package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"phonebuddy/internal/model"
)

const (
	// DeviceCachePrefix is the key prefix for last-seen device documents.
	DeviceCachePrefix = "device:last:"

	// DeviceCacheTTL bounds how long a last-seen document survives without
	// being touched. A room that has gone quiet for this long re-seeds its
	// before-image from the next snapshot instead.
	DeviceCacheTTL = 30 * 24 * time.Hour
)

// DeviceCache stores the last observed state of each device document. The
// store watcher uses it to reconstruct before/after pairs, since the
// snapshot stream only carries the new document. Keeping it in Redis means
// a watcher restart does not lose its before-images.
type DeviceCache interface {
	// Get returns the last-seen state for a document path.
	// found=false when the document has never been observed (or expired).
	Get(ctx context.Context, path string) (state model.DeviceState, found bool, err error)

	// Put records the latest observed state for a document path.
	Put(ctx context.Context, path string, state model.DeviceState) error
}

type redisDeviceCache struct {
	client *redis.Client
}

func NewDeviceCache(client *redis.Client) DeviceCache {
	return &redisDeviceCache{client: client}
}

func (c *redisDeviceCache) Get(ctx context.Context, path string) (model.DeviceState, bool, error) {
	raw, err := c.client.Get(ctx, DeviceCachePrefix+path).Result()
	if err == redis.Nil {
		return model.DeviceState{}, false, nil
	}
	if err != nil {
		return model.DeviceState{}, false, fmt.Errorf("get device state: %w", err)
	}

	var state model.DeviceState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return model.DeviceState{}, false, fmt.Errorf("unmarshal device state: %w", err)
	}
	return state, true, nil
}

func (c *redisDeviceCache) Put(ctx context.Context, path string, state model.DeviceState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal device state: %w", err)
	}

	if err := c.client.Set(ctx, DeviceCachePrefix+path, raw, DeviceCacheTTL).Err(); err != nil {
		return fmt.Errorf("set device state: %w", err)
	}
	return nil
}

// MemoryDeviceCache is an in-process DeviceCache for tests and single-node
// agent setups.
type MemoryDeviceCache struct {
	states map[string]model.DeviceState
}

func NewMemoryDeviceCache() *MemoryDeviceCache {
	return &MemoryDeviceCache{states: make(map[string]model.DeviceState)}
}

func (c *MemoryDeviceCache) Get(ctx context.Context, path string) (model.DeviceState, bool, error) {
	state, ok := c.states[path]
	return state, ok, nil
}

func (c *MemoryDeviceCache) Put(ctx context.Context, path string, state model.DeviceState) error {
	c.states[path] = state
	return nil
}
