package risk

import (
	"context"
	"encoding/json"
	"time"

	"github.com/angelmondragon/orderdesk-backend/pkg/fraud"
	"github.com/angelmondragon/orderdesk-backend/pkg/logger"
	"github.com/angelmondragon/orderdesk-backend/pkg/phone"
	"github.com/angelmondragon/orderdesk-backend/pkg/redis"
)

// Store is the slice of the redis client the cache relies on.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	DelByPattern(ctx context.Context, pattern string) (int64, error)
	RiskKey(canonicalPhone string) string
	RiskKeyPattern() string
}

// Cache memoizes fraud signals per canonical phone. It is advisory: store
// failures are logged and read as misses.
type Cache struct {
	store Store
	ttl   time.Duration
	logg  *logger.Logger
	now   func() time.Time
}

// NewCache builds a cache whose entries live for ttl.
func NewCache(store Store, ttl time.Duration, logg *logger.Logger) *Cache {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Cache{store: store, ttl: ttl, logg: logg, now: time.Now}
}

// Get returns the cached signal when one exists and is younger than the TTL.
// Expired entries are evicted on read.
func (c *Cache) Get(ctx context.Context, rawPhone string) (*fraud.Signal, bool) {
	canonical, ok := phone.Normalize(rawPhone)
	if !ok || c.store == nil {
		return nil, false
	}
	key := c.store.RiskKey(canonical)

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !redis.IsMiss(err) {
			c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "risk cache read failed")
		}
		return nil, false
	}

	var signal fraud.Signal
	if err := json.Unmarshal([]byte(raw), &signal); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "risk cache entry undecodable")
		c.evict(ctx, key)
		return nil, false
	}
	if c.now().Sub(signal.FetchedAt) >= c.ttl {
		c.evict(ctx, key)
		return nil, false
	}
	return &signal, true
}

// Put stores signal under the phone's canonical form. Unusable phones are ignored.
func (c *Cache) Put(ctx context.Context, rawPhone string, signal *fraud.Signal) {
	canonical, ok := phone.Normalize(rawPhone)
	if !ok || signal == nil || c.store == nil {
		return
	}
	entry := *signal
	if entry.FetchedAt.IsZero() {
		entry.FetchedAt = c.now().UTC()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, c.store.RiskKey(canonical), payload, c.ttl); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "risk cache write failed")
	}
}

// Clear drops every cached signal and reports how many entries were removed.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	if c.store == nil {
		return 0, nil
	}
	return c.store.DelByPattern(ctx, c.store.RiskKeyPattern())
}

func (c *Cache) evict(ctx context.Context, key string) {
	if err := c.store.Del(ctx, key); err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "risk cache evict failed")
	}
}
