package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
	"go.uber.org/zap"
)

// Cache stores classification results keyed by backend, query and labels.
// One Cache is shared by every classifier a Factory opens.
type Cache struct {
	store  *bigcache.BigCache
	logger *zap.Logger
}

// NewCache creates a result cache. Entries expire after ttl; maxMB caps the
// total cache size (0 leaves it unbounded).
func NewCache(ttl time.Duration, maxMB int, logger *zap.Logger) (*Cache, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = 64
	cfg.CleanWindow = ttl
	cfg.HardMaxCacheSize = maxMB
	cfg.Verbose = false

	store, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}
	return &Cache{store: store, logger: logger}, nil
}

// Close releases the cache.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.store.Close()
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.store.Len()
}

// Wrap returns a classifier that consults the cache before calling next.
func (c *Cache) Wrap(next Classifier) Classifier {
	if c == nil {
		return next
	}
	return &cached{next: next, cache: c}
}

type cached struct {
	next  Classifier
	cache *Cache
}

func (c *cached) Name() string { return c.next.Name() }

func (c *cached) Warm(ctx context.Context) error {
	if w, ok := c.next.(Warmer); ok {
		return w.Warm(ctx)
	}
	return nil
}

func (c *cached) Classify(ctx context.Context, query string, labels []string) (*Result, error) {
	key := cacheKey(c.next.Name(), query, labels)

	if data, err := c.cache.store.Get(key); err == nil {
		var res Result
		if err := json.Unmarshal(data, &res); err == nil {
			return &res, nil
		}
		c.cache.logger.Warn("dropping undecodable cache entry", zap.String("classifier", c.next.Name()))
		_ = c.cache.store.Delete(key)
	} else if !errors.Is(err, bigcache.ErrEntryNotFound) {
		c.cache.logger.Warn("cache lookup failed", zap.Error(err))
	}

	res, err := c.next.Classify(ctx, query, labels)
	if err != nil {
		return nil, err
	}
	// Malformed results are never cached.
	if Validate(res, labels) != nil {
		return res, nil
	}

	data, err := json.Marshal(res)
	if err == nil {
		if err := c.cache.store.Set(key, data); err != nil {
			c.cache.logger.Warn("cache store failed", zap.Error(err))
		}
	}
	return res, nil
}

func cacheKey(name, query string, labels []string) string {
	h := sha256.New()
	h.Write([]byte(name))
	h.Write([]byte{0})
	h.Write([]byte(query))
	for _, l := range labels {
		h.Write([]byte{0})
		h.Write([]byte(l))
	}
	return hex.EncodeToString(h.Sum(nil))
}
