// Package cache holds serialized heatmap responses in a bounded LRU whose
// entries expire after a fixed TTL. Expiry is checked lazily on access.
package cache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/sync/singleflight"

	"github.com/jengzang/hexmap-backend-go/internal/metrics"
	"github.com/jengzang/hexmap-backend-go/internal/models"
)

// Key identifies one heatmap response
type Key struct {
	Column     models.ValueColumn
	Resolution int
}

// Label is the readable form of the key reported by Info
func (k Key) Label() string {
	return fmt.Sprintf("%s:%d", k.Column, k.Resolution)
}

// Hash is the map key under which the response is stored
func (k Key) Hash() uint64 {
	return xxhash.Sum64String(k.Label())
}

type entry struct {
	label     string
	payload   []byte
	expiresAt time.Time
}

// Config sizes the cache
type Config struct {
	MaxSize int
	TTL     time.Duration
}

// Option customises a Cache
type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithMetrics reports hits, misses, evictions and size to m
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cache) { c.metrics = m }
}

// Cache is safe for concurrent use. Entries are immutable once stored.
type Cache struct {
	mu      sync.Mutex
	lru     *simplelru.LRU[uint64, entry]
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Metrics
	group   singleflight.Group

	// generation is bumped by Clear; loads started under an older
	// generation are not stored
	generation uint64
}

// New creates an empty cache
func New(cfg Config, opts ...Option) (*Cache, error) {
	if cfg.MaxSize <= 0 {
		return nil, errors.New("cache max size must be positive")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}

	lru, err := simplelru.NewLRU[uint64, entry](cfg.MaxSize, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru: %w", err)
	}

	c := &Cache{
		lru:     lru,
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// lookup must be called with mu held
func (c *Cache) lookup(k Key) ([]byte, bool) {
	h := k.Hash()
	e, ok := c.lru.Get(h)
	if !ok {
		return nil, false
	}
	if e.label != k.Label() || !c.now().Before(e.expiresAt) {
		c.lru.Remove(h)
		c.updateSize()
		return nil, false
	}
	return e.payload, true
}

// Get returns the live payload stored for k
func (c *Cache) Get(k Key) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, ok := c.lookup(k)
	c.countLookup(ok)
	return payload, ok
}

// Add stores payload under k unless a live entry already exists.
// It returns the payload that ends up in the cache.
func (c *Cache) Add(k Key, payload []byte) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.add(k, payload)
}

// add must be called with mu held
func (c *Cache) add(k Key, payload []byte) []byte {
	if existing, ok := c.lookup(k); ok {
		return existing
	}

	evicted := c.lru.Add(k.Hash(), entry{
		label:     k.Label(),
		payload:   payload,
		expiresAt: c.now().Add(c.ttl),
	})
	if evicted && c.metrics != nil {
		c.metrics.CacheEvictions.Inc()
	}
	c.updateSize()
	return payload
}

// GetOrLoad returns the cached payload for k, calling load on a miss.
// Concurrent misses for the same key share one call to load.
// Failed loads are not cached, and neither are loads that were running
// when Clear was called: their result reaches the caller only.
// Each call counts exactly one hit or miss.
func (c *Cache) GetOrLoad(k Key, load func() ([]byte, error)) (payload []byte, hit bool, err error) {
	c.mu.Lock()
	payload, ok := c.lookup(k)
	gen := c.generation
	c.mu.Unlock()
	if ok {
		c.countLookup(true)
		return payload, true, nil
	}

	type result struct {
		payload []byte
		hit     bool
	}
	v, err, _ := c.group.Do(fmt.Sprintf("%s#%d", k.Label(), gen), func() (any, error) {
		c.mu.Lock()
		payload, ok := c.lookup(k)
		c.mu.Unlock()
		if ok {
			return result{payload: payload, hit: true}, nil
		}

		payload, err := load()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generation != gen {
			return result{payload: payload}, nil
		}
		return result{payload: c.add(k, payload)}, nil
	})
	if err != nil {
		c.countLookup(false)
		return nil, false, err
	}

	r := v.(result)
	c.countLookup(r.hit)
	return r.payload, r.hit, nil
}

// Info reports size, capacity, ttl and the live keys, oldest first.
// Expired entries are dropped first.
func (c *Cache) Info() models.CacheInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expire()

	keys := make([]string, 0, c.lru.Len())
	for _, h := range c.lru.Keys() {
		if e, ok := c.lru.Peek(h); ok {
			keys = append(keys, e.label)
		}
	}

	return models.CacheInfo{
		CacheSize:  c.lru.Len(),
		MaxSize:    c.maxSize,
		TTLSeconds: c.ttl.Seconds(),
		CachedKeys: keys,
	}
}

// Len returns the number of stored entries, expired ones included
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Clear removes every entry
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.generation++
	c.updateSize()
}

// expire must be called with mu held
func (c *Cache) expire() {
	now := c.now()
	for _, h := range c.lru.Keys() {
		if e, ok := c.lru.Peek(h); ok && !now.Before(e.expiresAt) {
			c.lru.Remove(h)
		}
	}
	c.updateSize()
}

func (c *Cache) countLookup(hit bool) {
	if c.metrics == nil {
		return
	}
	if hit {
		c.metrics.CacheHits.Inc()
	} else {
		c.metrics.CacheMisses.Inc()
	}
}

func (c *Cache) updateSize() {
	if c.metrics != nil {
		c.metrics.CacheEntries.Set(float64(c.lru.Len()))
	}
}
