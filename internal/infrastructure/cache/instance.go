package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/stuffkit/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultCapacity is used when a cache is created with a non-positive size.
const DefaultCapacity = 128

// Stats is a snapshot of cache usage.
type Stats struct {
	Hits     uint64 `json:"hits"`
	Misses   uint64 `json:"misses"`
	Size     int    `json:"size"`
	Capacity int    `json:"capacity"`
}

type options struct {
	name   string
	logger *zap.Logger
	meter  metric.Meter
}

// Option configures an InstanceCache.
type Option func(*options)

// WithName labels log lines and metrics.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger logs evictions at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMeter records hits and misses as cache.hits and cache.misses counters.
func WithMeter(meter metric.Meter) Option {
	return func(o *options) { o.meter = meter }
}

// InstanceCache memoizes one instance per key, keeping at most capacity
// instances and evicting the least recently used.
type InstanceCache[K comparable, V any] struct {
	entries  *lru.Cache[K, V]
	ctor     func(K) (V, error)
	group    singleflight.Group
	capacity int

	mu      sync.Mutex
	flights map[K]*flight
	seq     uint64

	hits   atomic.Uint64
	misses atomic.Uint64

	attrs       []attribute.KeyValue
	hitCounter  *telemetry.Counter
	missCounter *telemetry.Counter
}

// NewInstanceCache builds a cache that calls ctor on a miss. Errors from
// ctor are returned and never cached.
func NewInstanceCache[K comparable, V any](capacity int, ctor func(K) (V, error), opts ...Option) *InstanceCache[K, V] {
	o := options{name: "instance", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	c := &InstanceCache[K, V]{
		ctor:     ctor,
		capacity: capacity,
		flights:  make(map[K]*flight),
		attrs:    []attribute.KeyValue{telemetry.AttrCacheName.String(o.name)},
	}
	logger := o.logger.With(zap.String("cache", o.name))
	// size is positive, so NewWithEvict cannot fail
	c.entries, _ = lru.NewWithEvict(capacity, func(key K, _ V) {
		logger.Debug("instance evicted", zap.String("key", Key(key)))
	})

	if o.meter != nil {
		var err error
		if c.hitCounter, err = telemetry.NewCounter(o.meter, "cache.hits", "Instance cache hits", "{hit}"); err != nil {
			logger.Warn("cache hit counter unavailable", zap.Error(err))
		}
		if c.missCounter, err = telemetry.NewCounter(o.meter, "cache.misses", "Instance cache misses", "{miss}"); err != nil {
			logger.Warn("cache miss counter unavailable", zap.Error(err))
		}
	}
	return c
}

// Get returns the instance for key, constructing it on a miss. Concurrent
// misses on the same key share a single construction.
func (c *InstanceCache[K, V]) Get(key K) (V, error) {
	return c.get(key, c.ctor)
}

func (c *InstanceCache[K, V]) get(key K, ctor func(K) (V, error)) (V, error) {
	if v, ok := c.entries.Get(key); ok {
		c.hits.Add(1)
		c.count(c.hitCounter)
		return v, nil
	}
	c.misses.Add(1)
	c.count(c.missCounter)

	id, done := c.flight(key)
	defer done()
	res, err, _ := c.group.Do(id, func() (any, error) {
		if v, ok := c.entries.Get(key); ok {
			return v, nil
		}
		v, err := ctor(key)
		if err != nil {
			return nil, err
		}
		c.entries.Add(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	v, _ := res.(V)
	return v, nil
}

type flight struct {
	id   string
	refs int
}

// flight returns the singleflight key shared by every caller currently
// missing on key. Distinct keys never share an id.
func (c *InstanceCache[K, V]) flight(key K) (string, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.flights[key]
	if !ok {
		c.seq++
		f = &flight{id: strconv.FormatUint(c.seq, 10)}
		c.flights[key] = f
	}
	f.refs++
	return f.id, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if f.refs--; f.refs == 0 {
			delete(c.flights, key)
		}
	}
}

func (c *InstanceCache[K, V]) count(counter *telemetry.Counter) {
	if counter != nil {
		counter.Inc(context.Background(), c.attrs...)
	}
}

// Contains reports whether key is cached without touching recency.
func (c *InstanceCache[K, V]) Contains(key K) bool {
	return c.entries.Contains(key)
}

// Remove drops key and reports whether it was present.
func (c *InstanceCache[K, V]) Remove(key K) bool {
	return c.entries.Remove(key)
}

// Purge drops every instance and resets the counters.
func (c *InstanceCache[K, V]) Purge() {
	c.entries.Purge()
	c.hits.Store(0)
	c.misses.Store(0)
}

// Len returns the number of cached instances.
func (c *InstanceCache[K, V]) Len() int {
	return c.entries.Len()
}

// Stats returns a usage snapshot.
func (c *InstanceCache[K, V]) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Size:     c.entries.Len(),
		Capacity: c.capacity,
	}
}

// Variadic memoizes a constructor taking arbitrary arguments. Calls with
// arguments that serialize to the same Key share one instance.
func Variadic[V any](capacity int, ctor func(args ...any) (V, error), opts ...Option) func(args ...any) (V, error) {
	c := NewInstanceCache[string, V](capacity, nil, opts...)
	return func(args ...any) (V, error) {
		return c.get(Key(args...), func(string) (V, error) { return ctor(args...) })
	}
}
