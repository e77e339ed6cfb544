// Package registry maps collection names to backing index handles, opening or
// creating each collection once per process.
package registry

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/papercomputeco/vecgate/pkg/logger"
	"github.com/papercomputeco/vecgate/pkg/vector"
)

// CreateHook is called after a collection was created (not opened) in the backing index.
type CreateHook func(ctx context.Context, name string)

// Registry caches collection handles. Hits take a read lock only; misses for
// the same name are collapsed into a single open-or-create.
type Registry struct {
	driver   vector.Driver
	metric   vector.Metric
	logger   *slog.Logger
	onCreate CreateHook

	mu          sync.RWMutex
	collections map[string]vector.Collection
	flight      singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

// WithMetric sets the metric used for newly created collections.
func WithMetric(m vector.Metric) Option {
	return func(r *Registry) {
		r.metric = m
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithCreateHook registers a hook run after each collection creation.
func WithCreateHook(h CreateHook) Option {
	return func(r *Registry) {
		r.onCreate = h
	}
}

// New creates a registry over driver. Collections are created with cosine
// distance unless WithMetric says otherwise.
func New(driver vector.Driver, opts ...Option) *Registry {
	r := &Registry{
		driver:      driver,
		metric:      vector.DefaultMetric,
		logger:      logger.Nop(),
		collections: make(map[string]vector.Collection),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Ensure returns the handle for name, opening the existing collection or
// creating it on first use. Failures are returned as *vector.StorageError and
// are not cached.
func (r *Registry) Ensure(ctx context.Context, name string) (vector.Collection, error) {
	if coll, ok := r.lookup(name); ok {
		r.logger.Debug("collection cache hit", "collection", name)
		return coll, nil
	}

	v, err, _ := r.flight.Do(name, func() (any, error) {
		// A flight that finished between lookup and Do already cached it.
		if coll, ok := r.lookup(name); ok {
			return coll, nil
		}
		return r.openOrCreate(ctx, name)
	})
	if err != nil {
		return nil, err
	}
	return v.(vector.Collection), nil
}

func (r *Registry) openOrCreate(ctx context.Context, name string) (vector.Collection, error) {
	coll, found, err := r.driver.OpenCollection(ctx, name)
	if err != nil {
		r.logger.Error("failed to open collection", "collection", name, "error", err)
		return nil, vector.NewStorageError("open", name, err)
	}

	created := false
	if !found {
		coll, err = r.driver.CreateCollection(ctx, name, r.metric)
		if err != nil {
			r.logger.Error("failed to create collection", "collection", name, "error", err)
			return nil, vector.NewStorageError("create", name, err)
		}
		created = true
	}

	r.mu.Lock()
	r.collections[name] = coll
	r.mu.Unlock()

	if created {
		r.logger.Info("created collection", "collection", name, "metric", string(r.metric))
		if r.onCreate != nil {
			r.onCreate(ctx, name)
		}
	} else {
		r.logger.Info("opened collection", "collection", name)
	}

	return coll, nil
}

func (r *Registry) lookup(name string) (vector.Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	coll, ok := r.collections[name]
	return coll, ok
}

// Names returns the cached collection names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.collections))
	for name := range r.collections {
		names = append(names, name)
	}
	r.mu.RUnlock()

	slices.Sort(names)
	return names
}

// Len returns the number of cached collections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.collections)
}
