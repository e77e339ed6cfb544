// Package memory provides an in-process, exact-search vector driver. It keeps
// nothing on disk and is intended for tests and throwaway gateways.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/papercomputeco/vecgate/pkg/vector"
)

// DefaultMaxBatchSize is advertised when Config.MaxBatchSize is zero.
const DefaultMaxBatchSize = 5461

// Config holds configuration for the in-memory driver.
type Config struct {
	// MaxBatchSize is the advertised per-Add entry limit.
	MaxBatchSize int
}

// Driver implements vector.Driver entirely in memory.
type Driver struct {
	maxBatchSize int
	logger       *slog.Logger

	mu          sync.RWMutex
	collections map[string]*Collection
}

// NewDriver creates a new in-memory vector driver.
func NewDriver(c Config, logger *slog.Logger) *Driver {
	maxBatch := c.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}

	return &Driver{
		maxBatchSize: maxBatch,
		logger:       logger,
		collections:  make(map[string]*Collection),
	}
}

// OpenCollection returns the named collection if it has been created.
func (d *Driver) OpenCollection(_ context.Context, name string) (vector.Collection, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	c, ok := d.collections[name]
	if !ok {
		return nil, false, nil
	}
	return c, true, nil
}

// CreateCollection creates a new, empty collection.
func (d *Driver) CreateCollection(_ context.Context, name string, metric vector.Metric) (vector.Collection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.collections[name]; ok {
		return nil, fmt.Errorf("collection %s already exists", name)
	}

	c := &Collection{
		name:    name,
		metric:  metric,
		entries: make(map[string][]float32),
	}
	d.collections[name] = c

	d.logger.Debug("created in-memory collection",
		"collection", name,
		"metric", string(metric),
	)

	return c, nil
}

// MaxBatchSize returns the configured per-Add entry limit.
func (d *Driver) MaxBatchSize(_ context.Context) (int, error) {
	return d.maxBatchSize, nil
}

// Close drops every collection.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.collections = make(map[string]*Collection)
	return nil
}

// Collection is an in-memory collection. Insertion order is kept so that
// equal distances resolve deterministically.
type Collection struct {
	name   string
	metric vector.Metric

	mu         sync.RWMutex
	dimensions int
	order      []string
	entries    map[string][]float32
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Add stores ids and vectors, replacing vectors of ids already present.
func (c *Collection) Add(_ context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("got %d ids and %d vectors", len(ids), len(vectors))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dims := c.dimensions
	for i, v := range vectors {
		if dims == 0 {
			dims = len(v)
		}
		if len(v) != dims {
			return fmt.Errorf("%w: entry %s has %d dimensions, collection has %d",
				vector.ErrDimensionMismatch, ids[i], len(v), dims)
		}
	}
	c.dimensions = dims

	for i, id := range ids {
		if _, ok := c.entries[id]; !ok {
			c.order = append(c.order, id)
		}
		c.entries[id] = slices.Clone(vectors[i])
	}

	return nil
}

// Query ranks every entry against v and returns the k closest.
func (c *Collection) Query(_ context.Context, v []float32, k int) ([]vector.QueryResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.order) == 0 || k <= 0 {
		return []vector.QueryResult{}, nil
	}

	if len(v) != c.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			vector.ErrDimensionMismatch, len(v), c.dimensions)
	}

	results := make([]vector.QueryResult, 0, len(c.order))
	for _, id := range c.order {
		results = append(results, vector.QueryResult{
			ID:       id,
			Distance: Distance(c.metric, v, c.entries[id]),
		})
	}

	slices.SortStableFunc(results, func(a, b vector.QueryResult) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
