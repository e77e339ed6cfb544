// Package vector defines the backing index contract the gateway fronts: named
// collections of (id, embedding) entries supporting batched adds and
// nearest-neighbor queries.
package vector

import "context"

// QueryResult is a single nearest-neighbor hit.
type QueryResult struct {
	// ID is the caller supplied entry id.
	ID string

	// Distance from the query vector under the collection's metric.
	// Lower is closer.
	Distance float32
}

// Collection is a handle to a named collection in the backing index.
type Collection interface {
	// Name returns the collection name the handle was opened or created with.
	Name() string

	// Add stores ids and vectors paired positionally. Callers must keep each
	// call at or below the driver's MaxBatchSize.
	// If an id already exists, implementers should update its vector.
	Add(ctx context.Context, ids []string, vectors [][]float32) error

	// Query returns up to k entries ordered by ascending distance.
	Query(ctx context.Context, vector []float32, k int) ([]QueryResult, error)
}

// Driver is the backing index: a store of named collections.
type Driver interface {
	// OpenCollection opens an existing collection. found is false, with a nil
	// error, when no collection with that name exists; err is reserved for
	// genuine storage failures.
	OpenCollection(ctx context.Context, name string) (coll Collection, found bool, err error)

	// CreateCollection creates a new collection using the given distance metric.
	CreateCollection(ctx context.Context, name string, metric Metric) (Collection, error)

	// MaxBatchSize returns the maximum number of entries the driver accepts
	// in a single Collection.Add call.
	MaxBatchSize(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
