// Package qdrant provides a Qdrant vector database driver implementation.
package qdrant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/papercomputeco/vecgate/pkg/vector"
)

const (
	// DefaultPort is Qdrant's gRPC port.
	DefaultPort = 6334

	// DefaultMaxBatchSize bounds upserts; Qdrant does not advertise a limit.
	DefaultMaxBatchSize = 1024

	// idPayloadKey holds the caller's string id; point ids must be UUIDs or integers.
	idPayloadKey = "vecgate_id"
)

// pointNamespace seeds the UUIDv5 point ids derived from entry ids.
var pointNamespace = uuid.MustParse("6f1d3c52-43b5-4c55-9a0c-3f6bdb2e4a71")

// Config holds configuration for the Qdrant driver.
type Config struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool

	// Dimensions fixes the vector size of new collections. When zero the
	// size is taken from the first batch added to each collection.
	Dimensions uint

	// MaxBatchSize is the advertised batch limit. Defaults to DefaultMaxBatchSize.
	MaxBatchSize int
}

var _ vector.Driver = (*Driver)(nil)

// Driver implements vector.Driver using Qdrant's gRPC API.
type Driver struct {
	client       *qdrant.Client
	dimensions   uint
	maxBatchSize int
	logger       *slog.Logger

	// pending holds collections created before their vector size was known.
	mu      sync.Mutex
	pending map[string]*Collection
}

// NewDriver creates a new Qdrant driver.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}

	port := c.Port
	if port == 0 {
		port = DefaultPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   c.Host,
		Port:   port,
		APIKey: c.APIKey,
		UseTLS: c.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating qdrant client: %w", vector.ErrConnection, err)
	}

	maxBatch := c.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}

	logger.Info("connected to Qdrant", "host", c.Host, "port", port)

	return &Driver{
		client:       client,
		dimensions:   c.Dimensions,
		maxBatchSize: maxBatch,
		logger:       logger,
		pending:      map[string]*Collection{},
	}, nil
}

// OpenCollection returns the named collection when it exists on the server
// or is awaiting its first batch.
func (d *Driver) OpenCollection(ctx context.Context, name string) (vector.Collection, bool, error) {
	d.mu.Lock()
	if coll, ok := d.pending[name]; ok {
		d.mu.Unlock()
		return coll, true, nil
	}
	d.mu.Unlock()

	exists, err := d.client.CollectionExists(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("checking collection: %w", err)
	}
	if !exists {
		return nil, false, nil
	}

	info, err := d.client.GetCollectionInfo(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("getting collection info: %w", err)
	}

	params := info.GetConfig().GetParams().GetVectorsConfig().GetParams()
	return &Collection{
		driver:  d,
		name:    name,
		metric:  fromDistance(params.GetDistance()),
		created: true,
	}, true, nil
}

// CreateCollection creates a collection. Without configured dimensions the
// server-side collection is created by the first Add.
func (d *Driver) CreateCollection(ctx context.Context, name string, metric vector.Metric) (vector.Collection, error) {
	coll := &Collection{driver: d, name: name, metric: metric}

	if d.dimensions == 0 {
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, ok := d.pending[name]; ok {
			return nil, fmt.Errorf("collection %q already exists", name)
		}
		d.pending[name] = coll
		return coll, nil
	}

	if err := coll.create(ctx, uint64(d.dimensions)); err != nil {
		return nil, err
	}
	return coll, nil
}

// MaxBatchSize returns the configured batch limit.
func (d *Driver) MaxBatchSize(_ context.Context) (int, error) {
	return d.maxBatchSize, nil
}

// Close closes the gRPC connection.
func (d *Driver) Close() error {
	return d.client.Close()
}

// Collection is a handle to a Qdrant collection.
type Collection struct {
	driver *Driver
	name   string
	metric vector.Metric

	mu      sync.Mutex
	created bool
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) create(ctx context.Context, size uint64) error {
	distance, err := toDistance(c.metric)
	if err != nil {
		return err
	}

	err = c.driver.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     size,
			Distance: distance,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection: %w", err)
	}

	c.created = true
	c.driver.mu.Lock()
	delete(c.driver.pending, c.name)
	c.driver.mu.Unlock()

	c.driver.logger.Info("created qdrant collection",
		"collection", c.name,
		"dimensions", size,
		"metric", string(c.metric),
	)
	return nil
}

// Add upserts the entries and waits for them to be indexed.
func (c *Collection) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}

	c.mu.Lock()
	if !c.created {
		if err := c.create(ctx, uint64(len(vectors[0]))); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	c.mu.Unlock()

	points := make([]*qdrant.PointStruct, len(ids))
	for i, id := range ids {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(PointID(id)),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{idPayloadKey: id}),
		}
	}

	wait := true
	_, err := c.driver.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.name,
		Wait:           &wait,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points: %w", err)
	}

	c.driver.logger.Debug("added entries to qdrant",
		"collection", c.name,
		"count", len(ids),
	)
	return nil
}

// Query searches for the k nearest points.
func (c *Collection) Query(ctx context.Context, embedding []float32, k int) ([]vector.QueryResult, error) {
	c.mu.Lock()
	created := c.created
	c.mu.Unlock()

	results := []vector.QueryResult{}
	if !created {
		return results, nil
	}

	limit := uint64(k)
	points, err := c.driver.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.name,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying points: %w", err)
	}

	for _, p := range points {
		id := p.GetPayload()[idPayloadKey].GetStringValue()
		results = append(results, vector.QueryResult{
			ID:       id,
			Distance: ScoreToDistance(c.metric, p.GetScore()),
		})
	}

	return results, nil
}

// PointID derives the deterministic UUID used as the Qdrant point id for an entry id.
func PointID(id string) string {
	return uuid.NewSHA1(pointNamespace, []byte(id)).String()
}

// ScoreToDistance converts a Qdrant score into a distance where smaller is nearer.
// Cosine and dot scores are similarities; Euclid scores already are distances.
func ScoreToDistance(metric vector.Metric, score float32) float32 {
	switch metric {
	case vector.MetricL2:
		return score
	case vector.MetricIP:
		return -score
	default:
		return 1 - score
	}
}

func toDistance(metric vector.Metric) (qdrant.Distance, error) {
	switch metric {
	case vector.MetricCosine:
		return qdrant.Distance_Cosine, nil
	case vector.MetricL2:
		return qdrant.Distance_Euclid, nil
	case vector.MetricIP:
		return qdrant.Distance_Dot, nil
	default:
		return qdrant.Distance_UnknownDistance, fmt.Errorf("unsupported metric %q", metric)
	}
}

func fromDistance(d qdrant.Distance) vector.Metric {
	switch d {
	case qdrant.Distance_Euclid:
		return vector.MetricL2
	case qdrant.Distance_Dot:
		return vector.MetricIP
	default:
		return vector.MetricCosine
	}
}
