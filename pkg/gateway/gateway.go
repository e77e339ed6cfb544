// Package gateway runs validated add and query requests against the backing
// index: collections are ensured through the registry and adds are submitted
// chunk by chunk, in order, stopping at the first failure.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/vecgate/pkg/batch"
	"github.com/papercomputeco/vecgate/pkg/eventstream"
	"github.com/papercomputeco/vecgate/pkg/eventstream/nop"
	"github.com/papercomputeco/vecgate/pkg/logger"
	"github.com/papercomputeco/vecgate/pkg/metrics"
	"github.com/papercomputeco/vecgate/pkg/registry"
	"github.com/papercomputeco/vecgate/pkg/validate"
	"github.com/papercomputeco/vecgate/pkg/vector"
)

// Gateway is shared by every transport (HTTP routes and MCP tools).
type Gateway struct {
	registry  *registry.Registry
	batchSize int
	publisher eventstream.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Config configures a Gateway. Zero values fall back to cosine distance, a
// nop publisher, fresh metrics, and a discarding logger.
type Config struct {
	Metric    vector.Metric
	Publisher eventstream.Publisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// AddResult summarizes an accepted add.
type AddResult struct {
	Count  int `json:"count"`
	Chunks int `json:"chunks"`
}

// QueryResult is the wire shape of a query answer. IDs and Scores are paired
// by index and ordered nearest first.
type QueryResult struct {
	IDs    []string  `json:"ids"`
	Scores []float32 `json:"scores"`
}

// New builds a Gateway over driver. The chunk size is derived once from the
// driver's advertised maximum.
func New(ctx context.Context, driver vector.Driver, c Config) (*Gateway, error) {
	g := &Gateway{
		publisher: c.Publisher,
		metrics:   c.Metrics,
		logger:    c.Logger,
	}
	if g.publisher == nil {
		g.publisher = nop.NewPublisher()
	}
	if g.metrics == nil {
		g.metrics = metrics.New()
	}
	if g.logger == nil {
		g.logger = logger.Nop()
	}
	metric := c.Metric
	if metric == "" {
		metric = vector.DefaultMetric
	}

	advertised, err := driver.MaxBatchSize(ctx)
	if err != nil {
		return nil, vector.NewStorageError("batch_size", "", err)
	}
	g.batchSize = batch.EffectiveSize(advertised)

	g.registry = registry.New(driver,
		registry.WithMetric(metric),
		registry.WithLogger(g.logger),
		registry.WithCreateHook(g.collectionCreated),
	)

	g.logger.Info("gateway ready",
		"advertised_batch_size", advertised,
		"batch_size", g.batchSize,
		"metric", string(metric),
	)

	return g, nil
}

// BatchSize returns the chunk size used for adds.
func (g *Gateway) BatchSize() int {
	return g.batchSize
}

// Metrics returns the gateway collectors.
func (g *Gateway) Metrics() *metrics.Metrics {
	return g.metrics
}

// Collections returns the names of the collections used so far, sorted.
func (g *Gateway) Collections() []string {
	return g.registry.Names()
}

// Add ensures the collection and submits req in chunks. Chunks already
// accepted stay applied when a later chunk fails.
func (g *Gateway) Add(ctx context.Context, req *validate.AddRequest) (*AddResult, error) {
	coll, err := g.ensure(ctx, req.Collection)
	if err != nil {
		return nil, err
	}

	total := batch.Count(req.Len(), g.batchSize)
	result := &AddResult{}

	for chunk := range batch.Split(req.IDs, req.Vectors, g.batchSize) {
		g.logger.Debug("submitting chunk",
			"collection", req.Collection,
			"chunk", chunk.Index,
			"size", chunk.Len(),
		)

		if err := coll.Add(ctx, chunk.IDs, chunk.Vectors); err != nil {
			g.logger.Error("chunk submission failed",
				"collection", req.Collection,
				"chunk", chunk.Index,
				"chunks", total,
				"committed", result.Count,
				"error", err,
			)
			return result, vector.NewStorageError("add", req.Collection,
				fmt.Errorf("chunk %d of %d: %w", chunk.Index+1, total, err))
		}

		result.Count += chunk.Len()
		result.Chunks++
		g.metrics.Chunks.Inc()
		g.metrics.Entries.Add(float64(chunk.Len()))
	}

	if result.Count > 0 {
		event := eventstream.NewCollectionEvent(eventstream.EventTypeEntriesAdded, req.Collection)
		event.Count = result.Count
		event.Chunks = result.Chunks
		g.publish(ctx, event)
	}

	return result, nil
}

// Query ensures the collection and returns at most ReturnCount nearest entries.
func (g *Gateway) Query(ctx context.Context, req *validate.QueryRequest) (*QueryResult, error) {
	coll, err := g.ensure(ctx, req.Collection)
	if err != nil {
		return nil, err
	}

	results, err := coll.Query(ctx, req.Vector, req.ReturnCount)
	if err != nil {
		g.logger.Error("query failed", "collection", req.Collection, "error", err)
		return nil, vector.NewStorageError("query", req.Collection, err)
	}

	out := &QueryResult{
		IDs:    make([]string, 0, len(results)),
		Scores: make([]float32, 0, len(results)),
	}
	for _, r := range results[:min(len(results), req.ReturnCount)] {
		out.IDs = append(out.IDs, r.ID)
		out.Scores = append(out.Scores, r.Distance)
	}

	return out, nil
}

// Outcome classifies err for the request metrics.
func Outcome(err error) string {
	var verr *validate.ValidationError
	var perr *validate.ProtocolError
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &verr), errors.As(err, &perr):
		return metrics.OutcomeInvalid
	default:
		return metrics.OutcomeStorageFailed
	}
}

func (g *Gateway) ensure(ctx context.Context, name string) (vector.Collection, error) {
	coll, err := g.registry.Ensure(ctx, name)
	if err != nil {
		return nil, err
	}
	g.metrics.Collections.Set(float64(g.registry.Len()))
	return coll, nil
}

func (g *Gateway) collectionCreated(ctx context.Context, name string) {
	g.publish(ctx, eventstream.NewCollectionEvent(eventstream.EventTypeCollectionCreated, name))
}

func (g *Gateway) publish(ctx context.Context, event *eventstream.CollectionEvent) {
	if err := g.publisher.Publish(ctx, event); err != nil {
		g.logger.Warn("failed to publish event",
			"event_type", event.EventType,
			"collection", event.Collection,
			"error", err,
		)
	}
}
