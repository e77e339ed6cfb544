// Package chroma provides a Chroma vector database driver implementation.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/papercomputeco/vecgate/pkg/vector"
)

const (
	// DefaultTenant is the Chroma tenant used when none is configured.
	DefaultTenant = "default_tenant"

	// DefaultDatabase is the Chroma database used when none is configured.
	DefaultDatabase = "default_database"

	defaultMaxRetries    = 5
	defaultRetryDelay    = 500 * time.Millisecond
	defaultMaxRetryDelay = 10 * time.Second

	// hnswSpaceKey is the collection metadata key selecting Chroma's distance function.
	hnswSpaceKey = "hnsw:space"
)

// Driver implements vector.Driver using Chroma's REST API.
type Driver struct {
	baseURL    string
	tenant     string
	database   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Config holds configuration for the Chroma driver.
type Config struct {
	// URL is the Chroma server URL (e.g., "http://localhost:8000").
	URL string

	// Tenant defaults to DefaultTenant.
	Tenant string

	// Database defaults to DefaultDatabase.
	Database string

	// MaxRetries bounds the connection attempts made by NewDriver while
	// Chroma is still starting up. Defaults to 5.
	MaxRetries int

	// RetryDelay is the first backoff delay, doubled after each failed attempt.
	RetryDelay time.Duration

	// MaxRetryDelay caps the backoff delay.
	MaxRetryDelay time.Duration
}

// NewDriver creates a new Chroma vector driver. It waits for the server's
// heartbeat, retrying with exponential backoff.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	if c.URL == "" {
		return nil, fmt.Errorf("chroma URL is required")
	}

	d := &Driver{
		baseURL:  strings.TrimRight(c.URL, "/"),
		tenant:   c.Tenant,
		database: c.Database,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
	if d.tenant == "" {
		d.tenant = DefaultTenant
	}
	if d.database == "" {
		d.database = DefaultDatabase
	}

	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	delay := c.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	maxDelay := c.MaxRetryDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxRetryDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		lastErr = d.heartbeat(context.Background())
		if lastErr == nil {
			logger.Info("connected to Chroma",
				"url", d.baseURL,
				"tenant", d.tenant,
				"database", d.database,
			)
			return d, nil
		}

		if attempt == maxRetries {
			break
		}

		logger.Warn("chroma not ready, retrying",
			"attempt", attempt,
			"delay", delay,
			"error", lastErr,
		)
		time.Sleep(delay)
		delay = min(delay*2, maxDelay)
	}

	return nil, fmt.Errorf("%w: after %d attempts: %w", vector.ErrConnection, maxRetries, lastErr)
}

func (d *Driver) collectionsURL() string {
	return fmt.Sprintf("%s/api/v2/tenants/%s/databases/%s/collections",
		d.baseURL, url.PathEscape(d.tenant), url.PathEscape(d.database))
}

func (d *Driver) heartbeat(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/api/v2/heartbeat", nil)
	if err != nil {
		return fmt.Errorf("creating heartbeat request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending heartbeat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("heartbeat failed: status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// OpenCollection gets an existing collection by name. Chroma answers 404 for
// unknown collections; that is reported as not found rather than an error.
func (d *Driver) OpenCollection(ctx context.Context, name string) (vector.Collection, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.collectionsURL()+"/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, false, fmt.Errorf("creating get request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("sending get request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, false, nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return nil, false, fmt.Errorf("failed to get collection: status %d: %s", resp.StatusCode, string(body))
	}

	var collection chromaCollection
	if err := json.NewDecoder(resp.Body).Decode(&collection); err != nil {
		return nil, false, fmt.Errorf("decoding collection response: %w", err)
	}

	return &Collection{driver: d, id: collection.ID, name: name}, true, nil
}

// CreateCollection creates a collection with the metric set as its hnsw:space.
func (d *Driver) CreateCollection(ctx context.Context, name string, metric vector.Metric) (vector.Collection, error) {
	var collection chromaCollection
	err := d.post(ctx, d.collectionsURL(), chromaCreateRequest{
		Name:     name,
		Metadata: map[string]any{hnswSpaceKey: string(metric)},
	}, &collection)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	d.logger.Info("created chroma collection",
		"collection", name,
		"collection_id", collection.ID,
		"metric", string(metric),
	)

	return &Collection{driver: d, id: collection.ID, name: name}, nil
}

// MaxBatchSize reads the server's max_batch_size from its pre-flight checks.
func (d *Driver) MaxBatchSize(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/api/v2/pre-flight-checks", nil)
	if err != nil {
		return 0, fmt.Errorf("creating pre-flight request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sending pre-flight request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("pre-flight checks failed: status %d: %s", resp.StatusCode, string(body))
	}

	var preflight chromaPreflight
	if err := json.NewDecoder(resp.Body).Decode(&preflight); err != nil {
		return 0, fmt.Errorf("decoding pre-flight response: %w", err)
	}

	if preflight.MaxBatchSize <= 0 {
		return 0, fmt.Errorf("chroma reported invalid max_batch_size %d", preflight.MaxBatchSize)
	}

	return preflight.MaxBatchSize, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	// HTTP client doesn't require explicit cleanup
	return nil
}

// post sends body as JSON and decodes a 200/201 response into out when non-nil.
func (d *Driver) post(ctx context.Context, target string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}

// Collection is a handle to a Chroma collection, addressed by its id.
type Collection struct {
	driver *Driver
	id     string
	name   string
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// ID returns Chroma's identifier for the collection.
func (c *Collection) ID() string {
	return c.id
}

// Add stores ids with their embeddings.
func (c *Collection) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) == 0 {
		return nil
	}

	err := c.driver.post(ctx, c.driver.collectionsURL()+"/"+c.id+"/add", chromaAddRequest{
		IDs:        ids,
		Embeddings: vectors,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to add entries: %w", err)
	}

	c.driver.logger.Debug("added entries to chroma",
		"collection", c.name,
		"count", len(ids),
	)

	return nil
}

// Query finds the k nearest entries. Only distances are requested; documents
// and metadata are never stored by the gateway.
func (c *Collection) Query(ctx context.Context, embedding []float32, k int) ([]vector.QueryResult, error) {
	var queryResp chromaQueryResponse
	err := c.driver.post(ctx, c.driver.collectionsURL()+"/"+c.id+"/query", chromaQueryRequest{
		QueryEmbeddings: [][]float32{embedding},
		NResults:        k,
		Include:         []string{"distances"},
	}, &queryResp)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}

	results := []vector.QueryResult{}

	// Process first group (we only query with one embedding)
	if len(queryResp.IDs) == 0 || len(queryResp.IDs[0]) == 0 {
		return results, nil
	}

	ids := queryResp.IDs[0]
	var distances []float32
	if len(queryResp.Distances) > 0 {
		distances = queryResp.Distances[0]
	}

	for i, id := range ids {
		result := vector.QueryResult{ID: id}
		if i < len(distances) {
			result.Distance = distances[i]
		}
		results = append(results, result)
	}

	c.driver.logger.Debug("queried chroma",
		"collection", c.name,
		"results", len(results),
	)

	return results, nil
}
