// Package sqlitevec provides a SQLite-backed vector driver using sqlite-vec.
//
// Every collection gets a row in a catalog table plus two tables of its own:
// a mapping from string ids to integer rowids, and a vec0 virtual table holding
// the embeddings. vec0 tables need a fixed dimensionality, so when none is
// configured the table is created by the first Add using that batch's width.
package sqlitevec

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/papercomputeco/vecgate/pkg/vector"
)

// DefaultMaxBatchSize is advertised when Config.MaxBatchSize is zero.
const DefaultMaxBatchSize = 5461

// maxKNN is the largest k sqlite-vec accepts in a vec0 KNN query.
const maxKNN = 4096

// Driver implements vector.Driver using SQLite with sqlite-vec.
type Driver struct {
	db           *sql.DB
	dimensions   uint
	maxBatchSize int
	logger       *slog.Logger
}

// Config holds configuration for the SQLite vec driver.
type Config struct {
	// DBPath is the path to the SQLite database file.
	// Use ":memory:" for an in-memory database.
	DBPath string

	// Dimensions fixes the embedding width of newly created collections.
	// Zero defers the choice to the first Add of each collection.
	Dimensions uint

	// MaxBatchSize is the advertised per-Add entry limit.
	MaxBatchSize int
}

// NewDriver opens (or creates) the database at c.DBPath.
func NewDriver(c Config, logger *slog.Logger) (*Driver, error) {
	// enable connection to have sqlite-vec extension
	sqlite_vec.Auto()

	if c.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	maxBatch := c.MaxBatchSize
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatchSize
	}

	db, err := sql.Open("sqlite3", c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	// Verify sqlite-vec is loaded
	var vecVersion string
	if err := db.QueryRow("SELECT vec_version()").Scan(&vecVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite-vec not available: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS vec_collections (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			metric TEXT NOT NULL,
			dimensions INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating collections table: %w", err)
	}

	logger.Info("sqlite-vec vector driver initialized",
		"db_path", c.DBPath,
		"dimensions", c.Dimensions,
		"vec_version", vecVersion,
	)

	return &Driver{
		db:           db,
		dimensions:   c.Dimensions,
		maxBatchSize: maxBatch,
		logger:       logger,
	}, nil
}

// OpenCollection looks the collection up in the catalog.
func (d *Driver) OpenCollection(ctx context.Context, name string) (vector.Collection, bool, error) {
	var (
		id     int64
		metric string
		dims   int64
	)

	err := d.db.QueryRowContext(ctx,
		`SELECT id, metric, dimensions FROM vec_collections WHERE name = ?`, name,
	).Scan(&id, &metric, &dims)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("looking up collection %s: %w", name, err)
	}

	return &Collection{
		driver:     d,
		id:         id,
		name:       name,
		metric:     vector.Metric(metric),
		dimensions: int(dims),
	}, true, nil
}

// CreateCollection registers the collection and creates its id mapping table.
// The vec0 table is created here too when the driver has fixed dimensions.
func (d *Driver) CreateCollection(ctx context.Context, name string, metric vector.Metric) (vector.Collection, error) {
	if _, err := vecMetric(metric); err != nil {
		return nil, err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO vec_collections(name, metric, dimensions) VALUES (?, ?, 0)`,
		name, string(metric),
	)
	if err != nil {
		return nil, fmt.Errorf("inserting collection %s: %w", name, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting id for collection %s: %w", name, err)
	}

	coll := &Collection{
		driver: d,
		id:     id,
		name:   name,
		metric: metric,
	}

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			doc_id TEXT NOT NULL UNIQUE
		)
	`, coll.documentsTable())); err != nil {
		return nil, fmt.Errorf("creating documents table for %s: %w", name, err)
	}

	if d.dimensions > 0 {
		if err := coll.createEmbeddingsTable(ctx, tx, int(d.dimensions)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	coll.dimensions = int(d.dimensions)

	d.logger.Info("created sqlite-vec collection",
		"collection", name,
		"metric", string(metric),
	)

	return coll, nil
}

// MaxBatchSize returns the configured per-Add entry limit.
func (d *Driver) MaxBatchSize(_ context.Context) (int, error) {
	return d.maxBatchSize, nil
}

// Close releases resources held by the driver.
func (d *Driver) Close() error {
	return d.db.Close()
}

// Collection is a handle to one catalog entry.
type Collection struct {
	driver *Driver
	id     int64
	name   string
	metric vector.Metric

	mu         sync.Mutex
	dimensions int
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

func (c *Collection) documentsTable() string {
	return fmt.Sprintf("vec_documents_%d", c.id)
}

func (c *Collection) embeddingsTable() string {
	return fmt.Sprintf("vec_embeddings_%d", c.id)
}

// createEmbeddingsTable creates the vec0 table and records its width in the catalog.
func (c *Collection) createEmbeddingsTable(ctx context.Context, tx *sql.Tx, dims int) error {
	metric, err := vecMetric(c.metric)
	if err != nil {
		return err
	}

	createVec := fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d] distance_metric=%s)`,
		c.embeddingsTable(), dims, metric,
	)
	if _, err := tx.ExecContext(ctx, createVec); err != nil {
		return fmt.Errorf("creating vec0 table for %s: %w", c.name, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE vec_collections SET dimensions = ? WHERE id = ?`, dims, c.id,
	); err != nil {
		return fmt.Errorf("recording dimensions for %s: %w", c.name, err)
	}

	return nil
}

// Add stores ids and vectors in one transaction.
// If an id already exists, its embedding is replaced.
func (c *Collection) Add(ctx context.Context, ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("got %d ids and %d vectors", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dims := c.dimensions
	if dims == 0 {
		dims = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dims {
			return fmt.Errorf("%w: entry %s has %d dimensions, collection has %d",
				vector.ErrDimensionMismatch, ids[i], len(v), dims)
		}
	}

	tx, err := c.driver.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if c.dimensions == 0 {
		if err := c.createEmbeddingsTable(ctx, tx, dims); err != nil {
			return err
		}
	}

	for i, id := range ids {
		if err := c.upsert(ctx, tx, id, vectors[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	c.dimensions = dims

	c.driver.logger.Debug("added entries to sqlite-vec",
		"collection", c.name,
		"count", len(ids),
	)

	return nil
}

func (c *Collection) upsert(ctx context.Context, tx *sql.Tx, id string, embedding []float32) error {
	embBlob := serializeFloat32(embedding)

	var rowID int64
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT rowid FROM %s WHERE doc_id = ?`, c.documentsTable()), id,
	).Scan(&rowID)

	switch {
	case err == nil:
		// vec0 does not support UPDATE
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE rowid = ?`, c.embeddingsTable()), rowID,
		); err != nil {
			return fmt.Errorf("deleting old embedding for %s: %w", id, err)
		}

	case errors.Is(err, sql.ErrNoRows):
		result, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s(doc_id) VALUES (?)`, c.documentsTable()), id,
		)
		if err != nil {
			return fmt.Errorf("inserting document %s: %w", id, err)
		}

		rowID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting rowid for %s: %w", id, err)
		}

	default:
		return fmt.Errorf("checking for existing document %s: %w", id, err)
	}

	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s(rowid, embedding) VALUES (?, ?)`, c.embeddingsTable()),
		rowID, embBlob,
	); err != nil {
		return fmt.Errorf("inserting embedding for %s: %w", id, err)
	}

	return nil
}

// Query runs a KNN match against the collection's vec0 table.
func (c *Collection) Query(ctx context.Context, embedding []float32, k int) ([]vector.QueryResult, error) {
	c.mu.Lock()
	dims := c.dimensions
	c.mu.Unlock()

	results := []vector.QueryResult{}
	if dims == 0 || k <= 0 {
		return results, nil
	}

	if len(embedding) != dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, collection has %d",
			vector.ErrDimensionMismatch, len(embedding), dims)
	}

	// Larger requests get at most maxKNN results.
	k = min(k, maxKNN)

	rows, err := c.driver.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT
			d.doc_id,
			ve.distance
		FROM %s ve
		INNER JOIN %s d ON d.rowid = ve.rowid
		WHERE ve.embedding MATCH ?
			AND ve.k = ?
		ORDER BY ve.distance
	`, c.embeddingsTable(), c.documentsTable()), serializeFloat32(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			docID    string
			distance float64
		)
		if err := rows.Scan(&docID, &distance); err != nil {
			return nil, fmt.Errorf("scanning query result: %w", err)
		}

		results = append(results, vector.QueryResult{
			ID:       docID,
			Distance: float32(distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating query results: %w", err)
	}

	c.driver.logger.Debug("queried sqlite-vec",
		"collection", c.name,
		"results", len(results),
	)

	return results, nil
}

// vecMetric maps a metric onto a vec0 distance_metric option.
func vecMetric(m vector.Metric) (string, error) {
	switch m {
	case vector.MetricCosine:
		return "cosine", nil
	case vector.MetricL2:
		return "l2", nil
	default:
		return "", fmt.Errorf("sqlite-vec does not support the %q distance metric", m)
	}
}

// serializeFloat32 converts a float32 slice to a little-endian byte slice
// suitable for sqlite-vec BLOB format.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
