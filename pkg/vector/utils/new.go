package vectorutils

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/papercomputeco/vecgate/pkg/vector"
	"github.com/papercomputeco/vecgate/pkg/vector/chroma"
	"github.com/papercomputeco/vecgate/pkg/vector/memory"
	"github.com/papercomputeco/vecgate/pkg/vector/pgvector"
	"github.com/papercomputeco/vecgate/pkg/vector/qdrant"
	"github.com/papercomputeco/vecgate/pkg/vector/sqlitevec"
)

// Supported provider names.
const (
	ProviderMemory   = "memory"
	ProviderSQLite   = "sqlite"
	ProviderChroma   = "chroma"
	ProviderQdrant   = "qdrant"
	ProviderPgvector = "pgvector"
)

type NewVectorDriverOpts struct {
	ProviderType string

	// DBPath is the sqlite database file.
	DBPath string

	// TargetURL addresses remote providers: a Chroma URL, a Qdrant host[:port],
	// or a PostgreSQL connection string.
	TargetURL string

	Dimensions   uint
	MaxBatchSize int
	Logger       *slog.Logger
}

func NewVectorDriver(ctx context.Context, o *NewVectorDriverOpts) (vector.Driver, error) {
	switch o.ProviderType {
	case ProviderMemory:
		return memory.NewDriver(memory.Config{
			MaxBatchSize: o.MaxBatchSize,
		}, o.Logger), nil
	case ProviderSQLite, "":
		return sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:       o.DBPath,
			Dimensions:   o.Dimensions,
			MaxBatchSize: o.MaxBatchSize,
		}, o.Logger)
	case ProviderChroma:
		return chroma.NewDriver(chroma.Config{
			URL: o.TargetURL,
		}, o.Logger)
	case ProviderQdrant:
		host, port, err := splitHostPort(o.TargetURL, qdrant.DefaultPort)
		if err != nil {
			return nil, err
		}
		return qdrant.NewDriver(qdrant.Config{
			Host:         host,
			Port:         port,
			Dimensions:   o.Dimensions,
			MaxBatchSize: o.MaxBatchSize,
		}, o.Logger)
	case ProviderPgvector:
		return pgvector.NewDriver(ctx, pgvector.Config{
			ConnString:   o.TargetURL,
			MaxBatchSize: o.MaxBatchSize,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported vector store provider: %s", o.ProviderType)
	}
}

func splitHostPort(target string, defaultPort int) (string, int, error) {
	if target == "" {
		return "", 0, fmt.Errorf("qdrant host is required")
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// No port given.
		return target, defaultPort, nil
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid qdrant port %q: %w", portStr, err)
	}
	return host, port, nil
}
