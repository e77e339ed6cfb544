package config

import (
	"github.com/papercomputeco/vecgate/api"
	"github.com/papercomputeco/vecgate/pkg/lifecycle"
	"github.com/papercomputeco/vecgate/pkg/vector"
	vectorutils "github.com/papercomputeco/vecgate/pkg/vector/utils"
)

const (
	defaultShutdownGrace = "5s"

	defaultIndexPath    = "vecgate.db"
	defaultMaxBatchSize = 5461

	defaultEventsProvider = "none"
	defaultEventsTopic    = "vecgate.events"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Host:          lifecycle.DefaultHost,
			BasePort:      lifecycle.DefaultBasePort,
			PortAttempts:  lifecycle.DefaultPortAttempts,
			ShutdownGrace: defaultShutdownGrace,
			BodyLimit:     api.DefaultBodyLimit,
		},
		Index: IndexConfig{
			Provider:     vectorutils.ProviderSQLite,
			Path:         defaultIndexPath,
			Metric:       string(vector.DefaultMetric),
			MaxBatchSize: defaultMaxBatchSize,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
