package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent vecgate configuration stored as config.toml
// in the .vecgate/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Server  ServerConfig `toml:"server"`
	Index   IndexConfig  `toml:"index"`
	Events  EventsConfig `toml:"events"`
	MCP     MCPConfig    `toml:"mcp"`
	Log     LogConfig    `toml:"log"`
}

// ServerConfig holds the bind and shutdown settings of the gateway.
type ServerConfig struct {
	Host          string `toml:"host,omitempty"`
	BasePort      uint   `toml:"base_port,omitempty"`
	PortAttempts  uint   `toml:"port_attempts,omitempty"`
	ShutdownGrace string `toml:"shutdown_grace,omitempty"`

	// BodyLimit caps request bodies in bytes. Add batches are chunked after
	// decoding, so this bounds a whole batch, not a chunk.
	BodyLimit uint `toml:"body_limit,omitempty"`
}

// IndexConfig selects and configures the backing vector index.
type IndexConfig struct {
	Provider     string `toml:"provider,omitempty"`
	Path         string `toml:"path,omitempty"`
	Target       string `toml:"target,omitempty"`
	Metric       string `toml:"metric,omitempty"`
	MaxBatchSize uint   `toml:"max_batch_size,omitempty"`
	Dimensions   uint   `toml:"dimensions,omitempty"`
}

// EventsConfig holds collection event publishing settings.
// Brokers is a comma separated list of host:port pairs.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// MCPConfig toggles the MCP endpoint.
type MCPConfig struct {
	Enabled bool `toml:"enabled,omitempty"`
}

// LogConfig holds log output settings. Console logs always go to stderr.
type LogConfig struct {
	// File additionally receives JSON logs when set.
	File string `toml:"file,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(key string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			n := *field(c)
			if n == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(n), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.host":          stringKey(func(c *Config) *string { return &c.Server.Host }),
	"server.base_port":     uintKey("server.base_port", func(c *Config) *uint { return &c.Server.BasePort }),
	"server.port_attempts": uintKey("server.port_attempts", func(c *Config) *uint { return &c.Server.PortAttempts }),
	"server.shutdown_grace": {
		get: func(c *Config) string { return c.Server.ShutdownGrace },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for server.shutdown_grace: %w", err)
			}
			c.Server.ShutdownGrace = v
			return nil
		},
	},
	"server.body_limit":    uintKey("server.body_limit", func(c *Config) *uint { return &c.Server.BodyLimit }),
	"index.provider":       stringKey(func(c *Config) *string { return &c.Index.Provider }),
	"index.path":           stringKey(func(c *Config) *string { return &c.Index.Path }),
	"index.target":         stringKey(func(c *Config) *string { return &c.Index.Target }),
	"index.metric":         stringKey(func(c *Config) *string { return &c.Index.Metric }),
	"index.max_batch_size": uintKey("index.max_batch_size", func(c *Config) *uint { return &c.Index.MaxBatchSize }),
	"index.dimensions":     uintKey("index.dimensions", func(c *Config) *uint { return &c.Index.Dimensions }),
	"events.provider":      stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":       stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":         stringKey(func(c *Config) *string { return &c.Events.Topic }),
	"mcp.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.MCP.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for mcp.enabled: %w", err)
			}
			c.MCP.Enabled = b
			return nil
		},
	},
	"log.file": stringKey(func(c *Config) *string { return &c.Log.File }),
}
