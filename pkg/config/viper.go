package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/vecgate/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable viper consults.
const EnvPrefix = "VECGATE"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the VECGATE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (VECGATE_SERVER_BASE_PORT, VECGATE_INDEX_PROVIDER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Server
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.base_port", d.Server.BasePort)
	v.SetDefault("server.port_attempts", d.Server.PortAttempts)
	v.SetDefault("server.shutdown_grace", d.Server.ShutdownGrace)
	v.SetDefault("server.body_limit", d.Server.BodyLimit)

	// Index
	v.SetDefault("index.provider", d.Index.Provider)
	v.SetDefault("index.path", d.Index.Path)
	v.SetDefault("index.target", d.Index.Target)
	v.SetDefault("index.metric", d.Index.Metric)
	v.SetDefault("index.max_batch_size", d.Index.MaxBatchSize)
	v.SetDefault("index.dimensions", d.Index.Dimensions)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// MCP
	v.SetDefault("mcp.enabled", d.MCP.Enabled)

	// Log
	v.SetDefault("log.file", d.Log.File)
}

// Resolve snapshots the effective configuration held by v.
func Resolve(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Server: ServerConfig{
			Host:          v.GetString("server.host"),
			BasePort:      v.GetUint("server.base_port"),
			PortAttempts:  v.GetUint("server.port_attempts"),
			ShutdownGrace: v.GetString("server.shutdown_grace"),
			BodyLimit:     v.GetUint("server.body_limit"),
		},
		Index: IndexConfig{
			Provider:     v.GetString("index.provider"),
			Path:         v.GetString("index.path"),
			Target:       v.GetString("index.target"),
			Metric:       v.GetString("index.metric"),
			MaxBatchSize: v.GetUint("index.max_batch_size"),
			Dimensions:   v.GetUint("index.dimensions"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
		MCP: MCPConfig{
			Enabled: v.GetBool("mcp.enabled"),
		},
		Log: LogConfig{
			File: v.GetString("log.file"),
		},
	}
}
