package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline.
type Flag struct {
	// Name is the long flag name (e.g. "port").
	Name string

	// Shorthand is the one-letter short flag (e.g. "p"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.base_port").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag, AddBoolFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagHost           = "host"
	FlagBasePort       = "port"
	FlagPortAttempts   = "port-attempts"
	FlagShutdownGrace  = "shutdown-grace"
	FlagIndexProvider  = "index-provider"
	FlagIndexPath      = "index-path"
	FlagIndexTarget    = "index-target"
	FlagIndexMetric    = "metric"
	FlagMaxBatchSize   = "max-batch-size"
	FlagDimensions     = "dimensions"
	FlagEventsProvider = "events-provider"
	FlagEventsBrokers  = "events-brokers"
	FlagEventsTopic    = "events-topic"
	FlagMCP            = "mcp"
	FlagBodyLimit      = "body-limit"
	FlagLogFile        = "log-file"
)

// ServeFlags is the registry for the flags of the gateway command.
var ServeFlags = FlagSet{
	FlagHost:           {Name: "host", ViperKey: "server.host", Description: "Host interface to bind"},
	FlagBasePort:       {Name: "port", Shorthand: "p", ViperKey: "server.base_port", Description: "First port to try (0 lets the OS pick)"},
	FlagPortAttempts:   {Name: "port-attempts", ViperKey: "server.port_attempts", Description: "Number of consecutive ports to try"},
	FlagShutdownGrace:  {Name: "shutdown-grace", ViperKey: "server.shutdown_grace", Description: "Time allowed for in-flight requests on stop"},
	FlagIndexProvider:  {Name: "index-provider", ViperKey: "index.provider", Description: "Backing index provider (memory, sqlite, chroma, qdrant, pgvector)"},
	FlagIndexPath:      {Name: "index-path", ViperKey: "index.path", Description: "Storage path for the sqlite provider"},
	FlagIndexTarget:    {Name: "index-target", ViperKey: "index.target", Description: "URL or DSN of a networked provider"},
	FlagIndexMetric:    {Name: "metric", Shorthand: "m", ViperKey: "index.metric", Description: "Distance metric for new collections (cosine, l2, ip)"},
	FlagMaxBatchSize:   {Name: "max-batch-size", ViperKey: "index.max_batch_size", Description: "Advertised batch limit for providers without a native one"},
	FlagDimensions:     {Name: "dimensions", ViperKey: "index.dimensions", Description: "Vector dimensionality (0 infers from the first add)"},
	FlagEventsProvider: {Name: "events-provider", ViperKey: "events.provider", Description: "Collection event publisher (none, kafka)"},
	FlagEventsBrokers:  {Name: "events-brokers", ViperKey: "events.brokers", Description: "Comma separated Kafka brokers"},
	FlagEventsTopic:    {Name: "events-topic", ViperKey: "events.topic", Description: "Kafka topic for collection events"},
	FlagMCP:            {Name: "mcp", ViperKey: "mcp.enabled", Description: "Serve the MCP endpoint at /mcp"},
	FlagBodyLimit:      {Name: "body-limit", ViperKey: "server.body_limit", Description: "Maximum request body size in bytes"},
	FlagLogFile:        {Name: "log-file", ViperKey: "log.file", Description: "Also write JSON logs to this file"},
}

// ServeFlagKeys lists every ServeFlags registry key.
func ServeFlagKeys() []string {
	return []string{
		FlagHost, FlagBasePort, FlagPortAttempts, FlagShutdownGrace, FlagBodyLimit,
		FlagIndexProvider, FlagIndexPath, FlagIndexTarget, FlagIndexMetric,
		FlagMaxBatchSize, FlagDimensions,
		FlagEventsProvider, FlagEventsBrokers, FlagEventsTopic,
		FlagMCP, FlagLogFile,
	}
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *bool) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}

func defaultBool(viperKey string) bool {
	v := viper.New()
	setViperDefaults(v)
	return v.GetBool(viperKey)
}
