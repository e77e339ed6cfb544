// Package configcmder provides the config command for managing persistent
// vecgate configuration stored in the .vecgate/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent vecgate configuration.

Configuration is stored as config.toml in the .vecgate/ directory and provides
default values for command flags. CLI flags and VECGATE_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.host, server.base_port, server.port_attempts, server.shutdown_grace,
  index.provider, index.path, index.target, index.metric,
  index.max_batch_size, index.dimensions,
  events.provider, events.brokers, events.topic,
  mcp.enabled

Use subcommands to get, set, or list configuration values:
  vecgate config set <key> <value>    Set a configuration value
  vecgate config get <key>            Get a configuration value
  vecgate config list                 List all configuration values

Examples:
  vecgate config set index.provider qdrant
  vecgate config set index.target localhost:6334
  vecgate config get server.base_port
  vecgate config list`

const configShortDesc string = "Manage persistent vecgate configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
