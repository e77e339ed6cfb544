// Package vecgatecmder builds the root vecgate command.
package vecgatecmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/vecgate/cmd/vecgate/config"
	servecmder "github.com/papercomputeco/vecgate/cmd/vecgate/serve"
	stopcmder "github.com/papercomputeco/vecgate/cmd/vecgate/stop"
	versioncmder "github.com/papercomputeco/vecgate/cmd/version"
)

const vecgateLongDesc string = `vecgate is a local HTTP gateway in front of a vector index.

Running vecgate with no subcommand starts the gateway, exactly like
"vecgate serve". The gateway announces its address on stdout:
  * Running on http://127.0.0.1:5000

Other commands:
  vecgate config     Manage persistent configuration
  vecgate stop       Stop a running gateway
  vecgate version    Print version information`

const vecgateShortDesc string = "vecgate - local vector index gateway"

func NewVecgateCmd() *cobra.Command {
	cmd := servecmder.NewServeCmd()
	cmd.Use = "vecgate"
	cmd.Short = vecgateShortDesc
	cmd.Long = vecgateLongDesc
	cmd.SilenceUsage = true

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	cmd.PersistentFlags().String("config-dir", "", "Override the .vecgate/ config directory")

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(stopcmder.NewStopCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
