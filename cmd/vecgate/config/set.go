package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vecgate/pkg/cliui"
	"github.com/papercomputeco/vecgate/pkg/config"
	"github.com/papercomputeco/vecgate/pkg/dotdir"
)

const setLongDesc string = `Set a configuration value.

Sets the given key to the provided value in the config.toml file
stored in the .vecgate/ directory, creating ~/.vecgate/ when no
directory exists yet. Keys use dotted notation matching the TOML
section structure.

Examples:
  vecgate config set index.provider chroma
  vecgate config set index.target http://localhost:8000
  vecgate config set server.shutdown_grace 10s
  vecgate config set mcp.enabled true`

const setShortDesc string = "Set a configuration value"

func newSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: setShortDesc,
		Long:  setLongDesc,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return runSet(cmd.OutOrStdout(), args[0], args[1], configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runSet(w io.Writer, key, value, configDir string) error {
	if !config.IsValidConfigKey(key) {
		return unknownKeyError(key)
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfger.GetTarget() == "" {
		home, err := dotdir.NewManager().EnsureHome()
		if err != nil {
			return err
		}
		cfger, err = config.NewConfiger(home)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	if err := cfger.SetConfigValue(key, value); err != nil {
		return err
	}

	fmt.Fprintf(w, "  %s %s %s %s\n",
		cliui.SuccessMark,
		cliui.KeyStyle.Render(key),
		cliui.DimStyle.Render("="),
		cliui.ValueStyle.Render(value),
	)

	return nil
}
