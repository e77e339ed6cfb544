// Package stopcmder provides the stop command, which asks a running gateway
// to shut down.
package stopcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/vecgate/pkg/cliui"
)

const stopLongDesc string = `Stop a running vecgate gateway.

Sends POST /stop to the gateway at --url, the address printed in its
"* Running on" line. The gateway finishes in-flight requests and exits.

Examples:
  vecgate stop --url http://127.0.0.1:5000`

const stopShortDesc string = "Stop a running gateway"

type stopCommander struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

func NewStopCmd() *cobra.Command {
	cmder := &stopCommander{}

	cmd := &cobra.Command{
		Use:   "stop",
		Short: stopShortDesc,
		Long:  stopLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.client = &http.Client{Timeout: cmder.timeout}
			return cliui.Step(cmd.OutOrStdout(), "Stopping gateway at "+cmder.url, func() error {
				return cmder.run(cmd.Context())
			})
		},
	}

	cmd.Flags().StringVarP(&cmder.url, "url", "u", "http://127.0.0.1:5000", "Base URL of the running gateway")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 10*time.Second, "Time to wait for the gateway to answer")

	return cmd
}

func (c *stopCommander) run(ctx context.Context) error {
	endpoint := strings.TrimRight(c.url, "/") + "/stop"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return fmt.Errorf("building stop request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending stop request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("reading stop response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway refused stop (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return nil
}
