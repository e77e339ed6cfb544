// Package servecmder provides the serve command that runs the gateway.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/vecgate/api"
	apimcp "github.com/papercomputeco/vecgate/api/mcp"
	"github.com/papercomputeco/vecgate/pkg/config"
	"github.com/papercomputeco/vecgate/pkg/eventstream"
	"github.com/papercomputeco/vecgate/pkg/eventstream/kafka"
	"github.com/papercomputeco/vecgate/pkg/eventstream/nop"
	"github.com/papercomputeco/vecgate/pkg/eventstream/worker"
	"github.com/papercomputeco/vecgate/pkg/gateway"
	"github.com/papercomputeco/vecgate/pkg/lifecycle"
	"github.com/papercomputeco/vecgate/pkg/logger"
	"github.com/papercomputeco/vecgate/pkg/metrics"
	"github.com/papercomputeco/vecgate/pkg/vector"
	vectorutils "github.com/papercomputeco/vecgate/pkg/vector/utils"
)

const (
	eventsProviderNone  = "none"
	eventsProviderKafka = "kafka"
)

type ServeCommander struct {
	flags struct {
		host           string
		basePort       uint
		portAttempts   uint
		shutdownGrace  string
		indexProvider  string
		indexPath      string
		indexTarget    string
		metric         string
		maxBatchSize   uint
		dimensions     uint
		eventsProvider string
		eventsBrokers  string
		eventsTopic    string
		mcp            bool
		bodyLimit      uint
		logFile        string
	}

	cfg    *config.Config
	debug  bool
	json   bool
	out    io.Writer
	logger *slog.Logger
}

const serveLongDesc string = `Run the vecgate gateway.

The gateway binds the first free port starting at --port on --host, prints
"* Running on http://<host>:<port>" to stdout once it accepts requests, and
serves until POST /stop (or SIGINT/SIGTERM) is received.

Routes:
  POST /add          Add ids and vectors to a collection
  POST /query        Query a collection for the nearest neighbours of a vector
  POST /stop         Stop the gateway
  GET  /ping         Health check
  GET  /collections  Collections known to this process
  GET  /metrics      Prometheus metrics
  *    /mcp          MCP endpoint (with --mcp)

Logs are written to stderr.`

const serveShortDesc string = "Run the vecgate gateway"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ServeFlags, config.ServeFlagKeys())
			cmder.cfg = config.Resolve(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.json, _ = cmd.Flags().GetBool("log-json")
			cmder.out = cmd.OutOrStdout()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return cmder.run(ctx)
		},
	}

	fs := config.ServeFlags
	config.AddStringFlag(cmd, fs, config.FlagHost, &cmder.flags.host)
	config.AddUintFlag(cmd, fs, config.FlagBasePort, &cmder.flags.basePort)
	config.AddUintFlag(cmd, fs, config.FlagPortAttempts, &cmder.flags.portAttempts)
	config.AddStringFlag(cmd, fs, config.FlagShutdownGrace, &cmder.flags.shutdownGrace)
	config.AddStringFlag(cmd, fs, config.FlagIndexProvider, &cmder.flags.indexProvider)
	config.AddStringFlag(cmd, fs, config.FlagIndexPath, &cmder.flags.indexPath)
	config.AddStringFlag(cmd, fs, config.FlagIndexTarget, &cmder.flags.indexTarget)
	config.AddStringFlag(cmd, fs, config.FlagIndexMetric, &cmder.flags.metric)
	config.AddUintFlag(cmd, fs, config.FlagMaxBatchSize, &cmder.flags.maxBatchSize)
	config.AddUintFlag(cmd, fs, config.FlagDimensions, &cmder.flags.dimensions)
	config.AddStringFlag(cmd, fs, config.FlagEventsProvider, &cmder.flags.eventsProvider)
	config.AddStringFlag(cmd, fs, config.FlagEventsBrokers, &cmder.flags.eventsBrokers)
	config.AddStringFlag(cmd, fs, config.FlagEventsTopic, &cmder.flags.eventsTopic)
	config.AddBoolFlag(cmd, fs, config.FlagMCP, &cmder.flags.mcp)
	config.AddUintFlag(cmd, fs, config.FlagBodyLimit, &cmder.flags.bodyLimit)
	config.AddStringFlag(cmd, fs, config.FlagLogFile, &cmder.flags.logFile)

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	if c.cfg == nil {
		c.cfg = config.NewDefaultConfig()
	}

	closeLog, err := c.initLogger(os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	grace, err := time.ParseDuration(c.cfg.Server.ShutdownGrace)
	if err != nil {
		return fmt.Errorf("invalid shutdown grace %q: %w", c.cfg.Server.ShutdownGrace, err)
	}

	metric, err := vector.ParseMetric(c.cfg.Index.Metric)
	if err != nil {
		return err
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: c.cfg.Index.Provider,
		DBPath:       c.cfg.Index.Path,
		TargetURL:    c.cfg.Index.Target,
		Dimensions:   c.cfg.Index.Dimensions,
		MaxBatchSize: int(c.cfg.Index.MaxBatchSize),
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("opening backing index: %w", err)
	}
	defer driver.Close()

	publisher, err := c.newPublisher()
	if err != nil {
		return err
	}
	defer publisher.Close()

	gw, err := gateway.New(ctx, driver, gateway.Config{
		Metric:    metric,
		Publisher: publisher,
		Metrics:   metrics.New(),
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}

	apiConfig := api.Config{BodyLimit: int(c.cfg.Server.BodyLimit)}
	if c.cfg.MCP.Enabled {
		mcpServer, err := apimcp.NewServer(apimcp.Config{
			Gateway: gw,
			Logger:  c.logger,
		})
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		apiConfig.MCPHandler = mcpServer.Handler()
	}

	ctrl := lifecycle.New(lifecycle.Config{
		Host:          c.cfg.Server.Host,
		BasePort:      int(c.cfg.Server.BasePort),
		Attempts:      int(c.cfg.Server.PortAttempts),
		ShutdownGrace: grace,
		Announce:      c.out,
	}, c.logger)

	server := api.NewServer(apiConfig, gw, ctrl, c.logger)

	c.logger.Info("starting gateway",
		"index_provider", c.cfg.Index.Provider,
		"events_provider", c.cfg.Events.Provider,
		"mcp", c.cfg.MCP.Enabled,
	)

	return ctrl.Run(ctx, server)
}

// initLogger logs to console, plus JSON lines to the configured log file.
// The returned func closes the file.
func (c *ServeCommander) initLogger(console *os.File) (func(), error) {
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(c.json),
		logger.WithPretty(!c.json && term.IsTerminal(int(console.Fd()))),
		logger.WithWriter(console),
	)

	if c.cfg.Log.File == "" {
		return func() {}, nil
	}

	f, err := os.OpenFile(c.cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(c.logger, logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))
	return func() { _ = f.Close() }, nil
}

func (c *ServeCommander) newPublisher() (eventstream.Publisher, error) {
	switch c.cfg.Events.Provider {
	case eventsProviderNone, "":
		return nop.NewPublisher(), nil

	case eventsProviderKafka:
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: splitBrokers(c.cfg.Events.Brokers),
			Topic:   c.cfg.Events.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		pool, err := worker.NewPool(&worker.Config{
			Publisher: p,
			Logger:    c.logger,
		})
		if err != nil {
			_ = p.Close()
			return nil, err
		}
		c.logger.Info("publishing collection events to kafka",
			"brokers", c.cfg.Events.Brokers,
			"topic", c.cfg.Events.Topic,
		)
		return pool, nil

	default:
		return nil, errors.New("unsupported events provider: " + c.cfg.Events.Provider)
	}
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
