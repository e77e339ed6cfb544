package api

import (
	"context"
	"log/slog"
	"net"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/vecgate/pkg/gateway"
)

// Stopper receives stop requests from the /stop route.
type Stopper interface {
	RequestStop() error
}

// Server is the HTTP front of the gateway.
type Server struct {
	config  Config
	gateway *gateway.Gateway
	stopper Stopper
	logger  *slog.Logger
	app     *fiber.App
}

// NewServer creates a new API server. The stopper is usually the lifecycle
// controller that runs this server.
func NewServer(config Config, gw *gateway.Gateway, stopper Stopper, logger *slog.Logger) *Server {
	bodyLimit := config.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = DefaultBodyLimit
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             bodyLimit,
	})

	s := &Server{
		config:  config,
		gateway: gw,
		stopper: stopper,
		logger:  logger,
		app:     app,
	}

	app.Post("/add", s.handleAdd)
	app.Post("/query", s.handleQuery)
	app.Post("/stop", s.handleStop)
	app.Get("/ping", s.handlePing)
	app.Get("/collections", s.handleCollections)
	app.Get("/metrics", adaptor.HTTPHandler(gw.Metrics().Handler()))

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s
}

// Serve serves requests on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("starting API server",
		"listen", ln.Addr().String(),
	)
	return s.app.Listener(ln)
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
