// Package lifecycle owns the gateway process lifecycle: it finds a free port,
// announces it on stdout for the parent process, serves until a stop is
// requested, and shuts the server down in order.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/papercomputeco/vecgate/pkg/logger"
)

const (
	DefaultHost          = "127.0.0.1"
	DefaultBasePort      = 5000
	DefaultPortAttempts  = 4000
	DefaultShutdownGrace = 5 * time.Second

	maxPort = 65535
)

// AnnounceFormat is the line parents match to find the gateway URL. Its shape must not change.
const AnnounceFormat = "* Running on http://%s:%d\n"

// Server is the request-serving loop driven by the controller.
type Server interface {
	// Serve blocks serving ln until Shutdown is called.
	Serve(ln net.Listener) error

	// Shutdown stops accepting connections and waits for in-flight requests.
	Shutdown(ctx context.Context) error
}

// Config configures a Controller.
type Config struct {
	Host string

	// BasePort is the first port probed. Zero lets the OS pick one.
	BasePort int

	// Attempts bounds how many consecutive ports are probed.
	Attempts int

	// ShutdownGrace bounds how long in-flight requests may run after a stop.
	ShutdownGrace time.Duration

	// Announce receives the announcement line. Defaults to os.Stdout.
	Announce io.Writer
}

// Controller runs the state machine for one server.
type Controller struct {
	cfg    Config
	logger *slog.Logger

	state    atomic.Int32
	stop     chan struct{}
	stopOnce sync.Once

	mu   sync.Mutex
	addr *net.TCPAddr
}

// New creates a controller in the Binding state.
func New(cfg Config, log *slog.Logger) *Controller {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = DefaultPortAttempts
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = DefaultShutdownGrace
	}
	if cfg.Announce == nil {
		cfg.Announce = os.Stdout
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Controller{
		cfg:    cfg,
		logger: log,
		stop:   make(chan struct{}),
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

// Addr returns the bound address, or nil before Bind succeeds.
func (c *Controller) Addr() *net.TCPAddr {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// RequestStop moves Serving to StopRequested and wakes Run. Any other state
// returns ErrNotRunning, so only the first of several stops succeeds.
func (c *Controller) RequestStop() error {
	if !c.state.CompareAndSwap(int32(Serving), int32(StopRequested)) {
		return ErrNotRunning
	}
	c.logger.Info("stop requested")
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}

// Bind listens on the first free port from BasePort on. The listener it
// returns is the one that is served, so the announced port is the bound one.
func (c *Controller) Bind(ctx context.Context) (net.Listener, error) {
	lc := &net.ListenConfig{}

	attempts := c.cfg.Attempts
	if c.cfg.BasePort == 0 {
		attempts = 1
	}

	var lastErr error
	for i := range attempts {
		port := c.cfg.BasePort + i
		if port > maxPort {
			break
		}

		addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(port))
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err == nil {
			tcpAddr := ln.Addr().(*net.TCPAddr)
			c.mu.Lock()
			c.addr = tcpAddr
			c.mu.Unlock()
			c.logger.Info("bound listener", "addr", tcpAddr.String(), "attempts", i+1)
			return ln, nil
		}

		lastErr = err
		if !errors.Is(err, syscall.EADDRINUSE) {
			break
		}
		c.logger.Debug("port in use", "port", port)
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("port range exceeds %d", maxPort)
	}
	return nil, &BindError{
		Host:     c.cfg.Host,
		BasePort: c.cfg.BasePort,
		Attempts: attempts,
		Err:      lastErr,
	}
}

// Run binds, announces, serves until a stop is requested (or ctx is done),
// then shuts srv down. It returns a *BindError when no port is free.
func (c *Controller) Run(ctx context.Context, srv Server) error {
	ln, err := c.Bind(ctx)
	if err != nil {
		return err
	}

	// Serving is stored before the first connection can be accepted, so a
	// stop arriving with the first request is honored.
	c.state.Store(int32(Serving))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	if err := c.announce(); err != nil {
		c.logger.Error("failed to write announcement", "error", err)
	}

	var runErr error
	served := false
	select {
	case <-c.stop:
	case <-ctx.Done():
		c.logger.Info("received shutdown signal")
		_ = c.RequestStop()
	case err := <-serveErr:
		// Serving ended on its own; pass through StopRequested so no state is skipped.
		served = true
		if err == nil {
			err = errors.New("server exited without a stop request")
		}
		runErr = fmt.Errorf("serving: %w", err)
		_ = c.RequestStop()
	}

	c.state.Store(int32(ShuttingDown))
	c.logger.Info("shutting down", "grace", c.cfg.ShutdownGrace)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.logger.Error("shutdown did not complete", "error", err)
		runErr = errors.Join(runErr, fmt.Errorf("shutting down: %w", err))
	}

	if !served {
		if err := <-serveErr; err != nil && runErr == nil {
			runErr = fmt.Errorf("serving: %w", err)
		}
	}

	c.state.Store(int32(Stopped))
	c.logger.Info("stopped")
	return runErr
}

func (c *Controller) announce() error {
	addr := c.Addr()
	ip := addr.IP
	if ip.IsUnspecified() {
		ip = net.IPv4(127, 0, 0, 1)
	}
	_, err := fmt.Fprintf(c.cfg.Announce, AnnounceFormat, ip.String(), addr.Port)
	return err
}
