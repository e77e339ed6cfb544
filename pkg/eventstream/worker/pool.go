// Package worker provides an asynchronous worker pool in front of an
// eventstream.Publisher.
//
// The pool decouples event publication from the gateway's request path, so a
// slow or unreachable broker never delays an add or query response.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/vecgate/pkg/eventstream"
	"github.com/papercomputeco/vecgate/pkg/logger"
)

var (
	defaultNumWorkers   uint = 2
	defaultJobQueueSize uint = 256
)

var (
	// ErrQueueFull is returned by Publish when the event was dropped.
	ErrQueueFull = errors.New("event queue full, event dropped")

	// ErrClosed is returned by Publish after Close.
	ErrClosed = errors.New("event pool closed")
)

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives the events. It is closed by Pool.Close.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool publishes events asynchronously via a worker pool. It implements
// eventstream.Publisher.
type Pool struct {
	config *Config
	queue  chan *eventstream.CollectionEvent
	wg     sync.WaitGroup
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ eventstream.Publisher = (*Pool)(nil)

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("publisher is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan *eventstream.CollectionEvent, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Publish enqueues event without waiting for the backend. Queued events are
// published under a fresh context: the caller's context may belong to a
// request that is recycled once its handler returns.
func (p *Pool) Publish(_ context.Context, event *eventstream.CollectionEvent) error {
	if event == nil {
		return eventstream.ErrNilEvent
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrClosed
	}

	select {
	case p.queue <- event:
		p.logger.Debug("event queued",
			"event_type", event.EventType,
			"collection", event.Collection,
		)
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events, waits for queued events to drain, and closes
// the wrapped publisher. Call this after the HTTP server has stopped.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()
	return p.config.Publisher.Close()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("event worker started", "worker_id", id)

	for event := range p.queue {
		if err := p.config.Publisher.Publish(context.Background(), event); err != nil {
			p.logger.Warn("event publish failed",
				"event_type", event.EventType,
				"collection", event.Collection,
				"error", err,
			)
		}
	}

	p.logger.Debug("event worker stopped", "worker_id", id)
}
