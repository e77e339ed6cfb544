package eventstream

import "context"

// Publisher publishes collection events to an event stream backend.
type Publisher interface {
	Publish(ctx context.Context, event *CollectionEvent) error
	Close() error
}
