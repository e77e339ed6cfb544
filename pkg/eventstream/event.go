package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeCollectionCreated is emitted after a collection is created in the backing index.
	EventTypeCollectionCreated = "vecgate.collection.created"

	// EventTypeEntriesAdded is emitted after every chunk of an add request was accepted.
	EventTypeEntriesAdded = "vecgate.entries.added"
)

// CollectionEvent is a transport-neutral event payload about a collection.
type CollectionEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`
	Collection    string    `json:"collection"`

	// Count and Chunks are set for EventTypeEntriesAdded.
	Count  int `json:"count,omitempty"`
	Chunks int `json:"chunks,omitempty"`
}

// NewCollectionEvent builds an event with a fresh id and the current time.
func NewCollectionEvent(eventType, collection string) *CollectionEvent {
	return &CollectionEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     eventType,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Collection:    collection,
	}
}
