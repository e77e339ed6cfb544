package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection is returned when the backing index connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrDimensionMismatch is returned when a vector does not match the
	// dimensionality of its collection.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// StorageError reports a failed backing index operation. Its message carries
// the underlying error text verbatim so it can be forwarded to clients.
type StorageError struct {
	// Op is the operation that failed: "open", "create", "add", "query" or "batch_size".
	Op string

	// Collection is the collection name, empty for driver-wide operations.
	Collection string

	Err error
}

func (e *StorageError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s collection %q failed: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err as a *StorageError unless it already is one.
func NewStorageError(op, collection string, err error) error {
	if err == nil {
		return nil
	}

	var se *StorageError
	if errors.As(err, &se) {
		return err
	}

	return &StorageError{Op: op, Collection: collection, Err: err}
}
