package lifecycle

import (
	"errors"
	"fmt"
)

// ErrNotRunning is returned by RequestStop outside the Serving state.
var ErrNotRunning = errors.New("Server is not running") //nolint:staticcheck // returned verbatim to clients

// BindError reports that no port could be bound. It is fatal.
type BindError struct {
	Host     string
	BasePort int
	Attempts int
	Err      error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("could not bind %s on ports %d-%d after %d attempts: %v",
		e.Host, e.BasePort, e.BasePort+e.Attempts-1, e.Attempts, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
