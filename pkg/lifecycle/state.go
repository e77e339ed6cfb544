package lifecycle

// State is the server lifecycle state. Transitions only move forward:
// Binding, Serving, StopRequested, ShuttingDown, Stopped.
type State int32

const (
	Binding State = iota
	Serving
	StopRequested
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case Binding:
		return "binding"
	case Serving:
		return "serving"
	case StopRequested:
		return "stop_requested"
	case ShuttingDown:
		return "shutting_down"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
