package cluster

// State is a phase in the lifecycle of a Server
type State int32

const (
	// Idle indicates a Server which has not been started
	Idle State = iota
	// Listening indicates a Server which is waiting for its aggregation connection
	Listening
	// Serving indicates a Server which is merging batches from its aggregation connection
	Serving
	// ShuttingDown indicates a Server which has been asked to stop, but whose loop has not yet exited
	ShuttingDown
	// Stopped indicates a Server whose loop has exited
	Stopped
)

// String returns a textual representation of this State
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Serving:
		return "serving"
	case ShuttingDown:
		return "shutting down"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}
