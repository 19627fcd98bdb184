package protocol

// State is the engine lifecycle state.
type State int

const (
	// StateIdle is a new engine that has not connected.
	StateIdle State = iota
	// StateConnecting covers transport start and the handshake.
	StateConnecting
	// StateReady accepts content and control commands.
	StateReady
	// StateClosing is set while Close tears the engine down.
	StateClosing
	// StateClosed is terminal. Engines are not reused.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
