package client

// State is the lifecycle state of a Transport.
type State int

const (
	// StateIdle: no handle. Initial state and the state after Disconnect.
	StateIdle State = iota
	// StateConnecting: handle being dialed.
	StateConnecting
	// StateOpen: handle usable for Send.
	StateOpen
	// StateClosed: handle lost; a reconnect is pending.
	StateClosed
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}
