package connection

// State is the connection lifecycle state. Transitions are strictly
// sequenced: Disconnected→Connecting→{Connected|Error};
// Connected→Reconnecting→{Connected|Error} up to the retry ceiling;
// any state→Disconnected via Disconnect.
type State int

const (
	// StateDisconnected is the initial and post-Disconnect state.
	StateDisconnected State = iota
	// StateConnecting is an in-flight initial handshake.
	StateConnecting
	// StateConnected means the control channel is up.
	StateConnected
	// StateReconnecting is the reconnect protocol running after an
	// unexpected control-channel close.
	StateReconnecting
	// StateError is terminal until an explicit Connect or Disconnect.
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
