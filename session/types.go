// Package session holds the live-session core: the turn-taking coordinator,
// the per-connection session wiring, the stats aggregator and the session
// registry.
package session

// CallState tracks the call lifecycle.
type CallState int

const (
	CallIdle CallState = iota
	CallConnecting
	CallConnected
	CallError
)

func (s CallState) String() string {
	switch s {
	case CallConnecting:
		return "connecting"
	case CallConnected:
		return "connected"
	case CallError:
		return "error"
	default:
		return "idle"
	}
}

// Turn names the party currently holding the floor.
type Turn int

const (
	TurnUser Turn = iota
	TurnAssistant
)

func (t Turn) String() string {
	if t == TurnAssistant {
		return "assistant"
	}
	return "user"
}

// State is a point-in-time snapshot of one session. The coordinator is the
// sole writer of Muted and Turn; everything else reads snapshots.
type State struct {
	RunID     string
	CallState CallState
	Muted     bool
	Turn      Turn
}
