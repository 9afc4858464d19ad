package widget

type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateAttached
	StateFailed
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "UNINITIALIZED"
	case StateInitializing:
		return "INITIALIZING"
	case StateAttached:
		return "ATTACHED"
	case StateFailed:
		return "FAILED"
	case StateDestroyed:
		return "DESTROYED"
	default:
		return "UNKNOWN"
	}
}

// MarshalText lets the state appear by name in JSON responses.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s State) IsTerminal() bool {
	return s == StateDestroyed
}
