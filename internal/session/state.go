package session

// State is a Driver lifecycle state.
type State int

const (
	StateInit State = iota
	StateSampling
	StateCheckpoint
	StateFinalize
	StateDone
	StateAborted
)

var stateNames = map[State]string{
	StateInit:       "INIT",
	StateSampling:   "SAMPLING",
	StateCheckpoint: "CHECKPOINT",
	StateFinalize:   "FINALIZE",
	StateDone:       "DONE",
	StateAborted:    "ABORTED",
}

// String returns the upper-case state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// MarshalText implements encoding.TextMarshaler so states appear by name in
// JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
