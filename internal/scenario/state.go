package scenario

import "github.com/charmbracelet/log"

// State is the lifecycle state of the Orchestrator.
type State int

const (
	Idle State = iota
	CommandsPrepared
	PortsProbed
	ProcessesRunning
	OutputsParsed
	Aggregated
	Exported
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CommandsPrepared:
		return "commands-prepared"
	case PortsProbed:
		return "ports-probed"
	case ProcessesRunning:
		return "processes-running"
	case OutputsParsed:
		return "outputs-parsed"
	case Aggregated:
		return "aggregated"
	case Exported:
		return "exported"
	}
	return "unknown"
}

func (o *Orchestrator) transition(to State) {
	log.Debug("state change", "from", o.state, "to", to)
	o.state = to
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}
