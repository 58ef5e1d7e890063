package explore

import "fmt"

// State is the explorer lifecycle state of one run.
type State int

const (
	Idle State = iota
	Running
	Exhausted
	BudgetExceeded
	QueueEmpty
)

var stateNames = [...]string{"idle", "running", "exhausted", "budget-exceeded", "queue-empty"}

func (s State) String() string {
	if s < Idle || s > QueueEmpty {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == Exhausted || s == BudgetExceeded || s == QueueEmpty
}

// StoppingReason records which condition ended a run.
type StoppingReason string

const (
	NodeLimit  StoppingReason = "node-limit"
	DepthLimit StoppingReason = "depth-limit"
	TimeLimit  StoppingReason = "time-limit"
	Exhaust    StoppingReason = "exhausted"
)

// start moves an idle run to running.
func start(s State) (State, error) {
	if s != Idle {
		return s, fmt.Errorf("explore: cannot start from %s", s)
	}
	return Running, nil
}

// stop moves a running run to the terminal state for reason. Node and time
// limits exceed the budget; a frontier emptied by depth pruning is
// queue-empty; a frontier with nothing left to try is exhausted.
func stop(s State, reason StoppingReason) (State, error) {
	if s != Running {
		return s, fmt.Errorf("explore: cannot stop from %s", s)
	}
	switch reason {
	case NodeLimit, TimeLimit:
		return BudgetExceeded, nil
	case DepthLimit:
		return QueueEmpty, nil
	case Exhaust:
		return Exhausted, nil
	default:
		return s, fmt.Errorf("explore: unknown stopping reason %q", reason)
	}
}
