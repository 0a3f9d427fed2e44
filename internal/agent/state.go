package agent

// State is a step of the control loop.
type State int

const (
	StateAwaitingModel State = iota
	StateToolDispatch
	StateFinalAnswer
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateToolDispatch:
		return "tool_dispatch"
	case StateFinalAnswer:
		return "final_answer"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Outcome is how a Run terminated.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeTurnLimit
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeTurnLimit:
		return "turn_limit"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}
