package engine

// Code classifies a transition outcome. Validation failures are client
// errors; CONCURRENT_MUTATION means the caller lost a race and may retry
// after re-reading.
type Code string

const (
	CodeNotFound           Code = "NOT_FOUND"
	CodeTerminalState      Code = "TERMINAL_STATE"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeConcurrentMutation Code = "CONCURRENT_MUTATION"
)

// Request describes one requested state transition.
type Request struct {
	InstanceID int64          `json:"instance_id"`
	NewState   string         `json:"new_state"`
	ChangedBy  string         `json:"changed_by"`
	Reason     string         `json:"reason,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Result is the outcome of a transition attempt. All engine-level outcomes
// are returned, never thrown; only infrastructure failures surface as Go
// errors from the executor.
type Result struct {
	Success   bool   `json:"success"`
	FromState string `json:"from_state"`
	ToState   string `json:"to_state"`
	HistoryID int64  `json:"history_id,omitempty"`
	Code      Code   `json:"code,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Retryable returns true if the failure is safe to retry after re-reading
// the instance.
func (r *Result) Retryable() bool {
	return r.Code == CodeConcurrentMutation
}

func failure(fromState, toState string, code Code, message string) *Result {
	return &Result{
		FromState: fromState,
		ToState:   toState,
		Code:      code,
		Message:   message,
	}
}
