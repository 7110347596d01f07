package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the fixed lifecycle states. Step states carry their
// 1-based step number alongside KindStep.
type Kind int

const (
	KindRequested Kind = iota
	KindAssigned
	KindPaymentPending
	KindPaid
	KindInProgress
	KindStep
	KindCompleted
	KindDelivered
	KindHalted
	KindRefundPending
	KindCancelled
)

// State is a parsed workflow state: either a fixed lifecycle state or a
// numbered fulfillment step. States are parsed once at the storage boundary
// and used as values internally; String() yields the storage representation.
type State struct {
	kind Kind
	step int // 1-based, set only when kind == KindStep
}

var (
	StateRequested      = State{kind: KindRequested}
	StateAssigned       = State{kind: KindAssigned}
	StatePaymentPending = State{kind: KindPaymentPending}
	StatePaid           = State{kind: KindPaid}
	StateInProgress     = State{kind: KindInProgress}
	StateCompleted      = State{kind: KindCompleted}
	StateDelivered      = State{kind: KindDelivered}
	StateHalted         = State{kind: KindHalted}
	StateRefundPending  = State{kind: KindRefundPending}
	StateCancelled      = State{kind: KindCancelled}
)

var systemStates = map[string]State{
	"requested":       StateRequested,
	"assigned":        StateAssigned,
	"payment_pending": StatePaymentPending,
	"paid":            StatePaid,
	"in_progress":     StateInProgress,
	"completed":       StateCompleted,
	"delivered":       StateDelivered,
	"halted":          StateHalted,
	"refund_pending":  StateRefundPending,
	"cancelled":       StateCancelled,
}

// Step returns the state for the k-th fulfillment step (1-based).
func Step(k int) State {
	return State{kind: KindStep, step: k}
}

// ParseState parses the storage representation of a state. stepCount bounds
// step_k states to the bound service definition.
func ParseState(raw string, stepCount int) (State, error) {
	if s, ok := systemStates[raw]; ok {
		return s, nil
	}

	if rest, ok := strings.CutPrefix(raw, "step_"); ok {
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return State{}, fmt.Errorf("%w: %s", ErrInvalidState, raw)
		}
		if n > stepCount {
			return State{}, fmt.Errorf("%w: %s exceeds %d configured steps", ErrInvalidState, raw, stepCount)
		}
		return Step(n), nil
	}

	return State{}, fmt.Errorf("%w: %s", ErrInvalidState, raw)
}

// Kind returns the state's kind.
func (s State) Kind() Kind {
	return s.kind
}

// IsStep returns true if the state is a numbered fulfillment step.
func (s State) IsStep() bool {
	return s.kind == KindStep
}

// StepNumber returns the 1-based step number, or 0 for non-step states.
func (s State) StepNumber() int {
	if s.kind != KindStep {
		return 0
	}
	return s.step
}

// IsTerminal returns true if the state accepts no outgoing transitions.
func (s State) IsTerminal() bool {
	return s.kind == KindDelivered || s.kind == KindCancelled
}

// String returns the storage representation of the state.
func (s State) String() string {
	switch s.kind {
	case KindRequested:
		return "requested"
	case KindAssigned:
		return "assigned"
	case KindPaymentPending:
		return "payment_pending"
	case KindPaid:
		return "paid"
	case KindInProgress:
		return "in_progress"
	case KindStep:
		return "step_" + strconv.Itoa(s.step)
	case KindCompleted:
		return "completed"
	case KindDelivered:
		return "delivered"
	case KindHalted:
		return "halted"
	case KindRefundPending:
		return "refund_pending"
	case KindCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminalState reports whether the raw storage representation names a
// terminal state. Useful for store-level filters that never parse.
func IsTerminalState(raw string) bool {
	return raw == "delivered" || raw == "cancelled"
}
