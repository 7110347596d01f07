package workflow

// Graph derives the valid state space for a service definition with a given
// number of fulfillment steps. Transitions are strictly forward or into/out
// of halted; resume returns to in_progress with the instance's step index
// untouched, so no progress is lost or rewound.
type Graph struct {
	steps int
}

// NewGraph creates a graph for a definition with stepCount fulfillment steps.
// stepCount may be zero, in which case in_progress funnels straight to
// completed.
func NewGraph(stepCount int) *Graph {
	if stepCount < 0 {
		stepCount = 0
	}
	return &Graph{steps: stepCount}
}

// StepCount returns the number of fulfillment steps in the bound definition.
func (g *Graph) StepCount() int {
	return g.steps
}

// StateList returns the full ordered linear progression for display purposes:
// requested through delivered, with step_1..step_N in the middle. Side-branch
// states (halted, refund_pending, cancelled) are not part of the progression.
func (g *Graph) StateList() []State {
	list := make([]State, 0, 7+g.steps)
	list = append(list, StateRequested, StateAssigned, StatePaymentPending, StatePaid, StateInProgress)
	for k := 1; k <= g.steps; k++ {
		list = append(list, Step(k))
	}
	return append(list, StateCompleted, StateDelivered)
}

// ValidTransitions returns the ordered list of states legally reachable from
// the given state. Terminal states return an empty list. The order is stable
// and is used verbatim in diagnostics.
func (g *Graph) ValidTransitions(from State) []State {
	switch from.kind {
	case KindRequested:
		return []State{StateAssigned, StateCancelled}
	case KindAssigned:
		return []State{StatePaymentPending, StateCancelled}
	case KindPaymentPending:
		return []State{StatePaid, StateHalted, StateCancelled}
	case KindPaid:
		return []State{StateInProgress, StateHalted}
	case KindInProgress:
		if g.steps > 0 {
			return []State{Step(1), StateHalted}
		}
		return []State{StateCompleted, StateHalted}
	case KindStep:
		if from.step < g.steps {
			return []State{Step(from.step + 1), StateHalted}
		}
		return []State{StateCompleted, StateHalted}
	case KindCompleted:
		return []State{StateDelivered}
	case KindHalted:
		return []State{StateInProgress, StateRefundPending, StateCancelled}
	case KindRefundPending:
		return []State{StateCancelled}
	default:
		// delivered and cancelled are terminal
		return []State{}
	}
}

// CanTransition returns true if the edge from → to exists in the graph.
func (g *Graph) CanTransition(from, to State) bool {
	for _, s := range g.ValidTransitions(from) {
		if s == to {
			return true
		}
	}
	return false
}

// StateStrings converts states to their storage representations, preserving
// order.
func StateStrings(states []State) []string {
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.String()
	}
	return out
}
