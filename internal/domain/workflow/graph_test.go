package workflow

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateListLength(t *testing.T) {
	stepPattern := regexp.MustCompile(`^step_(\d+)$`)

	for _, n := range []int{0, 1, 3, 10} {
		t.Run(fmt.Sprintf("%d_steps", n), func(t *testing.T) {
			list := NewGraph(n).StateList()
			require.Len(t, list, 7+n)

			// step states must be numbered 1..N contiguously
			next := 1
			for _, s := range list {
				m := stepPattern.FindStringSubmatch(s.String())
				if m == nil {
					continue
				}
				assert.Equal(t, fmt.Sprintf("step_%d", next), s.String())
				next++
			}
			assert.Equal(t, n+1, next, "expected exactly %d step states", n)

			assert.Equal(t, "requested", list[0].String())
			assert.Equal(t, "delivered", list[len(list)-1].String())
		})
	}
}

func TestTerminalStatesHaveNoTransitions(t *testing.T) {
	for _, n := range []int{0, 3} {
		g := NewGraph(n)
		assert.Empty(t, g.ValidTransitions(StateDelivered))
		assert.Empty(t, g.ValidTransitions(StateCancelled))
	}
}

func TestValidTransitions(t *testing.T) {
	g := NewGraph(3)

	tests := []struct {
		from State
		want []string
	}{
		{StateRequested, []string{"assigned", "cancelled"}},
		{StateAssigned, []string{"payment_pending", "cancelled"}},
		{StatePaymentPending, []string{"paid", "halted", "cancelled"}},
		{StatePaid, []string{"in_progress", "halted"}},
		{StateInProgress, []string{"step_1", "halted"}},
		{Step(1), []string{"step_2", "halted"}},
		{Step(2), []string{"step_3", "halted"}},
		{Step(3), []string{"completed", "halted"}},
		{StateCompleted, []string{"delivered"}},
		{StateHalted, []string{"in_progress", "refund_pending", "cancelled"}},
		{StateRefundPending, []string{"cancelled"}},
	}

	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, StateStrings(g.ValidTransitions(tt.from)))
		})
	}
}

func TestZeroStepDefinitionSkipsSteps(t *testing.T) {
	g := NewGraph(0)
	assert.Equal(t, []string{"completed", "halted"}, StateStrings(g.ValidTransitions(StateInProgress)))
}

func TestCanTransition(t *testing.T) {
	g := NewGraph(2)

	assert.True(t, g.CanTransition(StateRequested, StateAssigned))
	assert.True(t, g.CanTransition(StateHalted, StateInProgress))
	assert.True(t, g.CanTransition(Step(1), Step(2)))

	// no skipping steps, no reversal
	assert.False(t, g.CanTransition(StateInProgress, Step(2)))
	assert.False(t, g.CanTransition(Step(2), Step(1)))
	assert.False(t, g.CanTransition(StateRequested, StateCompleted))
	assert.False(t, g.CanTransition(StateDelivered, StateCancelled))
}
