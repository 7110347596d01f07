package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseState(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		stepCount int
		want      State
		wantErr   bool
	}{
		{name: "system state", raw: "requested", stepCount: 3, want: StateRequested},
		{name: "terminal state", raw: "cancelled", stepCount: 0, want: StateCancelled},
		{name: "first step", raw: "step_1", stepCount: 3, want: Step(1)},
		{name: "last step", raw: "step_3", stepCount: 3, want: Step(3)},
		{name: "step beyond definition", raw: "step_4", stepCount: 3, wantErr: true},
		{name: "step zero", raw: "step_0", stepCount: 3, wantErr: true},
		{name: "step with garbage suffix", raw: "step_x", stepCount: 3, wantErr: true},
		{name: "unknown state", raw: "shipped", stepCount: 3, wantErr: true},
		{name: "empty", raw: "", stepCount: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseState(tt.raw, tt.stepCount)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidState)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStateStringRoundTrip(t *testing.T) {
	states := []State{
		StateRequested, StateAssigned, StatePaymentPending, StatePaid,
		StateInProgress, Step(1), Step(7), StateCompleted, StateDelivered,
		StateHalted, StateRefundPending, StateCancelled,
	}

	for _, s := range states {
		parsed, err := ParseState(s.String(), 10)
		require.NoError(t, err, "round trip for %s", s)
		assert.Equal(t, s, parsed)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StateDelivered.IsTerminal())
	assert.True(t, StateCancelled.IsTerminal())

	assert.False(t, StateRequested.IsTerminal())
	assert.False(t, StateCompleted.IsTerminal())
	assert.False(t, StateHalted.IsTerminal())
	assert.False(t, StateRefundPending.IsTerminal())
	assert.False(t, Step(2).IsTerminal())
}

func TestStepNumber(t *testing.T) {
	assert.Equal(t, 3, Step(3).StepNumber())
	assert.Equal(t, 0, StateInProgress.StepNumber())
	assert.True(t, Step(1).IsStep())
	assert.False(t, StatePaid.IsStep())
}

func TestIsTerminalStateRaw(t *testing.T) {
	assert.True(t, IsTerminalState("delivered"))
	assert.True(t, IsTerminalState("cancelled"))
	assert.False(t, IsTerminalState("in_progress"))
	assert.False(t, IsTerminalState("step_2"))
}
