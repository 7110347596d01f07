package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urbanly/service-engine/internal/application/port"
	"github.com/urbanly/service-engine/internal/domain/entity"
	"go.uber.org/zap"
)

type mockDefinitionRepo struct {
	defs map[int64]*entity.ServiceDefinition
}

var _ port.DefinitionRepository = (*mockDefinitionRepo)(nil)

func (m *mockDefinitionRepo) Create(_ context.Context, def *entity.ServiceDefinition) error {
	m.defs[def.ID] = def
	return nil
}

func (m *mockDefinitionRepo) GetByID(_ context.Context, id int64) (*entity.ServiceDefinition, error) {
	return m.defs[id], nil
}

func (m *mockDefinitionRepo) GetByCode(_ context.Context, code string) (*entity.ServiceDefinition, error) {
	for _, def := range m.defs {
		if def.Code == code {
			return def, nil
		}
	}
	return nil, nil
}

// mockInstanceRepo stores instances in memory and honors the conditional
// update contract. staleState forces GetByID to return an outdated snapshot
// for an instance, which makes lost-race scenarios deterministic.
type mockInstanceRepo struct {
	instances  map[int64]*entity.ServiceInstance
	staleState map[int64]string
}

var _ port.InstanceRepository = (*mockInstanceRepo)(nil)

func (m *mockInstanceRepo) Create(_ context.Context, instance *entity.ServiceInstance) error {
	instance.ID = int64(len(m.instances) + 1)
	m.instances[instance.ID] = instance
	return nil
}

func (m *mockInstanceRepo) GetByID(_ context.Context, id int64) (*entity.ServiceInstance, error) {
	stored, ok := m.instances[id]
	if !ok {
		return nil, nil
	}
	snapshot := *stored
	if state, ok := m.staleState[id]; ok {
		snapshot.State = state
	}
	return &snapshot, nil
}

func (m *mockInstanceRepo) ListActive(_ context.Context, city string, limit, offset int) ([]*entity.ServiceInstance, error) {
	return nil, nil
}

func (m *mockInstanceRepo) UpdateStateIf(_ context.Context, id int64, fromState, toState string, stepIndex int, metadataJSON string) (bool, error) {
	stored, ok := m.instances[id]
	if !ok || stored.State != fromState {
		return false, nil
	}
	stored.State = toState
	stored.CurrentStepIndex = stepIndex

	var metadata map[string]any
	if err := json.Unmarshal([]byte(metadataJSON), &metadata); err != nil {
		return false, err
	}
	stored.Metadata = metadata
	return true, nil
}

type mockHistoryRepo struct {
	records []*entity.StateHistory
}

var _ port.HistoryRepository = (*mockHistoryRepo)(nil)

func (m *mockHistoryRepo) Create(_ context.Context, record *entity.StateHistory) error {
	record.ID = int64(len(m.records) + 1)
	m.records = append(m.records, record)
	return nil
}

func (m *mockHistoryRepo) GetByInstanceID(_ context.Context, instanceID int64) ([]*entity.StateHistory, error) {
	var out []*entity.StateHistory
	for _, r := range m.records {
		if r.InstanceID == instanceID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockTxManager struct{}

var _ port.TransactionManager = (*mockTxManager)(nil)

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func testDefinition() *entity.ServiceDefinition {
	return &entity.ServiceDefinition{
		ID:   1,
		Code: "deep_clean",
		Name: "Deep Cleaning",
		Steps: []entity.Step{
			{Index: 0, Name: "inspection", EstimatedDays: 1},
			{Index: 1, Name: "cleaning", EstimatedDays: 2},
			{Index: 2, Name: "quality_check", EstimatedDays: 1},
		},
		SLA: entity.SLAConfig{TargetDays: 7, WarningThresholdDays: 2},
	}
}

type executorFixture struct {
	executor  *Executor
	instances *mockInstanceRepo
	history   *mockHistoryRepo
}

func newExecutorFixture() *executorFixture {
	definitions := &mockDefinitionRepo{defs: map[int64]*entity.ServiceDefinition{1: testDefinition()}}
	instances := &mockInstanceRepo{
		instances:  make(map[int64]*entity.ServiceInstance),
		staleState: make(map[int64]string),
	}
	history := &mockHistoryRepo{}

	return &executorFixture{
		executor:  NewExecutor(definitions, instances, history, &mockTxManager{}, zap.NewNop()),
		instances: instances,
		history:   history,
	}
}

func (f *executorFixture) seed(state string, stepIndex int, metadata map[string]any) *entity.ServiceInstance {
	instance := &entity.ServiceInstance{
		DefinitionID:     1,
		State:            state,
		CurrentStepIndex: stepIndex,
		Metadata:         metadata,
		CreatedBy:        "ops",
		CreatedAt:        time.Now(),
	}
	_ = f.instances.Create(context.Background(), instance)
	return instance
}

func TestTransitionSuccess(t *testing.T) {
	f := newExecutorFixture()
	instance := f.seed("requested", 0, nil)

	res, err := f.executor.Transition(context.Background(), Request{
		InstanceID: instance.ID,
		NewState:   "assigned",
		ChangedBy:  "dispatcher",
		Reason:     "crew available",
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "requested", res.FromState)
	assert.Equal(t, "assigned", res.ToState)
	assert.NotZero(t, res.HistoryID)

	assert.Equal(t, "assigned", f.instances.instances[instance.ID].State)

	require.Len(t, f.history.records, 1)
	record := f.history.records[0]
	assert.Equal(t, instance.ID, record.InstanceID)
	assert.Equal(t, "requested", record.FromState)
	assert.Equal(t, "assigned", record.ToState)
	assert.Equal(t, "dispatcher", record.ChangedBy)
	assert.Equal(t, "crew available", record.Reason)
}

func TestTransitionNotFound(t *testing.T) {
	f := newExecutorFixture()

	res, err := f.executor.Transition(context.Background(), Request{
		InstanceID: 999,
		NewState:   "assigned",
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, CodeNotFound, res.Code)
	assert.Empty(t, res.FromState)
	assert.Empty(t, f.history.records)
}

func TestTransitionFromTerminalState(t *testing.T) {
	f := newExecutorFixture()

	for _, state := range []string{"delivered", "cancelled"} {
		t.Run(state, func(t *testing.T) {
			instance := f.seed(state, 0, nil)

			res, err := f.executor.Transition(context.Background(), Request{
				InstanceID: instance.ID,
				NewState:   "in_progress",
			})
			require.NoError(t, err)

			assert.False(t, res.Success)
			assert.Equal(t, CodeTerminalState, res.Code)
			assert.Contains(t, res.Message, state)
			assert.Equal(t, state, f.instances.instances[instance.ID].State)
		})
	}
}

func TestTransitionInvalid(t *testing.T) {
	f := newExecutorFixture()
	instance := f.seed("requested", 0, nil)

	res, err := f.executor.Transition(context.Background(), Request{
		InstanceID: instance.ID,
		NewState:   "completed",
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, CodeInvalidTransition, res.Code)
	assert.Contains(t, res.Message, "Valid: [assigned, cancelled]")
	assert.False(t, res.Retryable())

	// rejected attempts leave no history
	assert.Empty(t, f.history.records)
	assert.Equal(t, "requested", f.instances.instances[instance.ID].State)
}

func TestTransitionUnknownTargetState(t *testing.T) {
	f := newExecutorFixture()
	instance := f.seed("requested", 0, nil)

	res, err := f.executor.Transition(context.Background(), Request{
		InstanceID: instance.ID,
		NewState:   "step_9",
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, CodeInvalidTransition, res.Code)
}

func TestTransitionIntoStepSetsIndex(t *testing.T) {
	f := newExecutorFixture()
	instance := f.seed("in_progress", 0, nil)

	res, err := f.executor.Transition(context.Background(), Request{
		InstanceID: instance.ID,
		NewState:   "step_1",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 0, f.instances.instances[instance.ID].CurrentStepIndex)

	res, err = f.executor.Transition(context.Background(), Request{
		InstanceID: instance.ID,
		NewState:   "step_2",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, 1, f.instances.instances[instance.ID].CurrentStepIndex)
}

func TestResumeKeepsStepIndex(t *testing.T) {
	f := newExecutorFixture()
	instance := f.seed("halted", 1, nil)

	res, err := f.executor.Transition(context.Background(), Request{
		InstanceID: instance.ID,
		NewState:   "in_progress",
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	assert.Equal(t, 1, f.instances.instances[instance.ID].CurrentStepIndex)
}

func TestTransitionMetadataMerge(t *testing.T) {
	f := newExecutorFixture()
	instance := f.seed("requested", 0, map[string]any{"a": float64(1)})

	res, err := f.executor.Transition(context.Background(), Request{
		InstanceID: instance.ID,
		NewState:   "assigned",
		Metadata:   map[string]any{"a": float64(2), "b": float64(3)},
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	stored := f.instances.instances[instance.ID]
	assert.Equal(t, map[string]any{"a": float64(2), "b": float64(3)}, stored.Metadata)

	// only the patch goes on the history record, not the merged document
	require.Len(t, f.history.records, 1)
	var patch map[string]any
	require.NoError(t, json.Unmarshal([]byte(f.history.records[0].Metadata), &patch))
	assert.Equal(t, map[string]any{"a": float64(2), "b": float64(3)}, patch)
}

func TestTransitionConcurrentMutation(t *testing.T) {
	f := newExecutorFixture()
	instance := f.seed("requested", 0, nil)

	res, err := f.executor.Transition(context.Background(), Request{
		InstanceID: instance.ID,
		NewState:   "assigned",
	})
	require.NoError(t, err)
	require.True(t, res.Success)

	// second caller still holds the pre-transition snapshot
	f.instances.staleState[instance.ID] = "requested"

	res, err = f.executor.Transition(context.Background(), Request{
		InstanceID: instance.ID,
		NewState:   "cancelled",
	})
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, CodeConcurrentMutation, res.Code)
	assert.True(t, res.Retryable())

	// exactly one winner: one history record, state from the first transition
	assert.Len(t, f.history.records, 1)
	assert.Equal(t, "assigned", f.instances.instances[instance.ID].State)
}

func TestValidTransitionsHelper(t *testing.T) {
	f := newExecutorFixture()
	instance := f.seed("payment_pending", 0, nil)

	states, err := f.executor.ValidTransitions(context.Background(), instance.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"paid", "halted", "cancelled"}, states)

	_, err = f.executor.ValidTransitions(context.Background(), 999)
	assert.Error(t, err)
}
