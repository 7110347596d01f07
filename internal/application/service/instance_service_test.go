package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urbanly/service-engine/internal/application/port"
	"github.com/urbanly/service-engine/internal/domain/entity"
	"go.uber.org/zap"
)

type fakeDefinitionRepo struct {
	defs map[string]*entity.ServiceDefinition
}

var _ port.DefinitionRepository = (*fakeDefinitionRepo)(nil)

func (f *fakeDefinitionRepo) Create(_ context.Context, def *entity.ServiceDefinition) error {
	f.defs[def.Code] = def
	return nil
}

func (f *fakeDefinitionRepo) GetByID(_ context.Context, id int64) (*entity.ServiceDefinition, error) {
	for _, def := range f.defs {
		if def.ID == id {
			return def, nil
		}
	}
	return nil, nil
}

func (f *fakeDefinitionRepo) GetByCode(_ context.Context, code string) (*entity.ServiceDefinition, error) {
	return f.defs[code], nil
}

type fakeInstanceRepo struct {
	created []*entity.ServiceInstance
}

var _ port.InstanceRepository = (*fakeInstanceRepo)(nil)

func (f *fakeInstanceRepo) Create(_ context.Context, instance *entity.ServiceInstance) error {
	instance.ID = int64(len(f.created) + 1)
	f.created = append(f.created, instance)
	return nil
}

func (f *fakeInstanceRepo) GetByID(_ context.Context, id int64) (*entity.ServiceInstance, error) {
	for _, i := range f.created {
		if i.ID == id {
			return i, nil
		}
	}
	return nil, nil
}

func (f *fakeInstanceRepo) ListActive(_ context.Context, _ string, _, _ int) ([]*entity.ServiceInstance, error) {
	return nil, nil
}

func (f *fakeInstanceRepo) UpdateStateIf(_ context.Context, _ int64, _, _ string, _ int, _ string) (bool, error) {
	return false, nil
}

type fakeHistoryRepo struct {
	records []*entity.StateHistory
}

var _ port.HistoryRepository = (*fakeHistoryRepo)(nil)

func (f *fakeHistoryRepo) Create(_ context.Context, record *entity.StateHistory) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeHistoryRepo) GetByInstanceID(_ context.Context, instanceID int64) ([]*entity.StateHistory, error) {
	var out []*entity.StateHistory
	for _, r := range f.records {
		if r.InstanceID == instanceID {
			out = append(out, r)
		}
	}
	return out, nil
}

func newService() (*InstanceService, *fakeInstanceRepo) {
	definitions := &fakeDefinitionRepo{defs: map[string]*entity.ServiceDefinition{
		"deep_clean": {
			ID:   1,
			Code: "deep_clean",
			Steps: []entity.Step{
				{Index: 0, Name: "inspection"},
				{Index: 1, Name: "cleaning"},
			},
			SLA: entity.SLAConfig{TargetDays: 7, WarningThresholdDays: 2},
		},
	}}
	instances := &fakeInstanceRepo{}
	return NewInstanceService(definitions, instances, &fakeHistoryRepo{}, zap.NewNop()), instances
}

func TestCreateInstance(t *testing.T) {
	svc, instances := newService()

	instance, err := svc.Create(context.Background(), "deep_clean", "pune", "ops", map[string]any{"unit": "2BHK"})
	require.NoError(t, err)

	assert.Equal(t, "requested", instance.State)
	assert.Equal(t, int64(1), instance.DefinitionID)
	assert.Equal(t, "pune", instance.City)
	assert.Equal(t, "ops", instance.CreatedBy)
	assert.Equal(t, map[string]any{"unit": "2BHK"}, instance.Metadata)

	require.NotNil(t, instance.SLADeadline)
	expected := time.Now().AddDate(0, 0, 7)
	assert.WithinDuration(t, expected, *instance.SLADeadline, time.Minute)

	assert.Len(t, instances.created, 1)
}

func TestCreateInstanceUnknownDefinition(t *testing.T) {
	svc, _ := newService()

	_, err := svc.Create(context.Background(), "nonexistent", "", "ops", nil)
	assert.ErrorIs(t, err, ErrDefinitionNotFound)
}

func TestCreateInstanceNilMetadata(t *testing.T) {
	svc, _ := newService()

	instance, err := svc.Create(context.Background(), "deep_clean", "", "ops", nil)
	require.NoError(t, err)
	assert.NotNil(t, instance.Metadata)
	assert.Empty(t, instance.Metadata)
}

func TestStateList(t *testing.T) {
	svc, _ := newService()

	states, err := svc.StateList(context.Background(), "deep_clean")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"requested", "assigned", "payment_pending", "paid", "in_progress",
		"step_1", "step_2", "completed", "delivered",
	}, states)

	_, err = svc.StateList(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrDefinitionNotFound)
}
