package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urbanly/service-engine/internal/application/port"
	"github.com/urbanly/service-engine/internal/domain/entity"
	"github.com/urbanly/service-engine/internal/domain/workflow"
	"go.uber.org/zap"
)

// ErrDefinitionNotFound is returned when a definition code is unknown.
var ErrDefinitionNotFound = errors.New("service definition not found")

// InstanceService handles instance creation and read-only lookups around the
// transition engine. Creation stamps the SLA deadline from the definition's
// target so later evaluations don't depend on config changes.
type InstanceService struct {
	definitions port.DefinitionRepository
	instances   port.InstanceRepository
	history     port.HistoryRepository
	logger      *zap.Logger
}

// NewInstanceService creates an instance service
func NewInstanceService(
	definitions port.DefinitionRepository,
	instances port.InstanceRepository,
	history port.HistoryRepository,
	logger *zap.Logger,
) *InstanceService {
	return &InstanceService{
		definitions: definitions,
		instances:   instances,
		history:     history,
		logger:      logger,
	}
}

// Create creates a new instance in the requested state, bound to the
// definition identified by code.
func (s *InstanceService) Create(ctx context.Context, code, city, createdBy string, metadata map[string]any) (*entity.ServiceInstance, error) {
	def, err := s.definitions.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, code)
	}

	if metadata == nil {
		metadata = map[string]any{}
	}

	deadline := time.Now().AddDate(0, 0, def.SLA.TargetDays)
	instance := &entity.ServiceInstance{
		DefinitionID: def.ID,
		State:        workflow.StateRequested.String(),
		Metadata:     metadata,
		SLADeadline:  &deadline,
		City:         city,
		CreatedBy:    createdBy,
	}

	if err := s.instances.Create(ctx, instance); err != nil {
		return nil, err
	}

	s.logger.Info("Service instance created",
		zap.Int64("instance_id", instance.ID),
		zap.String("definition", code),
		zap.String("city", city))

	return instance, nil
}

// Get retrieves an instance by id.
func (s *InstanceService) Get(ctx context.Context, id int64) (*entity.ServiceInstance, error) {
	return s.instances.GetByID(ctx, id)
}

// GetHistory returns the audit trail for an instance in creation order.
func (s *InstanceService) GetHistory(ctx context.Context, instanceID int64) ([]*entity.StateHistory, error) {
	return s.history.GetByInstanceID(ctx, instanceID)
}

// StateList returns the ordered linear state progression for a definition,
// for progress display.
func (s *InstanceService) StateList(ctx context.Context, code string) ([]string, error) {
	def, err := s.definitions.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, code)
	}

	return workflow.StateStrings(workflow.NewGraph(def.StepCount()).StateList()), nil
}
