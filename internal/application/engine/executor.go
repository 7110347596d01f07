package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/urbanly/service-engine/internal/application/port"
	"github.com/urbanly/service-engine/internal/domain/entity"
	"github.com/urbanly/service-engine/internal/domain/workflow"
	"go.uber.org/zap"
)

// Executor validates and applies state transitions. Each transition runs as
// one atomic unit: load, validate, conditional update, history append. The
// concurrency discipline is optimistic; the conditional update on the state
// column is the only synchronization primitive, so the common uncontended
// case stays lock-free.
type Executor struct {
	definitions port.DefinitionRepository
	instances   port.InstanceRepository
	history     port.HistoryRepository
	txManager   port.TransactionManager
	logger      *zap.Logger
}

// NewExecutor creates a transition executor.
func NewExecutor(
	definitions port.DefinitionRepository,
	instances port.InstanceRepository,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	logger *zap.Logger,
) *Executor {
	return &Executor{
		definitions: definitions,
		instances:   instances,
		history:     history,
		txManager:   txManager,
		logger:      logger,
	}
}

// Transition attempts the requested state change. Validation and concurrency
// failures come back in the Result; only store failures return a non-nil
// error, in which case nothing was committed.
func (e *Executor) Transition(ctx context.Context, req Request) (*Result, error) {
	var res *Result

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		instance, err := e.instances.GetByID(txCtx, req.InstanceID)
		if err != nil {
			return err
		}
		if instance == nil {
			res = failure("", req.NewState, CodeNotFound,
				fmt.Sprintf("instance %d not found", req.InstanceID))
			return nil
		}

		def, err := e.definitions.GetByID(txCtx, instance.DefinitionID)
		if err != nil {
			return err
		}
		if def == nil {
			return fmt.Errorf("definition %d missing for instance %d", instance.DefinitionID, instance.ID)
		}

		fromState, err := workflow.ParseState(instance.State, def.StepCount())
		if err != nil {
			return fmt.Errorf("instance %d has unparseable stored state %q: %w", instance.ID, instance.State, err)
		}

		if fromState.IsTerminal() {
			res = failure(instance.State, req.NewState, CodeTerminalState,
				fmt.Sprintf("instance is in terminal state %s", instance.State))
			return nil
		}

		graph := workflow.NewGraph(def.StepCount())
		valid := graph.ValidTransitions(fromState)

		toState, parseErr := workflow.ParseState(req.NewState, def.StepCount())
		if parseErr != nil || !graph.CanTransition(fromState, toState) {
			res = failure(instance.State, req.NewState, CodeInvalidTransition,
				fmt.Sprintf("cannot transition from %s to %s. Valid: [%s]",
					instance.State, req.NewState,
					strings.Join(workflow.StateStrings(valid), ", ")))
			return nil
		}

		stepIndex := instance.CurrentStepIndex
		if toState.IsStep() {
			stepIndex = toState.StepNumber() - 1
		}

		metadataJSON, err := json.Marshal(instance.MergedMetadata(req.Metadata))
		if err != nil {
			return fmt.Errorf("failed to marshal merged metadata: %w", err)
		}

		applied, err := e.instances.UpdateStateIf(txCtx, instance.ID, instance.State, toState.String(), stepIndex, string(metadataJSON))
		if err != nil {
			return err
		}
		if !applied {
			res = failure(instance.State, req.NewState, CodeConcurrentMutation,
				fmt.Sprintf("state is no longer %s; re-read and retry", instance.State))
			return nil
		}

		record := &entity.StateHistory{
			InstanceID: instance.ID,
			FromState:  instance.State,
			ToState:    toState.String(),
			ChangedBy:  req.ChangedBy,
			Reason:     req.Reason,
			CreatedAt:  time.Now(),
		}
		if len(req.Metadata) > 0 {
			patch, err := json.Marshal(req.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal transition metadata: %w", err)
			}
			record.Metadata = string(patch)
		}

		if err := e.history.Create(txCtx, record); err != nil {
			return err
		}

		res = &Result{
			Success:   true,
			FromState: instance.State,
			ToState:   toState.String(),
			HistoryID: record.ID,
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	if res.Success {
		e.logger.Info("State transition applied",
			zap.Int64("instance_id", req.InstanceID),
			zap.String("from", res.FromState),
			zap.String("to", res.ToState),
			zap.String("changed_by", req.ChangedBy))
	} else {
		e.logger.Debug("State transition rejected",
			zap.Int64("instance_id", req.InstanceID),
			zap.String("code", string(res.Code)),
			zap.String("message", res.Message))
	}

	return res, nil
}

// ValidTransitions returns the storage representations of the states legally
// reachable from the instance's current state. Read-only helper for UI and
// progress display.
func (e *Executor) ValidTransitions(ctx context.Context, instanceID int64) ([]string, error) {
	instance, err := e.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, fmt.Errorf("instance %d not found", instanceID)
	}

	def, err := e.definitions.GetByID(ctx, instance.DefinitionID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("definition %d missing for instance %d", instance.DefinitionID, instance.ID)
	}

	state, err := workflow.ParseState(instance.State, def.StepCount())
	if err != nil {
		return nil, err
	}

	return workflow.StateStrings(workflow.NewGraph(def.StepCount()).ValidTransitions(state)), nil
}
