package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/urbanly/service-engine/internal/application/port"
	"github.com/urbanly/service-engine/internal/application/sla"
	"github.com/urbanly/service-engine/internal/domain/entity"
	"go.uber.org/zap"
)

const defaultBatchSize = 200

// Report aggregates one sweep's outcome.
type Report struct {
	Processed int `json:"processed"`
	Escalated int `json:"escalated"`
}

// Processor is the periodic batch job that scans non-terminal instances and
// creates escalation and notification side effects exactly once per
// (instance, tier) pair. Re-running the sweep over unchanged data is a
// no-op: the existence check on the escalation row is the sole gate.
type Processor struct {
	instances     port.InstanceRepository
	definitions   port.DefinitionRepository
	escalations   port.EscalationRepository
	notifications port.NotificationRepository
	evaluator     *sla.Evaluator
	txManager     port.TransactionManager
	logger        *zap.Logger
	batchSize     int
}

// NewProcessor creates an escalation processor.
func NewProcessor(
	instances port.InstanceRepository,
	definitions port.DefinitionRepository,
	escalations port.EscalationRepository,
	notifications port.NotificationRepository,
	evaluator *sla.Evaluator,
	txManager port.TransactionManager,
	logger *zap.Logger,
) *Processor {
	return &Processor{
		instances:     instances,
		definitions:   definitions,
		escalations:   escalations,
		notifications: notifications,
		evaluator:     evaluator,
		txManager:     txManager,
		logger:        logger,
		batchSize:     defaultBatchSize,
	}
}

// Run sweeps all non-terminal instances, optionally filtered by city. A
// failure on a single instance is logged and skipped; it never aborts the
// sweep.
func (p *Processor) Run(ctx context.Context, city string) (*Report, error) {
	report := &Report{}
	defs := make(map[int64]*entity.ServiceDefinition)

	offset := 0
	for {
		instances, err := p.instances.ListActive(ctx, city, p.batchSize, offset)
		if err != nil {
			return report, fmt.Errorf("failed to list active instances: %w", err)
		}
		if len(instances) == 0 {
			break
		}

		for _, instance := range instances {
			report.Processed++

			escalated, err := p.processInstance(ctx, instance, defs)
			if err != nil {
				p.logger.Warn("Skipping instance after escalation failure",
					zap.Int64("instance_id", instance.ID),
					zap.Error(err))
				continue
			}
			if escalated {
				report.Escalated++
			}
		}

		offset += len(instances)
	}

	p.logger.Info("Escalation sweep completed",
		zap.Int("processed", report.Processed),
		zap.Int("escalated", report.Escalated),
		zap.String("city", city))

	return report, nil
}

func (p *Processor) processInstance(ctx context.Context, instance *entity.ServiceInstance, defs map[int64]*entity.ServiceDefinition) (bool, error) {
	def, ok := defs[instance.DefinitionID]
	if !ok {
		loaded, err := p.definitions.GetByID(ctx, instance.DefinitionID)
		if err != nil {
			return false, err
		}
		if loaded == nil {
			return false, fmt.Errorf("definition %d missing", instance.DefinitionID)
		}
		defs[instance.DefinitionID] = loaded
		def = loaded
	}

	status := p.evaluator.Evaluate(instance, def)
	if !status.NeedsEscalation {
		return false, nil
	}

	exists, err := p.escalations.Exists(ctx, instance.ID, status.EscalationLevel)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	tier := def.LevelConfig(status.EscalationLevel)
	if tier == nil {
		return false, fmt.Errorf("escalation level %d not configured for definition %s", status.EscalationLevel, def.Code)
	}

	// Escalation row and queued notifications commit together, so a partial
	// failure cannot strand a half-escalated tier.
	err = p.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		esc := &entity.Escalation{
			InstanceID: instance.ID,
			Level:      tier.Level,
			Priority:   tier.Priority,
			CreatedAt:  time.Now(),
		}
		if err := p.escalations.Create(txCtx, esc); err != nil {
			return err
		}

		message := fmt.Sprintf("Service order %d (%s) is %s; escalation level %d, target date %s",
			instance.ID, def.Code, status.Status, tier.Level, status.TargetDate.Format("2006-01-02"))

		for _, role := range tier.NotifyRoles {
			notification := &entity.Notification{
				InstanceID: instance.ID,
				Role:       role,
				Message:    message,
				Priority:   tier.Priority,
				Status:     entity.NotificationStatusPending,
				CreatedAt:  time.Now(),
			}
			if err := p.notifications.Create(txCtx, notification); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	p.logger.Info("Instance escalated",
		zap.Int64("instance_id", instance.ID),
		zap.Int("level", tier.Level),
		zap.String("priority", tier.Priority),
		zap.Strings("notify_roles", tier.NotifyRoles))

	return true, nil
}
