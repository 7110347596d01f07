package sla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urbanly/service-engine/internal/application/port"
	"github.com/urbanly/service-engine/internal/domain/entity"
	"github.com/urbanly/service-engine/internal/domain/workflow"
)

// Compliance status constants
const (
	StatusOnTrack  = "on_track"
	StatusAtRisk   = "at_risk"
	StatusBreached = "breached"
)

// ErrInstanceNotFound is returned when the instance id is stale or invalid.
var ErrInstanceNotFound = errors.New("instance not found")

// Status is a point-in-time SLA evaluation for one instance.
type Status struct {
	Status          string    `json:"status"`
	TargetDate      time.Time `json:"target_date"`
	HoursRemaining  int       `json:"hours_remaining"`
	DaysRemaining   int       `json:"days_remaining"`
	EscalationLevel int       `json:"escalation_level,omitempty"`
	NeedsEscalation bool      `json:"needs_escalation"`
}

// Evaluator computes SLA compliance and the active escalation tier. The
// clock is injectable so evaluations are reproducible in tests.
type Evaluator struct {
	instances   port.InstanceRepository
	definitions port.DefinitionRepository
	now         func() time.Time
}

// Option configures the evaluator.
type Option func(*Evaluator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(ev *Evaluator) {
		ev.now = now
	}
}

// NewEvaluator creates an SLA evaluator.
func NewEvaluator(instances port.InstanceRepository, definitions port.DefinitionRepository, opts ...Option) *Evaluator {
	ev := &Evaluator{
		instances:   instances,
		definitions: definitions,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(ev)
	}
	return ev
}

// GetStatus loads the instance and its definition and evaluates SLA status.
func (ev *Evaluator) GetStatus(ctx context.Context, instanceID int64) (*Status, error) {
	instance, err := ev.instances.GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: %d", ErrInstanceNotFound, instanceID)
	}

	def, err := ev.definitions.GetByID(ctx, instance.DefinitionID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("definition %d missing for instance %d", instance.DefinitionID, instanceID)
	}

	return ev.Evaluate(instance, def), nil
}

// Evaluate computes SLA status from already-loaded records. Terminal
// instances are always on_track with zero remaining time; the SLA stops
// applying once work is done.
func (ev *Evaluator) Evaluate(instance *entity.ServiceInstance, def *entity.ServiceDefinition) *Status {
	now := ev.now()

	target := instance.CreatedAt.AddDate(0, 0, def.SLA.TargetDays)
	if instance.SLADeadline != nil {
		target = *instance.SLADeadline
	}

	if workflow.IsTerminalState(instance.State) {
		return &Status{
			Status:     StatusOnTrack,
			TargetDate: target,
		}
	}

	remaining := target.Sub(now)
	daysRemaining := int(remaining.Hours() / 24)

	status := StatusOnTrack
	switch {
	case !now.Before(target):
		status = StatusBreached
	case daysRemaining <= def.SLA.TargetDays-def.SLA.WarningThresholdDays:
		status = StatusAtRisk
	}

	// Highest qualifying tier wins, scanned from the top of the ladder down.
	level := 0
	elapsedDays := now.Sub(instance.CreatedAt).Hours() / 24
	for i := len(def.SLA.EscalationLevels) - 1; i >= 0; i-- {
		if elapsedDays >= float64(def.SLA.EscalationLevels[i].AfterDays) {
			level = def.SLA.EscalationLevels[i].Level
			break
		}
	}

	return &Status{
		Status:          status,
		TargetDate:      target,
		HoursRemaining:  int(remaining.Hours()),
		DaysRemaining:   daysRemaining,
		EscalationLevel: level,
		NeedsEscalation: level > 0 && status != StatusOnTrack,
	}
}
