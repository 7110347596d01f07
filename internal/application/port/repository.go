package port

import (
	"context"

	"github.com/urbanly/service-engine/internal/domain/entity"
)

// DefinitionRepository defines read operations for ServiceDefinition.
// Definitions are authored by configuration tooling and read-only here.
type DefinitionRepository interface {
	Create(ctx context.Context, def *entity.ServiceDefinition) error
	GetByID(ctx context.Context, id int64) (*entity.ServiceDefinition, error)
	GetByCode(ctx context.Context, code string) (*entity.ServiceDefinition, error)
}

// InstanceRepository defines persistence operations for ServiceInstance.
type InstanceRepository interface {
	Create(ctx context.Context, instance *entity.ServiceInstance) error
	GetByID(ctx context.Context, id int64) (*entity.ServiceInstance, error)

	// ListActive returns non-terminal instances, optionally filtered by
	// city, ordered by id for stable paging.
	ListActive(ctx context.Context, city string, limit, offset int) ([]*entity.ServiceInstance, error)

	// UpdateStateIf applies the state change only if the stored state still
	// equals fromState (compare-and-swap on the state column). Returns false
	// when another transition won the race.
	UpdateStateIf(ctx context.Context, id int64, fromState, toState string, stepIndex int, metadataJSON string) (bool, error)
}

// HistoryRepository defines persistence operations for StateHistory.
// Records are append-only.
type HistoryRepository interface {
	Create(ctx context.Context, record *entity.StateHistory) error
	GetByInstanceID(ctx context.Context, instanceID int64) ([]*entity.StateHistory, error)
}

// EscalationRepository defines persistence operations for Escalation.
type EscalationRepository interface {
	Create(ctx context.Context, esc *entity.Escalation) error

	// Exists reports whether the (instance, level) pair has already been
	// escalated. This is the sole de-duplication gate.
	Exists(ctx context.Context, instanceID int64, level int) (bool, error)

	GetByInstanceID(ctx context.Context, instanceID int64) ([]*entity.Escalation, error)
}

// NotificationRepository defines persistence operations for the notification
// queue.
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetPending(ctx context.Context, limit int) ([]*entity.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
