package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/urbanly/service-engine/internal/application/port"
	"github.com/urbanly/service-engine/internal/domain/entity"
	"go.uber.org/zap"
)

// InstanceRepository implements port.InstanceRepository
type InstanceRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewInstanceRepository creates a new instance repository
func NewInstanceRepository(db *sql.DB, logger *zap.Logger) port.InstanceRepository {
	return &InstanceRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new service instance
func (r *InstanceRepository) Create(ctx context.Context, instance *entity.ServiceInstance) error {
	metadata, err := json.Marshal(instance.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `
		INSERT INTO service_instances (
			definition_id, state, current_step_index, metadata,
			sla_deadline, city, created_by
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		instance.DefinitionID,
		instance.State,
		instance.CurrentStepIndex,
		string(metadata),
		instance.SLADeadline,
		instance.City,
		instance.CreatedBy,
	)
	if err != nil {
		r.logger.Error("Failed to create instance", zap.Error(err))
		return fmt.Errorf("failed to create instance: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	instance.ID = id
	return nil
}

// GetByID retrieves a service instance by ID
func (r *InstanceRepository) GetByID(ctx context.Context, id int64) (*entity.ServiceInstance, error) {
	query := `
		SELECT id, definition_id, state, current_step_index, metadata,
			sla_deadline, city, created_by, created_at, updated_at
		FROM service_instances
		WHERE id = ?
	`

	instance, err := scanInstance(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get instance by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get instance: %w", err)
	}

	return instance, nil
}

// ListActive retrieves non-terminal instances ordered by id, optionally
// filtered by city
func (r *InstanceRepository) ListActive(ctx context.Context, city string, limit, offset int) ([]*entity.ServiceInstance, error) {
	query := `
		SELECT id, definition_id, state, current_step_index, metadata,
			sla_deadline, city, created_by, created_at, updated_at
		FROM service_instances
		WHERE state NOT IN ('delivered', 'cancelled')
			AND (? = '' OR city = ?)
		ORDER BY id
		LIMIT ? OFFSET ?
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, city, city, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list active instances", zap.Error(err))
		return nil, fmt.Errorf("failed to list active instances: %w", err)
	}
	defer rows.Close()

	var instances []*entity.ServiceInstance
	for rows.Next() {
		instance, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}
		instances = append(instances, instance)
	}

	return instances, rows.Err()
}

// UpdateStateIf applies the state change only if the stored state still
// equals fromState. The conditional write is the engine's only
// synchronization primitive; a zero row count means another transition won
// the race.
func (r *InstanceRepository) UpdateStateIf(ctx context.Context, id int64, fromState, toState string, stepIndex int, metadataJSON string) (bool, error) {
	query := `
		UPDATE service_instances
		SET state = ?, current_step_index = ?, metadata = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND state = ?
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		toState,
		stepIndex,
		metadataJSON,
		id,
		fromState,
	)
	if err != nil {
		r.logger.Error("Failed to update instance state",
			zap.Int64("id", id),
			zap.String("from", fromState),
			zap.String("to", toState),
			zap.Error(err))
		return false, fmt.Errorf("failed to update instance state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected > 0, nil
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanInstance(s scanner) (*entity.ServiceInstance, error) {
	var instance entity.ServiceInstance
	var metadata string
	var slaDeadline sql.NullTime
	var city sql.NullString

	err := s.Scan(
		&instance.ID,
		&instance.DefinitionID,
		&instance.State,
		&instance.CurrentStepIndex,
		&metadata,
		&slaDeadline,
		&city,
		&instance.CreatedBy,
		&instance.CreatedAt,
		&instance.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &instance.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if instance.Metadata == nil {
		instance.Metadata = map[string]any{}
	}
	if slaDeadline.Valid {
		instance.SLADeadline = &slaDeadline.Time
	}
	if city.Valid {
		instance.City = city.String
	}

	return &instance, nil
}

// Verify interface compliance
var _ port.InstanceRepository = (*InstanceRepository)(nil)
