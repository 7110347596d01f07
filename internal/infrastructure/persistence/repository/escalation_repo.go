package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/urbanly/service-engine/internal/application/port"
	"github.com/urbanly/service-engine/internal/domain/entity"
	"go.uber.org/zap"
)

// EscalationRepository implements port.EscalationRepository. A UNIQUE
// constraint on (instance_id, level) backs the existence check, so even a
// racing duplicate insert fails at the store.
type EscalationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEscalationRepository creates a new escalation repository
func NewEscalationRepository(db *sql.DB, logger *zap.Logger) port.EscalationRepository {
	return &EscalationRepository{
		db:     db,
		logger: logger,
	}
}

// Create records that an instance reached an escalation level
func (r *EscalationRepository) Create(ctx context.Context, esc *entity.Escalation) error {
	query := `
		INSERT INTO escalations (instance_id, level, priority)
		VALUES (?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		esc.InstanceID,
		esc.Level,
		esc.Priority,
	)
	if err != nil {
		r.logger.Error("Failed to create escalation",
			zap.Int64("instance_id", esc.InstanceID),
			zap.Int("level", esc.Level),
			zap.Error(err))
		return fmt.Errorf("failed to create escalation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	esc.ID = id
	return nil
}

// Exists reports whether the (instance, level) pair has already been
// escalated
func (r *EscalationRepository) Exists(ctx context.Context, instanceID int64, level int) (bool, error) {
	query := `SELECT 1 FROM escalations WHERE instance_id = ? AND level = ?`

	var one int
	err := getExecutor(ctx, r.db).QueryRowContext(ctx, query, instanceID, level).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		r.logger.Error("Failed to check escalation existence",
			zap.Int64("instance_id", instanceID),
			zap.Int("level", level),
			zap.Error(err))
		return false, fmt.Errorf("failed to check escalation: %w", err)
	}

	return true, nil
}

// GetByInstanceID retrieves all escalations for an instance
func (r *EscalationRepository) GetByInstanceID(ctx context.Context, instanceID int64) ([]*entity.Escalation, error) {
	query := `
		SELECT id, instance_id, level, priority, created_at
		FROM escalations
		WHERE instance_id = ?
		ORDER BY level ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, instanceID)
	if err != nil {
		r.logger.Error("Failed to get escalations", zap.Int64("instance_id", instanceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get escalations: %w", err)
	}
	defer rows.Close()

	var escalations []*entity.Escalation
	for rows.Next() {
		var esc entity.Escalation
		err := rows.Scan(
			&esc.ID,
			&esc.InstanceID,
			&esc.Level,
			&esc.Priority,
			&esc.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan escalation: %w", err)
		}
		escalations = append(escalations, &esc)
	}

	return escalations, rows.Err()
}

// Verify interface compliance
var _ port.EscalationRepository = (*EscalationRepository)(nil)
