package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/urbanly/service-engine/internal/application/port"
	"github.com/urbanly/service-engine/internal/domain/entity"
	"go.uber.org/zap"
)

// HistoryRepository implements port.HistoryRepository. The table is
// append-only; there are deliberately no update or delete operations.
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a state history record
func (r *HistoryRepository) Create(ctx context.Context, record *entity.StateHistory) error {
	query := `
		INSERT INTO state_history (
			instance_id, from_state, to_state, changed_by, reason, metadata
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		record.InstanceID,
		record.FromState,
		record.ToState,
		record.ChangedBy,
		record.Reason,
		record.Metadata,
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	record.ID = id
	return nil
}

// GetByInstanceID retrieves all history records for an instance in creation
// order
func (r *HistoryRepository) GetByInstanceID(ctx context.Context, instanceID int64) ([]*entity.StateHistory, error) {
	query := `
		SELECT id, instance_id, from_state, to_state, changed_by, reason, metadata, created_at
		FROM state_history
		WHERE instance_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := getExecutor(ctx, r.db).QueryContext(ctx, query, instanceID)
	if err != nil {
		r.logger.Error("Failed to get history by instance ID", zap.Int64("instance_id", instanceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.StateHistory
	for rows.Next() {
		var record entity.StateHistory
		err := rows.Scan(
			&record.ID,
			&record.InstanceID,
			&record.FromState,
			&record.ToState,
			&record.ChangedBy,
			&record.Reason,
			&record.Metadata,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
