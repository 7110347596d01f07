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

// DefinitionRepository implements port.DefinitionRepository. Step lists and
// SLA configuration are stored as JSON columns; the rest of the engine only
// ever sees the unmarshalled structs.
type DefinitionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDefinitionRepository creates a new definition repository
func NewDefinitionRepository(db *sql.DB, logger *zap.Logger) port.DefinitionRepository {
	return &DefinitionRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new service definition
func (r *DefinitionRepository) Create(ctx context.Context, def *entity.ServiceDefinition) error {
	steps, err := json.Marshal(def.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal steps: %w", err)
	}
	slaCfg, err := json.Marshal(def.SLA)
	if err != nil {
		return fmt.Errorf("failed to marshal sla config: %w", err)
	}

	query := `
		INSERT INTO service_definitions (code, name, steps, sla)
		VALUES (?, ?, ?, ?)
	`

	result, err := getExecutor(ctx, r.db).ExecContext(ctx, query,
		def.Code,
		def.Name,
		string(steps),
		string(slaCfg),
	)
	if err != nil {
		r.logger.Error("Failed to create definition", zap.String("code", def.Code), zap.Error(err))
		return fmt.Errorf("failed to create definition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	def.ID = id
	return nil
}

// GetByID retrieves a service definition by ID
func (r *DefinitionRepository) GetByID(ctx context.Context, id int64) (*entity.ServiceDefinition, error) {
	query := `
		SELECT id, code, name, steps, sla, created_at
		FROM service_definitions
		WHERE id = ?
	`
	return r.scanOne(getExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
}

// GetByCode retrieves a service definition by its unique code
func (r *DefinitionRepository) GetByCode(ctx context.Context, code string) (*entity.ServiceDefinition, error) {
	query := `
		SELECT id, code, name, steps, sla, created_at
		FROM service_definitions
		WHERE code = ?
	`
	return r.scanOne(getExecutor(ctx, r.db).QueryRowContext(ctx, query, code))
}

func (r *DefinitionRepository) scanOne(row *sql.Row) (*entity.ServiceDefinition, error) {
	var def entity.ServiceDefinition
	var steps, slaCfg string

	err := row.Scan(
		&def.ID,
		&def.Code,
		&def.Name,
		&steps,
		&slaCfg,
		&def.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get definition", zap.Error(err))
		return nil, fmt.Errorf("failed to get definition: %w", err)
	}

	if err := json.Unmarshal([]byte(steps), &def.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	if err := json.Unmarshal([]byte(slaCfg), &def.SLA); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sla config: %w", err)
	}

	return &def, nil
}

// Verify interface compliance
var _ port.DefinitionRepository = (*DefinitionRepository)(nil)
