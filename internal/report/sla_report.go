package report

import (
	"context"
	"fmt"

	"github.com/urbanly/service-engine/internal/application/port"
	"github.com/urbanly/service-engine/internal/application/sla"
	"github.com/urbanly/service-engine/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const sheetName = "SLA Compliance"

// Reporter exports a spreadsheet of all non-terminal instances with their
// current SLA standing, for operations review.
type Reporter struct {
	instances   port.InstanceRepository
	definitions port.DefinitionRepository
	evaluator   *sla.Evaluator
	logger      *zap.Logger
}

// NewReporter creates an SLA reporter
func NewReporter(
	instances port.InstanceRepository,
	definitions port.DefinitionRepository,
	evaluator *sla.Evaluator,
	logger *zap.Logger,
) *Reporter {
	return &Reporter{
		instances:   instances,
		definitions: definitions,
		evaluator:   evaluator,
		logger:      logger,
	}
}

// Export writes the compliance report to outputPath, optionally filtered by
// city. Returns the number of rows written.
func (r *Reporter) Export(ctx context.Context, city, outputPath string) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return 0, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headers := []string{"Instance ID", "Service", "City", "State", "SLA Status", "Target Date", "Days Remaining", "Escalation Level"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return 0, fmt.Errorf("failed to write header: %w", err)
		}
	}

	defs := make(map[int64]*entity.ServiceDefinition)
	row := 2
	offset := 0
	const batch = 500

	for {
		instances, err := r.instances.ListActive(ctx, city, batch, offset)
		if err != nil {
			return 0, fmt.Errorf("failed to list instances: %w", err)
		}
		if len(instances) == 0 {
			break
		}

		for _, instance := range instances {
			def, ok := defs[instance.DefinitionID]
			if !ok {
				def, err = r.definitions.GetByID(ctx, instance.DefinitionID)
				if err != nil {
					return 0, err
				}
				if def == nil {
					r.logger.Warn("Skipping instance with missing definition",
						zap.Int64("instance_id", instance.ID),
						zap.Int64("definition_id", instance.DefinitionID))
					continue
				}
				defs[instance.DefinitionID] = def
			}

			status := r.evaluator.Evaluate(instance, def)
			values := []any{
				instance.ID,
				def.Code,
				instance.City,
				instance.State,
				status.Status,
				status.TargetDate.Format("2006-01-02"),
				status.DaysRemaining,
				status.EscalationLevel,
			}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				if err := f.SetCellValue(sheetName, cell, v); err != nil {
					return 0, fmt.Errorf("failed to write row %d: %w", row, err)
				}
			}
			row++
		}

		offset += len(instances)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}

	written := row - 2
	r.logger.Info("SLA report exported",
		zap.String("path", outputPath),
		zap.Int("rows", written),
		zap.String("city", city))

	return written, nil
}
