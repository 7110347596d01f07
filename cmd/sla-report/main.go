package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/subosito/gotenv"
	"github.com/urbanly/service-engine/internal/application/sla"
	"github.com/urbanly/service-engine/internal/config"
	"github.com/urbanly/service-engine/internal/infrastructure/persistence/repository"
	"github.com/urbanly/service-engine/internal/report"
	"github.com/urbanly/service-engine/pkg/database"
	"github.com/urbanly/service-engine/pkg/utils"
	"go.uber.org/zap"
)

// One-shot SLA compliance export for operations.
func main() {
	_ = gotenv.Load()

	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	city := flag.String("city", "", "restrict the report to one city")
	output := flag.String("output", "", "output path (defaults to <report.output_dir>/sla_<date>.xlsx)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stdout",
		Format:     "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer sqlDB.Close()

	instanceRepo := repository.NewInstanceRepository(sqlDB, logger)
	definitionRepo := repository.NewDefinitionRepository(sqlDB, logger)
	evaluator := sla.NewEvaluator(instanceRepo, definitionRepo)
	reporter := report.NewReporter(instanceRepo, definitionRepo, evaluator, logger)

	outputPath := *output
	if outputPath == "" {
		if err := os.MkdirAll(cfg.Report.OutputDir, 0755); err != nil {
			logger.Fatal("Failed to create output directory", zap.Error(err))
		}
		outputPath = filepath.Join(cfg.Report.OutputDir,
			fmt.Sprintf("sla_%s.xlsx", time.Now().Format("2006-01-02")))
	}

	rows, err := reporter.Export(context.Background(), *city, outputPath)
	if err != nil {
		logger.Fatal("Report export failed", zap.Error(err))
	}

	logger.Info("Report written", zap.String("path", outputPath), zap.Int("rows", rows))
}
