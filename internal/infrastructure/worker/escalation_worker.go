package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/urbanly/service-engine/internal/application/escalation"
	"go.uber.org/zap"
)

// EscalationWorkerConfig holds configuration for the escalation worker
type EscalationWorkerConfig struct {
	Interval time.Duration
	City     string // empty sweeps all cities
}

// DefaultEscalationWorkerConfig returns default configuration
func DefaultEscalationWorkerConfig() EscalationWorkerConfig {
	return EscalationWorkerConfig{
		Interval: 24 * time.Hour,
	}
}

// EscalationWorker runs the escalation processor on a fixed schedule,
// concurrently with live transition traffic. The first sweep runs
// immediately on start.
type EscalationWorker struct {
	config    EscalationWorkerConfig
	processor *escalation.Processor
	logger    *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewEscalationWorker creates an escalation worker
func NewEscalationWorker(config EscalationWorkerConfig, processor *escalation.Processor, logger *zap.Logger) *EscalationWorker {
	return &EscalationWorker{
		config:    config,
		processor: processor,
		logger:    logger,
	}
}

// Name returns the worker name
func (w *EscalationWorker) Name() string {
	return "escalation_worker"
}

// Start begins the periodic sweep loop
func (w *EscalationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("escalation worker already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("EscalationWorker started",
		zap.Duration("interval", w.config.Interval),
		zap.String("city", w.config.City))

	go w.run(ctx)

	return nil
}

// Stop gracefully terminates the worker
func (w *EscalationWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	cancel()
	<-done

	w.logger.Info("EscalationWorker stopped")
	return nil
}

func (w *EscalationWorker) run(ctx context.Context) {
	defer close(w.done)

	w.sweep(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *EscalationWorker) sweep(ctx context.Context) {
	report, err := w.processor.Run(ctx, w.config.City)
	if err != nil {
		w.logger.Error("Escalation sweep failed",
			zap.Int("processed", report.Processed),
			zap.Error(err))
		return
	}

	w.logger.Info("Escalation sweep finished",
		zap.Int("processed", report.Processed),
		zap.Int("escalated", report.Escalated))
}
