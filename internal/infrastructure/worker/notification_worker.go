package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/urbanly/service-engine/internal/application/port"
	"go.uber.org/zap"
)

// NotificationWorkerConfig holds configuration for the notification worker
type NotificationWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultNotificationWorkerConfig returns default configuration
func DefaultNotificationWorkerConfig() NotificationWorkerConfig {
	return NotificationWorkerConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    50,
	}
}

// NotificationWorker drains the notification queue and delivers through the
// role notifier. Delivery is fire-and-forget from the escalation batch's
// perspective: a failed send marks the row FAILED and the sweep that queued
// it is unaffected.
type NotificationWorker struct {
	config        NotificationWorkerConfig
	notifications port.NotificationRepository
	notifier      port.RoleNotifier
	logger        *zap.Logger

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewNotificationWorker creates a notification worker
func NewNotificationWorker(
	config NotificationWorkerConfig,
	notifications port.NotificationRepository,
	notifier port.RoleNotifier,
	logger *zap.Logger,
) *NotificationWorker {
	return &NotificationWorker{
		config:        config,
		notifications: notifications,
		notifier:      notifier,
		logger:        logger,
	}
}

// Name returns the worker name
func (w *NotificationWorker) Name() string {
	return "notification_worker"
}

// Start begins the queue polling loop
func (w *NotificationWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.isRunning {
		return fmt.Errorf("notification worker already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("NotificationWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.run(ctx)

	return nil
}

// Stop gracefully terminates the worker
func (w *NotificationWorker) Stop() error {
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

	w.logger.Info("NotificationWorker stopped")
	return nil
}

func (w *NotificationWorker) run(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *NotificationWorker) drain(ctx context.Context) {
	pending, err := w.notifications.GetPending(ctx, w.config.BatchSize)
	if err != nil {
		w.logger.Error("Failed to fetch pending notifications", zap.Error(err))
		return
	}

	for _, n := range pending {
		if err := w.notifier.Notify(ctx, n.Role, n.InstanceID, n.Message, n.Priority); err != nil {
			w.logger.Warn("Notification delivery failed",
				zap.Int64("notification_id", n.ID),
				zap.String("role", n.Role),
				zap.Error(err))
			if markErr := w.notifications.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
				w.logger.Error("Failed to mark notification failed",
					zap.Int64("notification_id", n.ID),
					zap.Error(markErr))
			}
			continue
		}

		if err := w.notifications.MarkSent(ctx, n.ID); err != nil {
			w.logger.Error("Failed to mark notification sent",
				zap.Int64("notification_id", n.ID),
				zap.Error(err))
		}
	}
}
