package port

import "context"

// RoleNotifier delivers a notification to everyone holding a role.
// Implementations are fire-and-forget from the engine's perspective: a
// delivery failure is reported to the caller but must never fail the batch
// that produced the notification.
type RoleNotifier interface {
	Notify(ctx context.Context, role string, instanceID int64, message, priority string) error
}
