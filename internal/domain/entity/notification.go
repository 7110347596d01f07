package entity

import "time"

// Notification is one queued escalation notification for a role. Queued rows
// are delivered asynchronously; a delivery failure marks the row FAILED and
// never affects the escalation batch that created it.
type Notification struct {
	ID         int64      `json:"id"`
	InstanceID int64      `json:"instance_id"`
	Role       string     `json:"role"`
	Message    string     `json:"message"`
	Priority   string     `json:"priority"`
	Status     string     `json:"status"`
	ErrorMsg   string     `json:"error_msg,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
}

// Notification status constants
const (
	NotificationStatusPending = "PENDING"
	NotificationStatusSent    = "SENT"
	NotificationStatusFailed  = "FAILED"
)

// Escalation priority constants
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)
