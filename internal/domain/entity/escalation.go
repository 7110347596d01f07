package entity

import "time"

// Escalation records that an instance reached an escalation tier. One row per
// (instance, level) pair ever reached; existence of the row is the
// de-duplication key that prevents repeat notifications at the same tier.
type Escalation struct {
	ID         int64     `json:"id"`
	InstanceID int64     `json:"instance_id"`
	Level      int       `json:"level"`
	Priority   string    `json:"priority"`
	CreatedAt  time.Time `json:"created_at"`
}
