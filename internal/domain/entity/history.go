package entity

import "time"

// StateHistory is one append-only record per successful transition. Records
// are never updated or deleted; replayed in timestamp order they reconstruct
// the exact sequence of observed states.
type StateHistory struct {
	ID         int64     `json:"id"`
	InstanceID int64     `json:"instance_id"`
	FromState  string    `json:"from_state"`
	ToState    string    `json:"to_state"`
	ChangedBy  string    `json:"changed_by"`
	Reason     string    `json:"reason,omitempty"`
	Metadata   string    `json:"metadata,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
