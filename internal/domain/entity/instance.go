package entity

import "time"

// ServiceInstance is a live workflow tracked through its definition's state
// graph. State is mutated exclusively through the transition executor and is
// always a member of the state list derived from the bound definition.
// Instances are never deleted; terminal states mark end-of-life.
type ServiceInstance struct {
	ID               int64          `json:"id"`
	DefinitionID     int64          `json:"definition_id"`
	State            string         `json:"state"`
	CurrentStepIndex int            `json:"current_step_index"`
	Metadata         map[string]any `json:"metadata"`
	SLADeadline      *time.Time     `json:"sla_deadline,omitempty"`
	City             string         `json:"city,omitempty"`
	CreatedBy        string         `json:"created_by"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// MergedMetadata returns the instance metadata with patch applied on top.
// The merge is shallow and last-write-wins per key: patch keys override
// existing keys, keys absent from patch persist unchanged. The receiver is
// not mutated.
func (i *ServiceInstance) MergedMetadata(patch map[string]any) map[string]any {
	merged := make(map[string]any, len(i.Metadata)+len(patch))
	for k, v := range i.Metadata {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}
