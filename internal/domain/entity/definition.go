package entity

import "time"

// ServiceDefinition is the immutable template a service instance is bound to:
// an ordered list of fulfillment steps plus the SLA configuration. Authored
// by configuration tooling; read-only to the engine.
type ServiceDefinition struct {
	ID        int64       `json:"id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Steps     []Step      `json:"steps"`
	SLA       SLAConfig   `json:"sla"`
	CreatedAt time.Time   `json:"created_at"`
}

// Step is a single fulfillment step within a service definition.
type Step struct {
	Index         int    `json:"index"`
	Name          string `json:"name"`
	EstimatedDays int    `json:"estimated_days"`
}

// SLAConfig holds the SLA targets and escalation ladder for a definition.
type SLAConfig struct {
	TargetDays           int               `json:"target_days"`
	WarningThresholdDays int               `json:"warning_threshold_days"`
	EscalationLevels     []EscalationLevel `json:"escalation_levels"`
}

// EscalationLevel is one tier of the escalation ladder. Level is the 1-based
// tier number; AfterDays is the age at which the tier starts qualifying.
type EscalationLevel struct {
	Level       int      `json:"level"`
	AfterDays   int      `json:"after_days"`
	NotifyRoles []string `json:"notify_roles"`
	Priority    string   `json:"priority"`
}

// StepCount returns the number of fulfillment steps.
func (d *ServiceDefinition) StepCount() int {
	return len(d.Steps)
}

// LevelConfig returns the escalation tier configuration for a level, or nil
// if the level is not configured.
func (d *ServiceDefinition) LevelConfig(level int) *EscalationLevel {
	for i := range d.SLA.EscalationLevels {
		if d.SLA.EscalationLevels[i].Level == level {
			return &d.SLA.EscalationLevels[i]
		}
	}
	return nil
}
