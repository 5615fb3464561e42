package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditReport is the read-only outcome of evaluating every owner in a world.
// Nothing in an audit is deleted.
type AuditReport struct {
	Source      string       `json:"source" yaml:"source"` // World file that was audited
	GeneratedAt time.Time    `json:"generated_at" yaml:"generated_at"`
	Pacing      Pacing       `json:"pacing" yaml:"pacing"`
	Summary     AuditSummary `json:"summary" yaml:"summary"`
	Owners      []OwnerAudit `json:"owners" yaml:"owners"`
}

// Pacing describes how fast the scheduler would walk the population
type Pacing struct {
	RateType           string        `json:"rate_type" yaml:"rate_type"`
	RateValue          float64       `json:"rate_value" yaml:"rate_value"`
	Population         int           `json:"population" yaml:"population"`
	DelayTicks         int64         `json:"delay_ticks" yaml:"delay_ticks"`
	GenerationDuration time.Duration `json:"generation_duration" yaml:"generation_duration"` // Time to exhaust one generation
}

// AuditSummary counts owners and claims by outcome
type AuditSummary struct {
	Owners         int `json:"owners" yaml:"owners"`
	Exempt         int `json:"exempt" yaml:"exempt"`
	Protected      int `json:"protected" yaml:"protected"`
	Unknown        int `json:"unknown" yaml:"unknown"`
	WithEligible   int `json:"with_eligible" yaml:"with_eligible"`
	EligibleClaims int `json:"eligible_claims" yaml:"eligible_claims"`
}

// OwnerStatus classifies an owner after evaluation
type OwnerStatus string

const (
	OwnerExempt    OwnerStatus = "exempt"    // Bypass condition matched
	OwnerProtected OwnerStatus = "protected" // Inactive for less than the shortest window
	OwnerEvaluated OwnerStatus = "evaluated" // Claims were examined individually
	OwnerUnknown   OwnerStatus = "unknown"   // No account record
)

// OwnerAudit is the verdict for a single owner
type OwnerAudit struct {
	Owner    uuid.UUID      `json:"owner" yaml:"owner"`
	Name     string         `json:"name,omitempty" yaml:"name,omitempty"`
	Status   OwnerStatus    `json:"status" yaml:"status"`
	Inactive time.Duration  `json:"inactive" yaml:"inactive"`
	Claims   []ClaimVerdict `json:"claims,omitempty" yaml:"claims,omitempty"`
	Error    string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// ClaimVerdict is the outcome for a single top-level claim
type ClaimVerdict struct {
	Claim      ClaimID       `json:"claim" yaml:"claim"`
	World      string        `json:"world" yaml:"world"`
	Area       int           `json:"area" yaml:"area"`
	Protection time.Duration `json:"protection" yaml:"protection"`
	Never      bool          `json:"never_expires" yaml:"never_expires"`
	Exempt     bool          `json:"exempt,omitempty" yaml:"exempt,omitempty"` // Exempt in this claim's world only
	Eligible   bool          `json:"eligible" yaml:"eligible"`
}
