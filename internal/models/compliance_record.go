package models

import (
	"time"

	"gorm.io/datatypes"
)

// Lifecycle statuses for a compliance record.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusSubmitted  = "submitted"
	StatusApproved   = "approved"
	StatusRejected   = "rejected"
	StatusWaived     = "waived"
)

// transitions is the allowed status state machine. Anything absent here is
// an invalid transition.
var transitions = map[string][]string{
	StatusPending:    {StatusInProgress, StatusSubmitted, StatusWaived},
	StatusInProgress: {StatusSubmitted, StatusWaived},
	StatusSubmitted:  {StatusApproved, StatusRejected, StatusWaived},
	StatusRejected:   {StatusSubmitted},
	StatusApproved:   {},
	StatusWaived:     {},
}

// ValidStatus reports whether the status is part of the lifecycle.
func ValidStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}

// CanTransition reports whether the lifecycle permits moving from one
// status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// TerminalStatus reports whether the status counts as fully complete and
// accepts no further transitions.
func TerminalStatus(status string) bool {
	return status == StatusApproved || status == StatusWaived
}

// StatusProgress returns the display progress percentage for a status.
// In-progress work earns half credit on progress bars only; eligibility
// gating uses TerminalStatus.
func StatusProgress(status string) int {
	switch status {
	case StatusApproved, StatusWaived:
		return 100
	case StatusSubmitted:
		return 75
	case StatusInProgress:
		return 50
	default:
		return 0
	}
}

// ComplianceRecord tracks one requirement for one user through its
// lifecycle. Superseded records are kept with Active=false, never deleted.
type ComplianceRecord struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	UserID         uint           `gorm:"not null;index" json:"user_id"`
	RequirementID  uint           `gorm:"not null;index" json:"requirement_id"`
	Tier           string         `gorm:"size:16;not null" json:"tier"`
	Status         string         `gorm:"size:32;not null" json:"status"`
	Active         bool           `gorm:"not null;default:true" json:"active"`
	DueDate        time.Time      `json:"due_date"`
	CompletionDate *time.Time     `json:"completion_date"`
	Evidence       datatypes.JSON `gorm:"type:json" json:"evidence"`
	UpdatedBy      uint           `json:"updated_by"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	Requirement RequirementDefinition `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"requirement"`
}

// IsComplete reports whether the record counts as fully complete.
func (r ComplianceRecord) IsComplete() bool {
	return TerminalStatus(r.Status)
}
