package dto

import "time"

// ProgressionItem describes one gated requirement inside a report.
type ProgressionItem struct {
	RequirementID uint   `json:"requirement_id"`
	Name          string `json:"name"`
	Category      string `json:"category"`
	Mandatory     bool   `json:"mandatory"`
	Status        string `json:"status"`
	Progress      int    `json:"progress"`
}

// AvailableProgression summarizes one reachable role transition.
type AvailableProgression struct {
	TargetRole            string `json:"target_role"`
	AutoEligible          bool   `json:"auto_eligible"`
	EstimatedDaysToFinish int    `json:"estimated_days_to_finish"`
}

// ProgressionReport is the derived eligibility view for one user.
type ProgressionReport struct {
	UserID                uint                   `json:"user_id"`
	CurrentRole           string                 `json:"current_role"`
	NextRole              *string                `json:"next_role"`
	Progress              int                    `json:"progress"`
	CompletedRequirements []ProgressionItem      `json:"completed_requirements"`
	PendingRequirements   []ProgressionItem      `json:"pending_requirements"`
	AvailableProgressions []AvailableProgression `json:"available_progressions"`
	Recommendations       []string               `json:"recommendations"`
	GeneratedAt           time.Time              `json:"generated_at"`
}

// ProgressionTriggerRequest asks the engine to advance a user to targetRole.
type ProgressionTriggerRequest struct {
	TargetRole string `json:"target_role" validate:"required"`
}

// ProgressionOutcome is returned by a successful automated progression.
type ProgressionOutcome struct {
	UserID       uint              `json:"user_id"`
	PreviousRole string            `json:"previous_role"`
	NewRole      string            `json:"new_role"`
	Summary      AssignmentSummary `json:"summary"`
}
