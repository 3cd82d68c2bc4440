package dto

import (
	"time"

	"github.com/blindpi/arccm-api/internal/models"
)

// TierSwitchRequest is the payload for switching a user's compliance tier.
type TierSwitchRequest struct {
	Tier   string `json:"tier" validate:"required,oneof=basic robust"`
	Reason string `json:"reason" validate:"omitempty,max=1024"`
}

// AssignRequirementsRequest triggers requirement reconciliation for a user,
// typically in response to an external role/tier edit notification.
type AssignRequirementsRequest struct {
	Role string `json:"role" validate:"required"`
	Tier string `json:"tier" validate:"required,oneof=basic robust"`
}

// AssignmentSummary reports what a reconciliation pass changed.
type AssignmentSummary struct {
	Created    int `json:"created"`
	Carried    int `json:"carried"`
	Superseded int `json:"superseded"`
}

// Total returns the number of records touched by the reconciliation.
func (s AssignmentSummary) Total() int {
	return s.Created + s.Carried + s.Superseded
}

// TierSwitchOutcome is returned by a successful tier switch.
type TierSwitchOutcome struct {
	UserID       uint              `json:"user_id"`
	PreviousTier string            `json:"previous_tier"`
	NewTier      string            `json:"new_tier"`
	NoOp         bool              `json:"no_op"`
	Summary      AssignmentSummary `json:"summary"`
}

// TierHistoryResponse serializes one tier switch history row.
type TierHistoryResponse struct {
	ID           uint      `json:"id"`
	UserID       uint      `json:"user_id"`
	PreviousTier string    `json:"previous_tier"`
	NewTier      string    `json:"new_tier"`
	ChangedBy    uint      `json:"changed_by"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewTierHistoryResponse converts a TierHistory model into a DTO.
func NewTierHistoryResponse(model models.TierHistory) TierHistoryResponse {
	return TierHistoryResponse{
		ID:           model.ID,
		UserID:       model.UserID,
		PreviousTier: model.PreviousTier,
		NewTier:      model.NewTier,
		ChangedBy:    model.ChangedBy,
		Reason:       model.Reason,
		CreatedAt:    model.CreatedAt,
	}
}

// NewTierHistoryResponseSlice converts a slice of history rows.
func NewTierHistoryResponseSlice(items []models.TierHistory) []TierHistoryResponse {
	responses := make([]TierHistoryResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewTierHistoryResponse(item))
	}
	return responses
}
