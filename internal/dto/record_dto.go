package dto

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/blindpi/arccm-api/internal/models"
)

// RecordTransitionRequest moves a compliance record to a new status.
// LastSeenUpdatedAt carries the caller's view of the record for optimistic
// concurrency; a stale value is rejected with a conflict.
type RecordTransitionRequest struct {
	Status            string          `json:"status" validate:"required,oneof=pending in_progress submitted approved rejected waived"`
	Evidence          json.RawMessage `json:"evidence" validate:"omitempty"`
	LastSeenUpdatedAt time.Time       `json:"last_seen_updated_at" validate:"required"`
}

// RequirementLite summarizes a catalog definition inside record responses.
type RequirementLite struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Mandatory   bool   `json:"mandatory"`
	PointsValue int    `json:"points_value"`
}

// RecordResponse is the read model for a compliance record.
type RecordResponse struct {
	ID             uint            `json:"id"`
	UserID         uint            `json:"user_id"`
	RequirementID  uint            `json:"requirement_id"`
	Tier           string          `json:"tier"`
	Status         string          `json:"status"`
	Active         bool            `json:"active"`
	Progress       int             `json:"progress"`
	DueDate        time.Time       `json:"due_date"`
	CompletionDate *time.Time      `json:"completion_date"`
	Evidence       json.RawMessage `json:"evidence,omitempty"`
	UpdatedBy      uint            `json:"updated_by"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Requirement    RequirementLite `json:"requirement"`
}

// NewRecordResponse converts a ComplianceRecord model into a DTO.
func NewRecordResponse(model models.ComplianceRecord) RecordResponse {
	return RecordResponse{
		ID:             model.ID,
		UserID:         model.UserID,
		RequirementID:  model.RequirementID,
		Tier:           model.Tier,
		Status:         model.Status,
		Active:         model.Active,
		Progress:       models.StatusProgress(model.Status),
		DueDate:        model.DueDate,
		CompletionDate: model.CompletionDate,
		Evidence:       rawJSON(model.Evidence),
		UpdatedBy:      model.UpdatedBy,
		CreatedAt:      model.CreatedAt,
		UpdatedAt:      model.UpdatedAt,
		Requirement: RequirementLite{
			ID:          model.Requirement.ID,
			Name:        model.Requirement.Name,
			Category:    model.Requirement.Category,
			Type:        model.Requirement.Type,
			Mandatory:   model.Requirement.Mandatory,
			PointsValue: model.Requirement.PointsValue,
		},
	}
}

// NewRecordResponseSlice converts a slice of records.
func NewRecordResponseSlice(items []models.ComplianceRecord) []RecordResponse {
	responses := make([]RecordResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewRecordResponse(item))
	}
	return responses
}

func rawJSON(data datatypes.JSON) json.RawMessage {
	if len(data) == 0 {
		return nil
	}
	return json.RawMessage(data)
}
