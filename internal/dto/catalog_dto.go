package dto

import (
	"encoding/json"
	"time"

	"github.com/blindpi/arccm-api/internal/models"
)

// DefinitionCreateRequest adds a requirement definition to the catalog.
// ValidationRules stays opaque to the engine; it is only schema-checked at
// this boundary so downstream consumers can rely on its shape.
type DefinitionCreateRequest struct {
	Name                  string          `json:"name" validate:"required,min=2,max=255"`
	Role                  string          `json:"role" validate:"required"`
	Tier                  string          `json:"tier" validate:"required,oneof=basic robust"`
	Category              string          `json:"category" validate:"omitempty,max=64"`
	Type                  string          `json:"type" validate:"required,oneof=certification training document assessment"`
	ValidationRules       json.RawMessage `json:"validation_rules" validate:"omitempty"`
	Mandatory             bool            `json:"mandatory"`
	PointsValue           int             `json:"points_value" validate:"gte=0"`
	DueDaysFromAssignment int             `json:"due_days_from_assignment" validate:"gte=0"`
	DisplayOrder          int             `json:"display_order" validate:"gte=0"`
}

// DefinitionFilter narrows catalog listings.
type DefinitionFilter struct {
	Role string `query:"role"`
	Tier string `query:"tier" validate:"omitempty,oneof=basic robust"`
}

// DefinitionResponse serializes a catalog definition.
type DefinitionResponse struct {
	ID                    uint            `json:"id"`
	Name                  string          `json:"name"`
	Role                  string          `json:"role"`
	Tier                  string          `json:"tier"`
	Category              string          `json:"category"`
	Type                  string          `json:"type"`
	ValidationRules       json.RawMessage `json:"validation_rules,omitempty"`
	Mandatory             bool            `json:"mandatory"`
	PointsValue           int             `json:"points_value"`
	DueDaysFromAssignment int             `json:"due_days_from_assignment"`
	DisplayOrder          int             `json:"display_order"`
	CreatedAt             time.Time       `json:"created_at"`
}

// NewDefinitionResponse converts a RequirementDefinition into a DTO.
func NewDefinitionResponse(model models.RequirementDefinition) DefinitionResponse {
	return DefinitionResponse{
		ID:                    model.ID,
		Name:                  model.Name,
		Role:                  model.Role,
		Tier:                  model.Tier,
		Category:              model.Category,
		Type:                  model.Type,
		ValidationRules:       rawJSON(model.ValidationRules),
		Mandatory:             model.Mandatory,
		PointsValue:           model.PointsValue,
		DueDaysFromAssignment: model.DueDaysFromAssignment,
		DisplayOrder:          model.DisplayOrder,
		CreatedAt:             model.CreatedAt,
	}
}

// NewDefinitionResponseSlice converts a slice of definitions.
func NewDefinitionResponseSlice(items []models.RequirementDefinition) []DefinitionResponse {
	responses := make([]DefinitionResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, NewDefinitionResponse(item))
	}
	return responses
}
