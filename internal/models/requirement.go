package models

import (
	"time"

	"gorm.io/datatypes"
)

// Requirement types.
const (
	RequirementTypeCertification = "certification"
	RequirementTypeTraining      = "training"
	RequirementTypeDocument      = "document"
	RequirementTypeAssessment    = "assessment"
)

// RequirementDefinition is the immutable catalog entry describing one
// trackable compliance item for a (role, tier) pair.
type RequirementDefinition struct {
	ID                     uint           `gorm:"primaryKey" json:"id"`
	Name                   string         `gorm:"size:255;not null;uniqueIndex:idx_requirement_role_tier_name" json:"name"`
	Role                   string         `gorm:"size:8;not null;uniqueIndex:idx_requirement_role_tier_name" json:"role"`
	Tier                   string         `gorm:"size:16;not null;uniqueIndex:idx_requirement_role_tier_name" json:"tier"`
	Category               string         `gorm:"size:64" json:"category"`
	Type                   string         `gorm:"size:32;not null" json:"type"`
	ValidationRules        datatypes.JSON `gorm:"type:json" json:"validation_rules"`
	Mandatory              bool           `gorm:"not null" json:"mandatory"`
	PointsValue            int            `gorm:"not null;default:0" json:"points_value"`
	DueDaysFromAssignment  int            `gorm:"not null;default:0" json:"due_days_from_assignment"`
	DisplayOrder           int            `gorm:"not null;default:0" json:"display_order"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// ValidRequirementType reports whether the type tag is recognised.
func ValidRequirementType(t string) bool {
	switch t {
	case RequirementTypeCertification, RequirementTypeTraining,
		RequirementTypeDocument, RequirementTypeAssessment:
		return true
	}
	return false
}
