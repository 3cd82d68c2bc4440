package models

import "time"

// ProgressionPath defines one edge of the role-progression chain as
// catalog data, so reordering the chain is a data change, not a code change.
type ProgressionPath struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FromRole     string    `gorm:"size:8;not null;uniqueIndex:idx_progression_path" json:"from_role"`
	ToRole       string    `gorm:"size:8;not null;uniqueIndex:idx_progression_path" json:"to_role"`
	DisplayOrder int       `gorm:"not null;default:0" json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// ProgressionRequirement maps a requirement definition to the role
// transition it gates. Many-to-many with RequirementDefinition.
type ProgressionRequirement struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	FromRole      string    `gorm:"size:8;not null;index:idx_progression_req_edge" json:"from_role"`
	ToRole        string    `gorm:"size:8;not null;index:idx_progression_req_edge" json:"to_role"`
	RequirementID uint      `gorm:"not null" json:"requirement_id"`
	CreatedAt     time.Time `json:"created_at"`

	Requirement RequirementDefinition `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"requirement"`
}
