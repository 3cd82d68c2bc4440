package models

import "time"

// Role identifies a position in the organization's role hierarchy.
const (
	RoleSystemAdmin           = "SA"
	RoleAdmin                 = "AD"
	RoleAuthorizedProvider    = "AP"
	RoleInstructorCertified   = "IC"
	RoleInstructorProvisional = "IP"
	RoleInstructorTrainee     = "IT"
	RoleInstructorNew         = "IN"
)

// Compliance tiers. An empty tier means the user has not been onboarded yet.
const (
	TierBasic  = "basic"
	TierRobust = "robust"
)

// ValidRole reports whether the given role code is part of the hierarchy.
func ValidRole(role string) bool {
	switch role {
	case RoleSystemAdmin, RoleAdmin, RoleAuthorizedProvider,
		RoleInstructorCertified, RoleInstructorProvisional,
		RoleInstructorTrainee, RoleInstructorNew:
		return true
	}
	return false
}

// ValidTier reports whether the given tier is assignable.
func ValidTier(tier string) bool {
	return tier == TierBasic || tier == TierRobust
}

// IsAdminRole reports whether the role carries administrative privileges,
// which gate waiving requirements and catalog edits.
func IsAdminRole(role string) bool {
	return role == RoleSystemAdmin || role == RoleAdmin
}

// User mirrors the external user directory entry the engine operates on.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Role      string    `gorm:"size:8;not null" json:"role"`
	Tier      string    `gorm:"size:16" json:"tier"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
