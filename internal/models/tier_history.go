package models

import "time"

// TierHistory records one tier switch for a user. Append-only.
type TierHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	PreviousTier string    `gorm:"size:16" json:"previous_tier"`
	NewTier      string    `gorm:"size:16;not null" json:"new_tier"`
	ChangedBy    uint      `gorm:"not null" json:"changed_by"`
	Reason       string    `gorm:"type:text" json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}
