package dto

import "time"

// RecordChangeEvent is emitted whenever a compliance record or a user's tier
// changes. Collaborators (UI cache invalidation, notification delivery)
// subscribe to these; the engine itself sends no notifications.
type RecordChangeEvent struct {
	UserID     uint      `json:"user_id"`
	RecordID   uint      `json:"record_id,omitempty"`
	Action     string    `json:"action"`
	Status     string    `json:"status,omitempty"`
	Tier       string    `json:"tier,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
