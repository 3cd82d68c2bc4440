package dto

import "time"

// TierStatisticsResponse aggregates compliance completion per tier for
// dashboards. Completion averages are weighted by mandatory points.
type TierStatisticsResponse struct {
	BasicTierUsers      int64     `json:"basic_tier_users"`
	RobustTierUsers     int64     `json:"robust_tier_users"`
	BasicCompletionAvg  float64   `json:"basic_completion_avg"`
	RobustCompletionAvg float64   `json:"robust_completion_avg"`
	GeneratedAt         time.Time `json:"generated_at"`
	CacheHit            bool      `json:"cache_hit"`
}
