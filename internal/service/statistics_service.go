package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/models"
	"github.com/blindpi/arccm-api/internal/repository"
)

const tierStatisticsCacheKey = "compliance:statistics:tiers"

// CacheInvalidator is the hook mutation paths call so cached aggregates
// never outlive a record transition.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// StatisticsService rolls per-user compliance records into tier-level
// completion aggregates. Read-only; safe to recompute on every call.
type StatisticsService interface {
	CacheInvalidator
	TierStatistics(ctx context.Context) (dto.TierStatisticsResponse, error)
}

type statisticsService struct {
	users    repository.UserRepository
	records  repository.RecordRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewStatisticsService builds the statistics aggregator.
func NewStatisticsService(users repository.UserRepository, records repository.RecordRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StatisticsService {
	return &statisticsService{
		users:    users,
		records:  records,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "statistics_service").Logger(),
		now:      time.Now,
	}
}

func (s *statisticsService) TierStatistics(ctx context.Context) (dto.TierStatisticsResponse, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, tierStatisticsCacheKey).Result(); err == nil {
			var response dto.TierStatisticsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				s.logger.Debug().Msg("tier statistics cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read statistics cache")
		}
	}

	basicUsers, basicAvg, err := s.tierAggregate(ctx, models.TierBasic)
	if err != nil {
		return dto.TierStatisticsResponse{}, err
	}

	robustUsers, robustAvg, err := s.tierAggregate(ctx, models.TierRobust)
	if err != nil {
		return dto.TierStatisticsResponse{}, err
	}

	response := dto.TierStatisticsResponse{
		BasicTierUsers:      basicUsers,
		RobustTierUsers:     robustUsers,
		BasicCompletionAvg:  basicAvg,
		RobustCompletionAvg: robustAvg,
		GeneratedAt:         s.now().UTC(),
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, tierStatisticsCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store statistics cache")
			}
		}
	}

	return response, nil
}

// Invalidate drops the cached aggregate. Called by every successful record
// or tier mutation.
func (s *statisticsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, tierStatisticsCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate statistics cache")
	}
}

func (s *statisticsService) tierAggregate(ctx context.Context, tier string) (int64, float64, error) {
	users, err := s.users.ListByTier(ctx, tier)
	if err != nil {
		return 0, 0, err
	}
	if len(users) == 0 {
		return 0, 0, nil
	}

	userIDs := make([]uint, 0, len(users))
	for _, user := range users {
		userIDs = append(userIDs, user.ID)
	}

	records, err := s.records.ListActiveForUsers(ctx, userIDs)
	if err != nil {
		return 0, 0, err
	}

	recordsByUser := make(map[uint][]models.ComplianceRecord, len(users))
	for _, record := range records {
		recordsByUser[record.UserID] = append(recordsByUser[record.UserID], record)
	}

	var completionSum float64
	for _, user := range users {
		completionSum += userCompletion(recordsByUser[user.ID])
	}

	return int64(len(users)), completionSum / float64(len(users)), nil
}

// userCompletion is the weighted completion percentage: terminal-complete
// mandatory points over all mandatory points. A user with zero mandatory
// points defined is 100% complete by convention.
func userCompletion(records []models.ComplianceRecord) float64 {
	var earned, total int
	for _, record := range records {
		if !record.Requirement.Mandatory {
			continue
		}
		total += record.Requirement.PointsValue
		if record.IsComplete() {
			earned += record.Requirement.PointsValue
		}
	}

	if total == 0 {
		return 100
	}
	return float64(earned) / float64(total) * 100
}
