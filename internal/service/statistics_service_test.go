package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/blindpi/arccm-api/internal/models"
)

func setupStatisticsEnv(t *testing.T) (*serviceEnv, StatisticsService, *miniredis.Miniredis) {
	t.Helper()

	env := newServiceEnv(t)

	server := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := NewStatisticsService(env.users, env.records, client, time.Minute, testLogger())
	return env, svc, server
}

func TestTierStatisticsWeightedCompletion(t *testing.T) {
	env, svc, _ := setupStatisticsEnv(t)

	user := createUser(t, env.db, models.RoleInstructorTrainee, models.TierBasic)
	cpr := createDefinition(t, env.db, "CPR/AED", models.RoleInstructorTrainee, models.TierBasic, true, 10, 30)
	createDefinition(t, env.db, "Water Safety", models.RoleInstructorTrainee, models.TierBasic, true, 10, 60)
	createDefinition(t, env.db, "Background Check", models.RoleInstructorTrainee, models.TierBasic, true, 10, 14)

	actor := Actor{ID: 99, Role: models.RoleAdmin}
	_, err := env.tierService().AssignTierRequirements(context.Background(), user.ID, user.Role, user.Tier, actor)
	require.NoError(t, err)

	setRecordStatus(t, env, user.ID, cpr.ID, models.StatusApproved)

	response, err := svc.TierStatistics(context.Background())
	require.NoError(t, err)
	require.False(t, response.CacheHit)
	require.Equal(t, int64(1), response.BasicTierUsers)
	require.Equal(t, int64(0), response.RobustTierUsers)
	require.InDelta(t, 33.33, response.BasicCompletionAvg, 0.01, "10 of 30 mandatory points earned")
}

func TestTierStatisticsInProgressEarnsNoCompletionCredit(t *testing.T) {
	env, svc, _ := setupStatisticsEnv(t)

	user := createUser(t, env.db, models.RoleInstructorTrainee, models.TierBasic)
	cpr := createDefinition(t, env.db, "CPR/AED", models.RoleInstructorTrainee, models.TierBasic, true, 10, 30)
	createDefinition(t, env.db, "Water Safety", models.RoleInstructorTrainee, models.TierBasic, true, 10, 60)

	actor := Actor{ID: 99, Role: models.RoleAdmin}
	_, err := env.tierService().AssignTierRequirements(context.Background(), user.ID, user.Role, user.Tier, actor)
	require.NoError(t, err)

	setRecordStatus(t, env, user.ID, cpr.ID, models.StatusInProgress)

	response, err := svc.TierStatistics(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 0, response.BasicCompletionAvg, 0.01, "half credit applies to progress bars, not completion")
}

func TestTierStatisticsCacheAside(t *testing.T) {
	env, svc, server := setupStatisticsEnv(t)

	createUser(t, env.db, models.RoleInstructorTrainee, models.TierBasic)

	first, err := svc.TierStatistics(context.Background())
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.True(t, server.Exists("compliance:statistics:tiers"))

	second, err := svc.TierStatistics(context.Background())
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, first.BasicTierUsers, second.BasicTierUsers)

	svc.Invalidate(context.Background())
	require.False(t, server.Exists("compliance:statistics:tiers"))

	third, err := svc.TierStatistics(context.Background())
	require.NoError(t, err)
	require.False(t, third.CacheHit)
}

func TestTierStatisticsUserWithoutMandatoryWorkIsComplete(t *testing.T) {
	env, svc, _ := setupStatisticsEnv(t)

	createUser(t, env.db, models.RoleInstructorTrainee, models.TierRobust)

	response, err := svc.TierStatistics(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), response.RobustTierUsers)
	require.InDelta(t, 100, response.RobustCompletionAvg, 0.01)
}
