package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/models"
)

func seedRecord(t *testing.T, env *serviceEnv, userID uint, status string, active bool) models.ComplianceRecord {
	t.Helper()
	definition := createDefinition(t, env.db, "CPR/AED", models.RoleInstructorTrainee, models.TierBasic, true, 10, 30)
	record := models.ComplianceRecord{
		UserID:        userID,
		RequirementID: definition.ID,
		Tier:          models.TierBasic,
		Status:        status,
		Active:        active,
		DueDate:       time.Now().AddDate(0, 0, 30),
	}
	require.NoError(t, env.db.Create(&record).Error)

	stored, err := env.records.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	return stored
}

func TestRecordTransitionHappyPath(t *testing.T) {
	env := newServiceEnv(t)
	svc := env.recordService()

	record := seedRecord(t, env, 1, models.StatusPending, true)
	actor := Actor{ID: 1, Role: models.RoleInstructorTrainee}

	response, err := svc.Transition(context.Background(), record.ID, dto.RecordTransitionRequest{
		Status:            models.StatusInProgress,
		LastSeenUpdatedAt: record.UpdatedAt,
	}, actor)
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, response.Status)
	require.Equal(t, 50, response.Progress)
	require.Nil(t, response.CompletionDate)

	require.Len(t, env.feed.published(), 1)
	require.Equal(t, 1, env.invalidator.invalidations())

	results, total, err := env.auditLog.List(context.Background(), auditFilterForAction("record.in_progress"))
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Len(t, results, 1)
}

func TestRecordTransitionConflict(t *testing.T) {
	env := newServiceEnv(t)
	svc := env.recordService()

	record := seedRecord(t, env, 2, models.StatusPending, true)
	actor := Actor{ID: 2, Role: models.RoleInstructorTrainee}

	stale := record.UpdatedAt.Add(-time.Minute)
	_, err := svc.Transition(context.Background(), record.ID, dto.RecordTransitionRequest{
		Status:            models.StatusInProgress,
		LastSeenUpdatedAt: stale,
	}, actor)
	require.ErrorIs(t, err, ErrRecordConflict)

	reloaded, err := env.records.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, reloaded.Status, "losing write must not apply")
}

func TestRecordTransitionInvalidMoves(t *testing.T) {
	env := newServiceEnv(t)
	svc := env.recordService()

	record := seedRecord(t, env, 3, models.StatusApproved, true)
	actor := Actor{ID: 3, Role: models.RoleInstructorTrainee}

	_, err := svc.Transition(context.Background(), record.ID, dto.RecordTransitionRequest{
		Status:            models.StatusPending,
		LastSeenUpdatedAt: record.UpdatedAt,
	}, actor)
	require.ErrorIs(t, err, ErrInvalidTransition, "approved is terminal")

	_, err = svc.Transition(context.Background(), 98765, dto.RecordTransitionRequest{
		Status:            models.StatusInProgress,
		LastSeenUpdatedAt: record.UpdatedAt,
	}, actor)
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRecordTransitionSupersededRejected(t *testing.T) {
	env := newServiceEnv(t)
	svc := env.recordService()

	record := seedRecord(t, env, 4, models.StatusPending, false)
	actor := Actor{ID: 4, Role: models.RoleInstructorTrainee}

	_, err := svc.Transition(context.Background(), record.ID, dto.RecordTransitionRequest{
		Status:            models.StatusInProgress,
		LastSeenUpdatedAt: record.UpdatedAt,
	}, actor)
	require.ErrorIs(t, err, ErrRecordSuperseded)
}

func TestRecordWaiveRequiresAdmin(t *testing.T) {
	env := newServiceEnv(t)
	svc := env.recordService()

	record := seedRecord(t, env, 5, models.StatusPending, true)

	_, err := svc.Transition(context.Background(), record.ID, dto.RecordTransitionRequest{
		Status:            models.StatusWaived,
		LastSeenUpdatedAt: record.UpdatedAt,
	}, Actor{ID: 5, Role: models.RoleInstructorTrainee})
	require.ErrorIs(t, err, ErrWaiveForbidden)

	response, err := svc.Transition(context.Background(), record.ID, dto.RecordTransitionRequest{
		Status:            models.StatusWaived,
		LastSeenUpdatedAt: record.UpdatedAt,
	}, Actor{ID: 99, Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, models.StatusWaived, response.Status)
	require.NotNil(t, response.CompletionDate, "terminal transition stamps completion")
	require.Equal(t, 100, response.Progress)
}

func TestRecordResubmissionRequiresEvidence(t *testing.T) {
	env := newServiceEnv(t)
	svc := env.recordService()

	record := seedRecord(t, env, 6, models.StatusRejected, true)
	actor := Actor{ID: 6, Role: models.RoleInstructorTrainee}

	_, err := svc.Transition(context.Background(), record.ID, dto.RecordTransitionRequest{
		Status:            models.StatusSubmitted,
		LastSeenUpdatedAt: record.UpdatedAt,
	}, actor)
	require.ErrorIs(t, err, ErrEvidenceRequired)

	response, err := svc.Transition(context.Background(), record.ID, dto.RecordTransitionRequest{
		Status:            models.StatusSubmitted,
		Evidence:          json.RawMessage(`{"file_url":"https://files.test/cert.pdf"}`),
		LastSeenUpdatedAt: record.UpdatedAt,
	}, actor)
	require.NoError(t, err)
	require.Equal(t, models.StatusSubmitted, response.Status)
	require.JSONEq(t, `{"file_url":"https://files.test/cert.pdf"}`, string(response.Evidence))
}
