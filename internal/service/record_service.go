package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/models"
	"github.com/blindpi/arccm-api/internal/observability"
	"github.com/blindpi/arccm-api/internal/repository"
)

var (
	// ErrRecordNotFound indicates the compliance record does not exist.
	ErrRecordNotFound = errors.New("compliance record not found")
	// ErrRecordSuperseded indicates the record was replaced by a tier change
	// and no longer accepts transitions.
	ErrRecordSuperseded = errors.New("compliance record superseded")
	// ErrInvalidTransition indicates the lifecycle forbids the requested move.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrRecordConflict indicates a concurrent writer updated the record
	// first; the caller must re-fetch before retrying.
	ErrRecordConflict = errors.New("record modified concurrently")
	// ErrWaiveForbidden indicates the actor lacks the admin role required to
	// waive a requirement.
	ErrWaiveForbidden = errors.New("waiving requires an admin role")
	// ErrEvidenceRequired indicates a rejected record can only return to
	// submitted through a new evidence submission.
	ErrEvidenceRequired = errors.New("resubmission requires new evidence")
)

// RecordService reads compliance records and drives their status lifecycle.
type RecordService interface {
	GetRecordsForUser(ctx context.Context, userID uint, includeSuperseded bool) ([]dto.RecordResponse, error)
	Transition(ctx context.Context, recordID uint, payload dto.RecordTransitionRequest, actor Actor) (dto.RecordResponse, error)
}

type recordService struct {
	records     repository.RecordRepository
	validator   *validator.Validate
	audit       AuditRecorder
	feed        ChangeFeedService
	invalidator CacheInvalidator
	logger      zerolog.Logger
	now         func() time.Time
}

// NewRecordService constructs the record store service.
func NewRecordService(records repository.RecordRepository, validate *validator.Validate, audit AuditRecorder, feed ChangeFeedService, invalidator CacheInvalidator, logger zerolog.Logger) RecordService {
	return &recordService{
		records:     records,
		validator:   validate,
		audit:       audit,
		feed:        feed,
		invalidator: invalidator,
		logger:      logger.With().Str("component", "record_service").Logger(),
		now:         time.Now,
	}
}

func (s *recordService) GetRecordsForUser(ctx context.Context, userID uint, includeSuperseded bool) ([]dto.RecordResponse, error) {
	records, err := s.records.ListForUser(ctx, userID, includeSuperseded)
	if err != nil {
		return nil, err
	}
	return dto.NewRecordResponseSlice(records), nil
}

func (s *recordService) Transition(ctx context.Context, recordID uint, payload dto.RecordTransitionRequest, actor Actor) (dto.RecordResponse, error) {
	tracer := otel.Tracer("github.com/blindpi/arccm-api/internal/service/record")
	ctx, span := tracer.Start(ctx, "record.transition")
	span.SetAttributes(
		attribute.Int64("record.id", int64(recordID)),
		attribute.String("record.target_status", payload.Status),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		return dto.RecordResponse{}, err
	}

	record, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, "record_not_found")
			return dto.RecordResponse{}, ErrRecordNotFound
		}
		span.RecordError(err)
		return dto.RecordResponse{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if !record.Active {
		span.SetStatus(codes.Error, "record_superseded")
		return dto.RecordResponse{}, ErrRecordSuperseded
	}

	if err := s.validateTransition(record, payload, actor); err != nil {
		span.SetStatus(codes.Error, "transition_rejected")
		return dto.RecordResponse{}, err
	}

	previousStatus := record.Status
	record.Status = payload.Status
	record.UpdatedBy = actor.ID
	if len(payload.Evidence) > 0 {
		record.Evidence = datatypes.JSON(payload.Evidence)
	}
	if models.TerminalStatus(payload.Status) {
		completed := s.now()
		record.CompletionDate = &completed
	}

	ok, err := s.records.UpdateIfUnmodified(ctx, &record, payload.LastSeenUpdatedAt)
	if err != nil {
		span.RecordError(err)
		return dto.RecordResponse{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if !ok {
		span.SetStatus(codes.Error, "conflict")
		return dto.RecordResponse{}, ErrRecordConflict
	}

	if _, err := s.audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     "record." + payload.Status,
		EntityType: "compliance_record",
		EntityID:   &recordID,
		Metadata: map[string]interface{}{
			"user_id":         record.UserID,
			"requirement_id":  record.RequirementID,
			"previous_status": previousStatus,
			"new_status":      payload.Status,
		},
	}); err != nil {
		s.logger.Warn().Err(err).Uint("record_id", recordID).Msg("failed to append audit event")
	}

	if s.feed != nil {
		s.feed.PublishRecordChange(ctx, dto.RecordChangeEvent{
			UserID:   record.UserID,
			RecordID: recordID,
			Action:   "record.transitioned",
			Status:   payload.Status,
			Tier:     record.Tier,
		})
	}
	if s.invalidator != nil {
		s.invalidator.Invalidate(ctx)
	}
	observability.RecordTransitionsTotal().WithLabelValues(previousStatus, payload.Status).Inc()

	updated, err := s.records.GetByID(ctx, recordID)
	if err != nil {
		return dto.RecordResponse{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.logger.Info().
		Uint("record_id", recordID).
		Str("from", previousStatus).
		Str("to", payload.Status).
		Uint("actor_id", actor.ID).
		Msg("record transitioned")

	return dto.NewRecordResponse(updated), nil
}

func (s *recordService) validateTransition(record models.ComplianceRecord, payload dto.RecordTransitionRequest, actor Actor) error {
	if !models.ValidStatus(payload.Status) {
		return ErrInvalidTransition
	}
	if !models.CanTransition(record.Status, payload.Status) {
		return ErrInvalidTransition
	}
	if payload.Status == models.StatusWaived && !models.IsAdminRole(actor.Role) {
		return ErrWaiveForbidden
	}
	if record.Status == models.StatusRejected && payload.Status == models.StatusSubmitted && len(payload.Evidence) == 0 {
		return ErrEvidenceRequired
	}
	return nil
}
