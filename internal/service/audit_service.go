package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/blindpi/arccm-api/internal/dto"
	"github.com/blindpi/arccm-api/internal/models"
	"github.com/blindpi/arccm-api/internal/repository"
)

// Actor represents the authenticated principal performing an engine mutation.
type Actor struct {
	ID   uint
	Role string
}

// AuditEntry captures the details required to persist an audit event.
type AuditEntry struct {
	ActorID    uint
	ActorRole  string
	Action     string
	EntityType string
	EntityID   *uint
	Metadata   map[string]interface{}
}

// AuditRecorder defines behaviour for appending audit events. RecordInTx
// joins the caller's transaction so the event rolls back with the mutation
// it describes.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry) (dto.AuditEventResponse, error)
	RecordInTx(ctx context.Context, tx *gorm.DB, entry AuditEntry) error
}

// AuditService exposes methods to append and query the audit trail.
type AuditService interface {
	AuditRecorder
	List(ctx context.Context, req dto.AuditListRequest) (dto.AuditListResponse, error)
}

type auditService struct {
	repo      repository.AuditLogRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuditService constructs the audit trail service.
func NewAuditService(repo repository.AuditLogRepository, validator *validator.Validate, logger zerolog.Logger) AuditService {
	return &auditService{
		repo:      repo,
		validator: validator,
		logger:    logger.With().Str("component", "audit_service").Logger(),
	}
}

func (s *auditService) Record(ctx context.Context, entry AuditEntry) (dto.AuditEventResponse, error) {
	model, err := s.buildModel(entry)
	if err != nil {
		return dto.AuditEventResponse{}, err
	}

	if err := s.repo.Create(ctx, nil, &model); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist audit event")
		return dto.AuditEventResponse{}, err
	}

	return dto.NewAuditEventResponse(model), nil
}

func (s *auditService) RecordInTx(ctx context.Context, tx *gorm.DB, entry AuditEntry) error {
	model, err := s.buildModel(entry)
	if err != nil {
		return err
	}
	return s.repo.Create(ctx, tx, &model)
}

func (s *auditService) buildModel(entry AuditEntry) (models.AuditEvent, error) {
	if strings.TrimSpace(entry.Action) == "" {
		return models.AuditEvent{}, fmt.Errorf("action is required")
	}
	if strings.TrimSpace(entry.EntityType) == "" {
		return models.AuditEvent{}, fmt.Errorf("entity type is required")
	}

	return models.AuditEvent{
		ActorID:    entry.ActorID,
		ActorRole:  normalizeActorRole(entry.ActorRole),
		Action:     strings.ToLower(strings.TrimSpace(entry.Action)),
		EntityType: strings.ToLower(strings.TrimSpace(entry.EntityType)),
		EntityID:   entry.EntityID,
		Metadata:   sanitizeMetadata(entry.Metadata),
	}, nil
}

func (s *auditService) List(ctx context.Context, req dto.AuditListRequest) (dto.AuditListResponse, error) {
	filter := repository.AuditLogFilter{
		Page:       req.Page,
		PageSize:   req.PageSize,
		Action:     strings.TrimSpace(req.Action),
		EntityType: strings.TrimSpace(req.EntityType),
	}
	if req.ActorID > 0 {
		filter.ActorID = &req.ActorID
	}

	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AuditListResponse{}, err
	}

	responses := make([]dto.AuditEventResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, dto.NewAuditEventResponse(entry))
	}

	pagination := dto.PaginationMeta{
		Page:       maxInt(req.Page, 1),
		PageSize:   req.PageSize,
		TotalItems: total,
	}
	if req.PageSize > 0 {
		pagination.TotalPages = int(math.Ceil(float64(total) / float64(req.PageSize)))
	} else {
		pagination.TotalPages = 1
	}

	return dto.AuditListResponse{Items: responses, Pagination: pagination}, nil
}

func sanitizeMetadata(metadata map[string]interface{}) datatypes.JSONMap {
	if metadata == nil {
		return datatypes.JSONMap{}
	}

	sanitized := datatypes.JSONMap{}
	for key, value := range metadata {
		lower := strings.ToLower(key)
		if strings.Contains(lower, "email") || strings.Contains(lower, "token") {
			sanitized[key] = "***"
			continue
		}
		sanitized[key] = value
	}
	return sanitized
}

func normalizeActorRole(role string) string {
	r := strings.ToUpper(strings.TrimSpace(role))
	if r == "" {
		return "SYSTEM"
	}
	return r
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
